package model

// 各分辨率的名义桶宽 (秒)
const (
	Second = 1.0
	Minute = 60.0
	Hour   = 3600.0
	Day    = 86400.0
)

// Update 推进五种分辨率；读取间隔恰好 1 秒时秒级已经覆盖，自定义分辨率跳过
func (h *History) Update(rx, tx *Rate, ts Timestamp, readInterval float64) {
	if readInterval != Second {
		h.Read.update(rx, tx, ts, readInterval, readInterval)
	}
	h.Sec.update(rx, tx, ts, Second, readInterval)
	h.Min.update(rx, tx, ts, Minute, readInterval)
	h.Hour.update(rx, tx, ts, Hour, readInterval)
	h.Day.update(rx, tx, ts, Day, readInterval)
}

func (e *HistElem) update(rx, tx *Rate, ts Timestamp, unit, readInterval float64) {
	if e.LastUpdate.IsZero() {
		e.RX.seed(rx)
		e.TX.seed(tx)
		e.LastUpdate = ts
		return
	}

	// 调度器为了追回误差可能给出比要求更短的间隔；
	// 桶宽等于读取间隔时照样提交，速率按实际经过时间计算
	diff := e.LastUpdate.Elapsed(ts)
	if diff <= 0 || (diff < unit && readInterval != unit) {
		return
	}

	e.RX.commit(rx, e.Index, diff)
	e.TX.commit(tx, e.Index, diff)

	e.Index++
	if e.Index >= HistorySize {
		e.Index = 0
	}
	e.LastUpdate = ts
}

func (d *HistData) seed(r *Rate) {
	d.PrevTotal = r.Total
}

func (d *HistData) commit(r *Rate, idx int, diff float64) {
	d.Data[idx] = float64(d.delta(r)) / diff
	d.PrevTotal = r.Total
}

// delta 自上次提交以来的增量，按本条历史自己的基准判断回绕，
// 规则与速率引擎相同：32 位计数器一次回绕按 OverflowLimit 修正
func (d *HistData) delta(r *Rate) uint64 {
	t := r.Total - d.PrevTotal
	switch {
	case r.Is64Bit && r.Total < d.PrevTotal:
		return 0
	case !r.Is64Bit && t >= OverflowLimit:
		d.Overflows++
		return OverflowLimit - (d.PrevTotal - r.Total)
	}
	return t
}

// Recent 从最近写入的槽位往回走，最新的在前
func (e *HistElem) Recent() (rx, tx []float64) {
	rx = make([]float64, 0, HistorySize)
	tx = make([]float64, 0, HistorySize)
	for k := 1; k <= HistorySize; k++ {
		idx := (e.Index - k + HistorySize) % HistorySize
		rx = append(rx, e.RX.Data[idx])
		tx = append(tx, e.TX.Data[idx])
	}
	return rx, tx
}
