package model

// minRateInterval 两次被接受的采样至少间隔 1 秒，避免 tick 抖动带来的速率噪声
const minRateInterval = 1.0

// Update 用本轮读取时间推进速率状态机
//
// PrevTotal 为 0 视为未初始化：只记录基准，不算速率。
// 真实计数器第一次读到 0 时无法和"未初始化"区分。
func (r *Rate) Update(ts Timestamp) {
	if r.PrevTotal == 0 {
		r.PrevTotal = r.Total
		r.LastUpdate = ts
		return
	}

	diff := r.LastUpdate.Elapsed(ts)
	if diff < minRateInterval {
		return
	}

	if r.Total != 0 {
		switch {
		case r.Is64Bit && r.Total < r.PrevTotal:
			// 64 位计数器不会回绕，变小只能是设备被重建，重新取基准
			r.TPS = 0
		default:
			r.TPS = float64(r.delta()) / diff
		}
		r.PrevTotal = r.Total
	}

	r.LastUpdate = ts
}

// delta 计算本次增量；32 位计数器一次回绕按 OverflowLimit 修正。
// 假设一个采样间隔内最多回绕一次
func (r *Rate) delta() uint64 {
	t := r.Total - r.PrevTotal
	if t >= OverflowLimit && !r.Is64Bit {
		r.Overflows++
		return OverflowLimit - (r.PrevTotal - r.Total)
	}
	return t
}
