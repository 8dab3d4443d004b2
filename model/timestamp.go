package model

import "time"

const usecPerSec = 1000000

// Timestamp 是定点时间戳：秒 + 微秒 (Usec 始终落在 [0, 1000000) 内)
type Timestamp struct {
	Sec  int64
	Usec int64
}

// Now 返回当前墙上时间
func Now() Timestamp {
	return FromTime(time.Now())
}

// FromTime 把 time.Time 截断到微秒精度
func FromTime(t time.Time) Timestamp {
	return Timestamp{Sec: t.Unix(), Usec: int64(t.Nanosecond() / 1000)}
}

// FromDuration 把 time.Duration 截断到微秒精度
func FromDuration(d time.Duration) Timestamp {
	return normalize(0, d.Microseconds())
}

// FromFloat 把浮点秒数转换为时间戳 (负数也会被规整)
func FromFloat(f float64) Timestamp {
	sec := int64(f)
	usec := int64((f - float64(sec)) * usecPerSec)
	return normalize(sec, usec)
}

// IsZero 表示从未被赋值
func (t Timestamp) IsZero() bool {
	return t.Sec == 0 && t.Usec == 0
}

// Float 转为浮点秒数
func (t Timestamp) Float() float64 {
	return float64(t.Sec) + float64(t.Usec)/usecPerSec
}

// Duration 转为 time.Duration，给 time.Sleep 之类的调用方用
func (t Timestamp) Duration() time.Duration {
	return time.Duration(t.Sec)*time.Second + time.Duration(t.Usec)*time.Microsecond
}

// Add 返回 t + o，带进位
func (t Timestamp) Add(o Timestamp) Timestamp {
	return normalize(t.Sec+o.Sec, t.Usec+o.Usec)
}

// Sub 返回 t - o，带借位；t 早于 o 时结果为负
func (t Timestamp) Sub(o Timestamp) Timestamp {
	return normalize(t.Sec-o.Sec, t.Usec-o.Usec)
}

// LE 判断 t <= o
func (t Timestamp) LE(o Timestamp) bool {
	if t.Sec != o.Sec {
		return t.Sec < o.Sec
	}
	return t.Usec <= o.Usec
}

// Elapsed 返回从 t 到 until 经过的秒数 (可以是负数)
func (t Timestamp) Elapsed(until Timestamp) float64 {
	return until.Sub(t).Float()
}

// Since 返回从 t 到现在经过的秒数
func (t Timestamp) Since() float64 {
	return t.Elapsed(Now())
}

func normalize(sec, usec int64) Timestamp {
	sec += usec / usecPerSec
	usec %= usecPerSec
	if usec < 0 {
		sec--
		usec += usecPerSec
	}
	return Timestamp{Sec: sec, Usec: usec}
}
