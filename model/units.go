package model

import (
	"fmt"
	"strings"
)

// YUnit 纵轴 (字节) 单位
type YUnit int

const (
	YDynamic YUnit = iota
	YByte
	YKilo
	YMega
	YGiga
	YTera
)

const (
	kib = 1024.0
	mib = 1048576.0
	gib = 1073741824.0
	tib = 1099511627776.0
)

// ParseYUnit 认首字母：b/k/m/g/t，其余按动态处理
func ParseYUnit(s string) YUnit {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "b", "byte", "bytes":
		return YByte
	case "k", "kib", "kilo":
		return YKilo
	case "m", "mib", "mega":
		return YMega
	case "g", "gib", "giga":
		return YGiga
	case "t", "tib", "tera":
		return YTera
	}
	return YDynamic
}

// Sumup 按单位缩放一个字节数或字节速率，返回数值和单位标签
func Sumup(v float64, u YUnit) (float64, string) {
	switch u {
	case YByte:
		return v, "B  "
	case YKilo:
		return v / kib, "KiB"
	case YMega:
		return v / mib, "MiB"
	case YGiga:
		return v / gib, "GiB"
	case YTera:
		return v / tib, "TiB"
	}

	switch {
	case v >= tib:
		return v / tib, "TiB"
	case v >= gib:
		return v / gib, "GiB"
	case v >= mib:
		return v / mib, "MiB"
	case v >= kib:
		return v / kib, "KiB"
	}
	return v, "B  "
}

// Divisor 给图表纵轴挑选除数，动态模式下最大到 GiB
func Divisor(hint float64, u YUnit) (float64, string) {
	switch u {
	case YByte:
		return 1, "B  "
	case YKilo:
		return kib, "KiB"
	case YMega:
		return mib, "MiB"
	case YGiga:
		return gib, "GiB"
	case YTera:
		return tib, "TiB"
	}

	switch {
	case hint >= gib:
		return gib, "GiB"
	case hint >= mib:
		return mib, "MiB"
	case hint >= kib:
		return kib, "KiB"
	}
	return 1, "B  "
}

// XUnit 横轴 (时间) 分辨率
type XUnit int

const (
	XSec XUnit = iota
	XMin
	XHour
	XDay
	XRead
)

// ParseXUnit 认首字母：s/m/h/d/r
func ParseXUnit(s string) XUnit {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return XSec
	}
	switch s[0] {
	case 'm':
		return XMin
	case 'h':
		return XHour
	case 'd':
		return XDay
	case 'r':
		return XRead
	}
	return XSec
}

// Select 按横轴单位选择历史分辨率；读取间隔为 1 秒时 XRead 退化成秒
func (h *History) Select(x XUnit, readInterval float64) (*HistElem, string) {
	switch x {
	case XMin:
		return &h.Min, "m"
	case XHour:
		return &h.Hour, "h"
	case XDay:
		return &h.Day, "d"
	case XRead:
		if readInterval != Second {
			return &h.Read, fmt.Sprintf("(%.2fs)", readInterval)
		}
	}
	return &h.Sec, "s"
}
