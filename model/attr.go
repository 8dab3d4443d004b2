package model

import "fmt"

// AttrType 属性类型，固定枚举
type AttrType int

const (
	AttrBytes AttrType = iota
	AttrPackets
	AttrErrors
	AttrDrop
	AttrFIFO
	AttrFrame
	AttrCompressed
	AttrMulticast
	AttrBroadcast
	AttrLengthErrors
	AttrOverErrors
	AttrCRCErrors
	AttrMissedErrors
	AttrAbortedErrors
	AttrCarrierErrors
	AttrHeartbeatErrors
	AttrWindowErrors
	AttrCollisions
	AttrOverlimits
	AttrBPS
	AttrPPS
	AttrQlen
	AttrBacklog
	AttrRequeues

	attrMax
)

var attrNames = [attrMax]string{
	AttrBytes:           "Bytes",
	AttrPackets:         "Packets",
	AttrErrors:          "Errors",
	AttrDrop:            "Dropped",
	AttrFIFO:            "FIFO Err",
	AttrFrame:           "Frame Err",
	AttrCompressed:      "Compressed",
	AttrMulticast:       "Multicast",
	AttrBroadcast:       "Broadcast",
	AttrLengthErrors:    "Length Err",
	AttrOverErrors:      "Over Err",
	AttrCRCErrors:       "CRC Err",
	AttrMissedErrors:    "Missed Err",
	AttrAbortedErrors:   "Aborted Err",
	AttrCarrierErrors:   "Carrier Err",
	AttrHeartbeatErrors: "HBeat Err",
	AttrWindowErrors:    "Window Err",
	AttrCollisions:      "Collisions",
	AttrOverlimits:      "Overlimits",
	AttrBPS:             "Bits/s",
	AttrPPS:             "Packets/s",
	AttrQlen:            "Queue Len",
	AttrBacklog:         "Backlog",
	AttrRequeues:        "Requeues",
}

func (t AttrType) String() string {
	if t >= 0 && t < attrMax {
		return attrNames[t]
	}
	return fmt.Sprintf("unknown (%d)", int(t))
}

func attrHash(t AttrType) int {
	return int(t&0xFF) % AttrHashMax
}

// UpdateAttr 查找或创建 typ 对应的属性，并写入 flags 声明的方向
// 值发生变化时才刷新 Updated；从未被声明过的方向保持禁用
func (i *Interface) UpdateAttr(typ AttrType, rx, tx uint64, flags int) {
	h := attrHash(typ)

	a := i.attrs[h]
	for ; a != nil; a = a.next {
		if a.Type == typ {
			break
		}
	}

	if a == nil {
		// 新建的属性插在链表头
		a = &Attr{Type: typ, next: i.attrs[h]}
		i.attrs[h] = a
		i.nattrs++
	}

	if flags&RxProvided != 0 {
		if a.Rx != rx {
			a.Updated = Now()
		}
		a.Rx = rx
		a.RxEnabled = true
	}

	if flags&TxProvided != 0 {
		if a.Tx != tx {
			a.Updated = Now()
		}
		a.Tx = tx
		a.TxEnabled = true
	}
}

// Attr 按类型取属性，不存在返回 nil
func (i *Interface) Attr(typ AttrType) *Attr {
	for a := i.attrs[attrHash(typ)]; a != nil; a = a.next {
		if a.Type == typ {
			return a
		}
	}
	return nil
}

// ForeachAttr 按桶顺序遍历，同一条链内最新创建的在前
func (i *Interface) ForeachAttr(fn func(*Attr)) {
	for m := 0; m < AttrHashMax; m++ {
		for a := i.attrs[m]; a != nil; a = a.next {
			fn(a)
		}
	}
}

// NumAttrs 已创建的属性数量
func (i *Interface) NumAttrs() int {
	return i.nattrs
}
