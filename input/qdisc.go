package input

import (
	"fmt"
	"sort"

	"bwmon/model"
)

// tc 句柄常量
const (
	tcHRoot    uint32 = 0xffffffff
	tcHIngress uint32 = 0xfffffff1
	tcHMajMask uint32 = 0xffff0000

	// ingressHandle ingress qdisc 的固定句柄 ffff:0，它的流量算在 rx 方向
	ingressHandle uint32 = 0xffff0000
)

// qdiscStat 一个 qdisc 的统计快照，与具体的 netlink 库解耦
type qdiscStat struct {
	Iface      string
	Kind       string
	Handle     uint32
	Parent     uint32
	Bytes      uint64
	Packets    uint32
	Drops      uint32
	Requeues   uint32
	Overlimits uint32
	Qlen       uint32
	Backlog    uint32
}

// qdiscName 子接口名：q:<kind> <maj>:<min>
func qdiscName(kind string, handle uint32) string {
	return fmt.Sprintf("q:%s %x:%x", kind, handle>>16, handle&0xffff)
}

func groupQdiscs(qs []qdiscStat) map[string][]qdiscStat {
	out := make(map[string][]qdiscStat)
	for _, q := range qs {
		out[q.Iface] = append(out[q.Iface], q)
	}
	return out
}

// updateQdiscs 把一块网卡的 qdisc 挂到网卡下面
//
// 父子关系按父句柄的主号匹配；父 qdisc 先处理，找不到父节点的
// 直接挂在网卡下。句柄为 0 的 (noqueue、多队列网卡的内部队列) 跳过
func updateQdiscs(dev *model.Interface, qs []qdiscStat) {
	node := dev.Node()

	pending := make([]qdiscStat, 0, len(qs))
	for _, q := range qs {
		if q.Handle != 0 {
			pending = append(pending, q)
		}
	}
	sort.SliceStable(pending, func(a, b int) bool {
		return pending[a].Handle < pending[b].Handle
	})

	byMajor := make(map[uint32]*model.Interface)
	attach := func(q qdiscStat, parent *model.Interface) {
		i := node.Lookup(qdiscName(q.Kind, q.Handle), q.Handle, parent.Index)
		if i == nil {
			return
		}
		i.IsChild = true
		i.Link = dev.Index
		i.Level = parent.Level + 1
		updateQdisc(i, q)
		byMajor[q.Handle&tcHMajMask] = i
	}

	for len(pending) > 0 {
		var next []qdiscStat
		for _, q := range pending {
			if q.Parent == tcHRoot || q.Parent == tcHIngress {
				attach(q, dev)
				continue
			}
			if p, ok := byMajor[q.Parent&tcHMajMask]; ok {
				attach(q, p)
				continue
			}
			next = append(next, q)
		}

		if len(next) == len(pending) {
			// 父 qdisc 不在本次快照里
			for _, q := range next {
				attach(q, dev)
			}
			break
		}
		pending = next
	}
}

func updateQdisc(i *model.Interface, q qdiscStat) {
	flag := model.TxProvided
	if q.Handle == ingressHandle {
		flag = model.RxProvided
	}

	// 字节是 64 位计数器，包数只有 32 位，需要回绕修正
	if flag == model.RxProvided {
		i.RxBytes.Total, i.RxBytes.Is64Bit = q.Bytes, true
		i.RxPackets.Total = uint64(q.Packets)
	} else {
		i.TxBytes.Total, i.TxBytes.Is64Bit = q.Bytes, true
		i.TxPackets.Total = uint64(q.Packets)
	}

	set := func(typ model.AttrType, v uint64) {
		if flag == model.RxProvided {
			i.UpdateAttr(typ, v, 0, flag)
		} else {
			i.UpdateAttr(typ, 0, v, flag)
		}
	}
	set(model.AttrBytes, q.Bytes)
	set(model.AttrPackets, uint64(q.Packets))
	set(model.AttrDrop, uint64(q.Drops))
	set(model.AttrOverlimits, uint64(q.Overlimits))
	set(model.AttrRequeues, uint64(q.Requeues))
	set(model.AttrQlen, uint64(q.Qlen))
	set(model.AttrBacklog, uint64(q.Backlog))

	i.NotifyUpdate()
}
