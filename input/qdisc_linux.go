//go:build linux

package input

import "github.com/ema/qdisc"

// readQdiscs 通过 rtnetlink 取所有网卡的 qdisc 统计
func readQdiscs() ([]qdiscStat, error) {
	infos, err := qdisc.Get()
	if err != nil {
		return nil, err
	}

	out := make([]qdiscStat, 0, len(infos))
	for _, q := range infos {
		out = append(out, qdiscStat{
			Iface:      q.IfaceName,
			Kind:       q.Kind,
			Handle:     q.Handle,
			Parent:     q.Parent,
			Bytes:      q.Bytes,
			Packets:    q.Packets,
			Drops:      q.Drops,
			Requeues:   q.Requeues,
			Overlimits: q.Overlimits,
			Qlen:       q.Qlen,
			Backlog:    q.Backlog,
		})
	}
	return out, nil
}
