package input

import (
	"context"
	"fmt"
	"slices"

	gnet "github.com/shirou/gopsutil/v3/net"

	"bwmon/config"
	"bwmon/model"
)

const procHelp = `proc - 内核网卡统计 (gopsutil)

  读取每块网卡的字节、包、错误、丢包和 FIFO 计数器，
  并把 qdisc 统计挂在网卡下面作为子接口。

  选项:
    notc      不读取 qdisc 统计
`

type proc struct {
	onlyRunning bool
	notc        bool

	counters   func(ctx context.Context) ([]gnet.IOCountersStat, error)
	interfaces func(ctx context.Context) (gnet.InterfaceStatList, error)
	qdiscs     func() ([]qdiscStat, error)
}

func newProc(s Settings) *proc {
	return &proc{
		onlyRunning: s.OnlyRunning,
		counters: func(ctx context.Context) ([]gnet.IOCountersStat, error) {
			return gnet.IOCountersWithContext(ctx, true)
		},
		interfaces: gnet.InterfacesWithContext,
		qdiscs:     readQdiscs,
	}
}

func (p *proc) Name() string { return "proc" }
func (p *proc) Help() string { return procHelp }

func (p *proc) SetOpts(attrs []config.Attr) error {
	for _, a := range attrs {
		switch a.Type {
		case "notc":
			p.notc = true
		default:
			return fmt.Errorf("unknown option %q", a.Type)
		}
	}
	return nil
}

func (p *proc) Probe() bool {
	stats, err := p.counters(context.Background())
	return err == nil && len(stats) > 0
}

func (p *proc) Init() error {
	if _, err := p.counters(context.Background()); err != nil {
		return fmt.Errorf("read link counters: %w", err)
	}
	return nil
}

func (p *proc) Read(ctx context.Context, st *model.State) error {
	stats, err := p.counters(ctx)
	if err != nil {
		return fmt.Errorf("read link counters: %w", err)
	}

	var up map[string]bool
	if p.onlyRunning {
		if up, err = p.upLinks(ctx); err != nil {
			return err
		}
	}

	node := st.LocalNode()
	devs := make(map[string]*model.Interface, len(stats))

	for _, c := range stats {
		if up != nil && !up[c.Name] {
			continue
		}
		i := node.Lookup(c.Name, 0, 0)
		if i == nil {
			continue
		}
		updateLink(i, c)
		devs[c.Name] = i
	}

	if p.notc {
		return nil
	}

	qs, err := p.qdiscs()
	if err != nil {
		return fmt.Errorf("read qdisc stats: %w", err)
	}
	for name, group := range groupQdiscs(qs) {
		if dev := devs[name]; dev != nil {
			updateQdiscs(dev, group)
		}
	}
	return nil
}

func (p *proc) Shutdown() {}

func (p *proc) upLinks(ctx context.Context) (map[string]bool, error) {
	ifs, err := p.interfaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}
	up := make(map[string]bool, len(ifs))
	for _, ifc := range ifs {
		up[ifc.Name] = linkUp(ifc)
	}
	return up, nil
}

func linkUp(ifc gnet.InterfaceStat) bool {
	return slices.Contains(ifc.Flags, "up")
}

// updateLink 写入一块网卡的计数器；/proc/net/dev 的计数器是 64 位的
func updateLink(i *model.Interface, c gnet.IOCountersStat) {
	const both = model.RxProvided | model.TxProvided

	i.RxBytes.Total, i.TxBytes.Total = c.BytesRecv, c.BytesSent
	i.RxPackets.Total, i.TxPackets.Total = c.PacketsRecv, c.PacketsSent
	i.RxBytes.Is64Bit, i.TxBytes.Is64Bit = true, true
	i.RxPackets.Is64Bit, i.TxPackets.Is64Bit = true, true

	i.UpdateAttr(model.AttrBytes, c.BytesRecv, c.BytesSent, both)
	i.UpdateAttr(model.AttrPackets, c.PacketsRecv, c.PacketsSent, both)
	i.UpdateAttr(model.AttrErrors, c.Errin, c.Errout, both)
	i.UpdateAttr(model.AttrDrop, c.Dropin, c.Dropout, both)
	i.UpdateAttr(model.AttrFIFO, c.Fifoin, c.Fifoout, both)

	i.NotifyUpdate()
}
