package input

import (
	"context"
	"testing"

	gnet "github.com/shirou/gopsutil/v3/net"

	"bwmon/config"
	"bwmon/model"
)

func newFakeProc(stats *[]gnet.IOCountersStat, qs *[]qdiscStat) *proc {
	p := newProc(Settings{OnlyRunning: true})
	p.counters = func(context.Context) ([]gnet.IOCountersStat, error) {
		return *stats, nil
	}
	p.interfaces = func(context.Context) (gnet.InterfaceStatList, error) {
		return gnet.InterfaceStatList{
			{Index: 1, Name: "lo", Flags: []string{"up", "loopback"}},
			{Index: 2, Name: "eth0", Flags: []string{"up", "broadcast"}},
			{Index: 3, Name: "eth1", Flags: []string{"broadcast"}},
		}, nil
	}
	p.qdiscs = func() ([]qdiscStat, error) {
		return *qs, nil
	}
	return p
}

func TestProc_ReadRatesAndAttrs(t *testing.T) {
	t.Parallel()

	stats := []gnet.IOCountersStat{
		{Name: "lo", BytesRecv: 100, BytesSent: 100},
		{Name: "eth0", BytesRecv: 1000, BytesSent: 2000, PacketsRecv: 10, PacketsSent: 20, Errin: 1},
		{Name: "eth1", BytesRecv: 5, BytesSent: 5},
	}
	var qs []qdiscStat
	p := newFakeProc(&stats, &qs)

	st := model.NewState("host")
	st.LastRead = model.Timestamp{Sec: 1000}
	st.Reset()
	if err := p.Read(context.Background(), st); err != nil {
		t.Fatalf("Read: %v", err)
	}

	node := st.LocalNode()
	if node.NumIntfs() != 2 {
		t.Fatalf("down link not skipped: %d", node.NumIntfs())
	}

	stats[1].BytesRecv, stats[1].BytesSent = 3000, 2500
	stats[1].Errin = 4
	st.LastRead = model.Timestamp{Sec: 1002}
	st.Reset()
	if err := p.Read(context.Background(), st); err != nil {
		t.Fatalf("Read: %v", err)
	}

	eth0 := node.Find("eth0", 0, 0)
	if eth0 == nil {
		t.Fatalf("eth0 missing")
	}
	if eth0.RxBytes.TPS != 1000 || eth0.TxBytes.TPS != 250 {
		t.Fatalf("rx=%v tx=%v", eth0.RxBytes.TPS, eth0.TxBytes.TPS)
	}
	if !eth0.RxBytes.Is64Bit {
		t.Fatalf("link counters must be 64 bit")
	}
	if a := eth0.Attr(model.AttrErrors); a == nil || a.Rx != 4 || !a.TxEnabled {
		t.Fatalf("errors attr=%+v", a)
	}
}

func TestProc_AllLinksWhenNotOnlyRunning(t *testing.T) {
	t.Parallel()

	stats := []gnet.IOCountersStat{{Name: "eth0"}, {Name: "eth1"}}
	var qs []qdiscStat
	p := newFakeProc(&stats, &qs)
	p.onlyRunning = false

	st := model.NewState("host")
	if err := p.Read(context.Background(), st); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n := st.LocalNode().NumIntfs(); n != 2 {
		t.Fatalf("intfs=%d", n)
	}
}

func TestProc_QdiscChildren(t *testing.T) {
	t.Parallel()

	stats := []gnet.IOCountersStat{{Name: "eth0", BytesRecv: 1, BytesSent: 1}}
	qs := []qdiscStat{
		{Iface: "eth0", Kind: "htb", Handle: 0x10000, Parent: tcHRoot, Bytes: 500},
		{Iface: "lo", Kind: "noqueue", Handle: 0, Parent: tcHRoot},
	}
	p := newFakeProc(&stats, &qs)

	st := model.NewState("host")
	if err := p.Read(context.Background(), st); err != nil {
		t.Fatalf("Read: %v", err)
	}
	node := st.LocalNode()
	if node.NumIntfs() != 2 {
		t.Fatalf("intfs=%d", node.NumIntfs())
	}

	st2 := model.NewState("host")
	if err := p.SetOpts([]config.Attr{{Type: "notc"}}); err != nil {
		t.Fatalf("SetOpts: %v", err)
	}
	if err := p.Read(context.Background(), st2); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n := st2.LocalNode().NumIntfs(); n != 1 {
		t.Fatalf("notc intfs=%d", n)
	}
}

func TestProc_SetOptsUnknown(t *testing.T) {
	t.Parallel()

	p := newProc(Settings{})
	if err := p.SetOpts([]config.Attr{{Type: "bogus"}}); err == nil {
		t.Fatalf("expected error")
	}
}
