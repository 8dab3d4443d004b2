package input

import (
	"testing"

	"bwmon/model"
)

func TestQdiscName(t *testing.T) {
	t.Parallel()

	cases := map[uint32]string{
		0x10000:    "q:htb 1:0",
		0x100010:   "q:htb 10:10",
		0xffff0000: "q:htb ffff:0",
	}
	for handle, want := range cases {
		if got := qdiscName("htb", handle); got != want {
			t.Fatalf("qdiscName(%#x)=%q, want %q", handle, got, want)
		}
	}
}

func TestUpdateQdiscs_Tree(t *testing.T) {
	t.Parallel()

	st := model.NewState("host")
	st.LastRead = model.Timestamp{Sec: 1000}
	node := st.LocalNode()
	dev := node.Lookup("eth0", 0, 0)
	dev.NotifyUpdate()

	qs := []qdiscStat{
		// 子 qdisc 排在父 qdisc 前面，处理时应按依赖排序
		{Iface: "eth0", Kind: "fq_codel", Handle: 0x100000, Parent: 0x10010, Bytes: 10, Packets: 1},
		{Iface: "eth0", Kind: "htb", Handle: 0x10000, Parent: tcHRoot, Bytes: 100, Packets: 2, Drops: 3},
		{Iface: "eth0", Kind: "ingress", Handle: ingressHandle, Parent: tcHIngress, Bytes: 42, Packets: 7},
		{Iface: "eth0", Kind: "sfq", Handle: 0x200000, Parent: 0x50001},
		{Iface: "eth0", Kind: "pfifo_fast", Handle: 0, Parent: 0x10001},
	}
	updateQdiscs(dev, qs)

	htb := node.Find("q:htb 1:0", 0x10000, dev.Index)
	if htb == nil {
		t.Fatalf("htb missing")
	}
	if !htb.IsChild || htb.Level != 1 || htb.Link != dev.Index || !htb.Updated {
		t.Fatalf("htb=%+v", htb)
	}
	if htb.TxBytes.Total != 100 || htb.RxBytes.Total != 0 {
		t.Fatalf("htb rx=%d tx=%d", htb.RxBytes.Total, htb.TxBytes.Total)
	}
	if a := htb.Attr(model.AttrDrop); a == nil || a.Tx != 3 || a.RxEnabled {
		t.Fatalf("drop attr=%+v", a)
	}

	fq := node.Find("q:fq_codel 10:0", 0x100000, htb.Index)
	if fq == nil || fq.Level != 2 || fq.Link != dev.Index {
		t.Fatalf("fq_codel=%+v", fq)
	}

	ing := node.Find("q:ingress ffff:0", ingressHandle, dev.Index)
	if ing == nil || ing.RxBytes.Total != 42 || ing.TxBytes.Total != 0 {
		t.Fatalf("ingress=%+v", ing)
	}
	if a := ing.Attr(model.AttrPackets); a == nil || !a.RxEnabled || a.TxEnabled {
		t.Fatalf("ingress packets attr=%+v", a)
	}

	if orphan := node.Find("q:sfq 20:0", 0x200000, dev.Index); orphan == nil || orphan.Level != 1 {
		t.Fatalf("orphan=%+v", orphan)
	}

	if n := node.NumIntfs(); n != 5 {
		t.Fatalf("intfs=%d", n)
	}

	var children []string
	node.ForeachChild(dev, func(i *model.Interface) {
		children = append(children, i.Name)
	})
	if len(children) != 3 {
		t.Fatalf("children of eth0=%v", children)
	}
}

func TestUpdateQdiscs_PacketCounterWraps(t *testing.T) {
	t.Parallel()

	st := model.NewState("host")
	node := st.LocalNode()
	dev := node.Lookup("eth0", 0, 0)

	q := qdiscStat{Iface: "eth0", Kind: "fq", Handle: 0x10000, Parent: tcHRoot, Bytes: 1, Packets: 0xffffff00}

	st.LastRead = model.Timestamp{Sec: 1000}
	updateQdiscs(dev, []qdiscStat{q})

	st.Reset()
	st.LastRead = model.Timestamp{Sec: 1001}
	q.Packets = 0x100
	updateQdiscs(dev, []qdiscStat{q})

	i := node.Find("q:fq 1:0", 0x10000, dev.Index)
	if i.TxPackets.TPS != 0x200 || i.TxPackets.Overflows != 1 {
		t.Fatalf("tps=%v overflows=%d", i.TxPackets.TPS, i.TxPackets.Overflows)
	}
}
