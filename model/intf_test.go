package model

import (
	"fmt"
	"testing"
)

func newTestNode(t *testing.T) (*State, *Node) {
	t.Helper()

	st := NewState("host")
	st.LastRead = Timestamp{Sec: 1000}
	return st, st.LocalNode()
}

func TestLookup_DuplicateWithinCycle(t *testing.T) {
	t.Parallel()

	_, n := newTestNode(t)

	i := n.Lookup("eth0", 0, 0)
	if i == nil {
		t.Fatalf("first lookup returned nil")
	}
	if again := n.Lookup("eth0", 0, 0); again != i {
		t.Fatalf("untouched lookup returned %p, want %p", again, i)
	}

	i.NotifyUpdate()
	if dup := n.Lookup("eth0", 0, 0); dup != nil {
		t.Fatalf("duplicate lookup returned %+v", dup)
	}
}

func TestLookup_IdentityIncludesHandleAndParent(t *testing.T) {
	t.Parallel()

	_, n := newTestNode(t)

	a := n.Lookup("q:fq 1:", 0x10000, 0)
	b := n.Lookup("q:fq 1:", 0x20000, 0)
	c := n.Lookup("q:fq 1:", 0x10000, 1)
	if a == nil || b == nil || c == nil {
		t.Fatalf("lookups: %p %p %p", a, b, c)
	}
	if a == b || a == c || b == c {
		t.Fatalf("identity collision")
	}
	if a.Index != 0 || b.Index != 1 || c.Index != 2 {
		t.Fatalf("indices=%d,%d,%d", a.Index, b.Index, c.Index)
	}
}

func TestLookup_GrowsInChunksAndKeepsPointers(t *testing.T) {
	t.Parallel()

	_, n := newTestNode(t)

	first := n.Lookup("if0", 0, 0)
	for k := 1; k <= slotChunk; k++ {
		if n.Lookup(fmt.Sprintf("if%d", k), 0, 0) == nil {
			t.Fatalf("lookup %d failed", k)
		}
	}
	if n.Slots() != 2*slotChunk {
		t.Fatalf("slots=%d", n.Slots())
	}
	if n.Intf(0) != first || first.Name != "if0" {
		t.Fatalf("first interface moved")
	}
}

func TestRemoveUnused_AfterLifetimeCycles(t *testing.T) {
	t.Parallel()

	st, n := newTestNode(t)
	st.Lifetime = 3

	i := n.Lookup("eth0", 0, 0)
	i.RxBytes.Total = 1000
	i.UpdateAttr(AttrErrors, 1, 2, RxProvided|TxProvided)
	i.NotifyUpdate()

	for cycle := 1; cycle <= 3; cycle++ {
		st.Reset()
		st.RemoveUnused()
		live := n.Intf(0) != nil
		if cycle < 3 && !live {
			t.Fatalf("removed after %d cycles", cycle)
		}
		if cycle == 3 && live {
			t.Fatalf("still live after %d cycles", cycle)
		}
	}

	fresh := n.Lookup("eth0", 0, 0)
	if fresh == nil {
		t.Fatalf("relookup failed")
	}
	if fresh.Index != 0 {
		t.Fatalf("tombstone not reused: index=%d", fresh.Index)
	}
	if fresh.NumAttrs() != 0 || fresh.Attr(AttrErrors) != nil {
		t.Fatalf("attributes survived removal")
	}
	if fresh.RxBytes.Total != 0 || fresh.RxBytes.PrevTotal != 0 {
		t.Fatalf("rate survived removal: %+v", fresh.RxBytes)
	}
	if fresh.Lifetime != 3 {
		t.Fatalf("lifetime=%d", fresh.Lifetime)
	}
}

func TestNotifyUpdate_RestoresLifetime(t *testing.T) {
	t.Parallel()

	st, n := newTestNode(t)
	st.Lifetime = 3

	i := n.Lookup("eth0", 0, 0)
	i.NotifyUpdate()

	st.Reset()
	st.RemoveUnused()
	st.Reset()
	st.RemoveUnused()
	if i.Lifetime != 1 {
		t.Fatalf("lifetime=%d", i.Lifetime)
	}

	st.Reset()
	if n.Lookup("eth0", 0, 0) != i {
		t.Fatalf("lookup returned another record")
	}
	i.NotifyUpdate()
	st.RemoveUnused()
	if i.Lifetime != 3 || !i.Live() {
		t.Fatalf("lifetime=%d live=%v", i.Lifetime, i.Live())
	}
}

func TestResetThenRemove_DecrementsOnce(t *testing.T) {
	t.Parallel()

	st, n := newTestNode(t)

	names := []string{"eth0", "eth1", "lo"}
	for _, name := range names {
		n.Lookup(name, 0, 0).NotifyUpdate()
	}

	st.Reset()
	st.RemoveUnused()

	n.ForeachIntf(func(i *Interface) {
		if i.Lifetime != DefaultLifetime-1 {
			t.Fatalf("%s lifetime=%d", i.Name, i.Lifetime)
		}
	})
	if n.NumIntfs() != len(names) {
		t.Fatalf("live=%d", n.NumIntfs())
	}
}

func TestForeachChild(t *testing.T) {
	t.Parallel()

	_, n := newTestNode(t)

	eth0 := n.Lookup("eth0", 0, 0)
	eth1 := n.Lookup("eth1", 0, 0)

	q := n.Lookup("q:fq 1:", 0x10000, eth0.Index)
	q.IsChild = true
	other := n.Lookup("q:fq 1:", 0x10000, eth1.Index)
	other.IsChild = true
	// 同样的父下标但不是子接口，不算
	n.Lookup("stray", 7, eth0.Index)

	var got []string
	n.ForeachChild(eth0, func(i *Interface) {
		got = append(got, i.Name)
	})
	if len(got) != 1 || got[0] != "q:fq 1:" {
		t.Fatalf("children=%v", got)
	}
}

func TestLookup_NilNodePanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()

	var n *Node
	n.Lookup("eth0", 0, 0)
}

func TestFind_IgnoresUpdatedFlag(t *testing.T) {
	t.Parallel()

	_, n := newTestNode(t)

	i := n.Lookup("wg0", 0, 0)
	i.NotifyUpdate()

	if got := n.Find("wg0", 0, 0); got != i {
		t.Fatalf("Find=%p, want %p", got, i)
	}
	if got := n.Find("wg1", 0, 0); got != nil {
		t.Fatalf("Find created %+v", got)
	}
	if n.NumIntfs() != 1 {
		t.Fatalf("NumIntfs=%d", n.NumIntfs())
	}
}
