package model

// Lookup 按 (name, handle, parent) 解析接口
//
// 本轮已经刷新过的接口返回 nil (重复解析)；handle 为 0 的顶层设备
// 还要经过接受策略，被拒绝时返回 nil 且不占槽位
func (n *Node) Lookup(name string, handle uint32, parent int) *Interface {
	if n == nil {
		panic("model: lookup on nil node")
	}

	if n.intfs == nil {
		n.grow()
	}

	for _, i := range n.intfs {
		if i.Live() && i.Name == name && i.Handle == handle && i.Parent == parent {
			if i.Updated {
				return nil
			}
			return i
		}
	}

	if handle == 0 && !n.state.policy.Allowed(name) {
		return nil
	}

	slot := -1
	for idx, i := range n.intfs {
		if !i.Live() {
			slot = idx
			break
		}
	}
	if slot < 0 {
		slot = len(n.intfs)
		n.grow()
	}

	i := n.intfs[slot]
	*i = Interface{
		Name:     name,
		Handle:   handle,
		Parent:   parent,
		Index:    slot,
		Lifetime: n.state.Lifetime,
		node:     n,
	}
	return i
}

// Find 只查找不创建，也不过滤本轮已刷新的接口
func (n *Node) Find(name string, handle uint32, parent int) *Interface {
	for _, i := range n.intfs {
		if i.Live() && i.Name == name && i.Handle == handle && i.Parent == parent {
			return i
		}
	}
	return nil
}

// grow 按固定步长扩容，槽位本身是指针，扩容不会让已发出的引用失效
func (n *Node) grow() {
	chunk := make([]Interface, slotChunk)
	for k := range chunk {
		n.intfs = append(n.intfs, &chunk[k])
	}
}

// Intf 按下标取存活接口
func (n *Node) Intf(index int) *Interface {
	if index < 0 || index >= len(n.intfs) {
		return nil
	}
	if i := n.intfs[index]; i.Live() {
		return i
	}
	return nil
}

// Slots 当前表大小 (包含墓碑)
func (n *Node) Slots() int {
	return len(n.intfs)
}

// NumIntfs 存活接口数量
func (n *Node) NumIntfs() int {
	c := 0
	for _, i := range n.intfs {
		if i.Live() {
			c++
		}
	}
	return c
}

// ForeachIntf 按下标顺序遍历存活接口
func (n *Node) ForeachIntf(fn func(*Interface)) {
	for _, i := range n.intfs {
		if i.Live() {
			fn(i)
		}
	}
}

// ForeachChild 遍历 parent 的直接子接口
func (n *Node) ForeachChild(parent *Interface, fn func(*Interface)) {
	for _, i := range n.intfs {
		if i.Live() && i.IsChild && i.Parent == parent.Index {
			fn(i)
		}
	}
}

// NotifyUpdate 标记本轮已刷新，恢复寿命，并用本轮读取时间驱动速率和历史
func (i *Interface) NotifyUpdate() {
	st := i.node.state
	ts := st.LastRead

	i.Updated = true
	i.Lifetime = st.Lifetime

	i.RxBytes.Update(ts)
	i.TxBytes.Update(ts)
	i.RxPackets.Update(ts)
	i.TxPackets.Update(ts)

	i.BytesHist.Update(&i.RxBytes, &i.TxBytes, ts, st.ReadInterval)
	i.PacketsHist.Update(&i.RxPackets, &i.TxPackets, ts, st.ReadInterval)
}

// Reset 清除本轮刷新标记
func (i *Interface) Reset() {
	i.Updated = false
}

// removeUnused 未刷新则寿命减一，归零时整个槽位清空 (属性一起释放)
func (i *Interface) removeUnused() {
	if i.Updated {
		return
	}
	i.Lifetime--
	if i.Lifetime <= 0 {
		*i = Interface{}
	}
}
