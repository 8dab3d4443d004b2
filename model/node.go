package model

import "errors"

var (
	// ErrEmptyList 列表里没有可选的条目
	ErrEmptyList = errors.New("empty list")
	// ErrEndOfList 已经走到列表一端，选中项不变
	ErrEndOfList = errors.New("end of list")
)

// State 持有所有节点和接口表，是一次运行的全部核心状态
// 单线程使用：读取、计算、渲染都在同一个 tick 内顺序完成
type State struct {
	ReadInterval float64   // 读取间隔 (秒)
	Lifetime     int       // 接口默认寿命 (轮)
	LastRead     Timestamp // 本轮读取时间，速率和历史都以它为准

	hostname  string
	policy    Policy
	policySet bool

	nodes   []*Node
	nnodes  int
	local   int
	current int
}

// NewState hostname 是本地节点的名字
func NewState(hostname string) *State {
	return &State{
		ReadInterval: Second,
		Lifetime:     DefaultLifetime,
		hostname:     hostname,
		local:        -1,
		current:      -1,
	}
}

// SetPolicy 只有第一次调用生效
func (s *State) SetPolicy(policy string) {
	if s.policySet {
		return
	}
	s.policySet = true
	s.policy = ParsePolicy(policy)
}

// Policy 当前接受策略
func (s *State) Policy() Policy {
	return s.policy
}

// LookupNode 按名字查找节点，create 为真时不存在就新建
// 节点槽位只增不减
func (s *State) LookupNode(name string, create bool) *Node {
	if s.nodes == nil {
		s.growNodes()
	}

	for _, n := range s.nodes {
		if n.Name != "" && n.Name == name {
			return n
		}
	}

	if !create {
		return nil
	}

	slot := -1
	for idx, n := range s.nodes {
		if n.Name == "" {
			slot = idx
			break
		}
	}
	if slot < 0 {
		slot = len(s.nodes)
		s.growNodes()
	}

	n := s.nodes[slot]
	n.Name = name
	n.Index = slot
	n.state = s
	s.nnodes++
	return n
}

func (s *State) growNodes() {
	chunk := make([]Node, slotChunk)
	for k := range chunk {
		s.nodes = append(s.nodes, &chunk[k])
	}
}

// LocalNode 本机节点，第一次访问时创建
func (s *State) LocalNode() *Node {
	if s.local < 0 {
		s.local = s.LookupNode(s.hostname, true).Index
	}
	return s.nodes[s.local]
}

// NumNodes 已创建的节点数
func (s *State) NumNodes() int {
	return s.nnodes
}

// ForeachNode 按下标顺序遍历节点
func (s *State) ForeachNode(fn func(*Node)) {
	for i := 0; i < s.nnodes; i++ {
		if n := s.nodes[i]; n.Name != "" {
			fn(n)
		}
	}
}

// ForeachNodeIntf 遍历所有节点的存活接口
func (s *State) ForeachNodeIntf(fn func(*Node, *Interface)) {
	s.ForeachNode(func(n *Node) {
		n.ForeachIntf(func(i *Interface) {
			fn(n, i)
		})
	})
}

// Reset 每轮开始前清除所有接口的刷新标记
func (s *State) Reset() {
	s.ForeachNodeIntf(func(_ *Node, i *Interface) {
		i.Reset()
	})
}

// RemoveUnused 每轮结束后扣减未刷新接口的寿命，归零即回收
func (s *State) RemoveUnused() {
	s.ForeachNodeIntf(func(_ *Node, i *Interface) {
		i.removeUnused()
	})
}

// ===========================
// 游标：当前节点 / 当前接口
// ===========================

// CurrentNode 当前选中的节点，没有时返回 nil
func (s *State) CurrentNode() *Node {
	if s.current < 0 {
		return nil
	}
	return s.nodes[s.current]
}

func (s *State) FirstNode() error {
	for i := 0; i < s.nnodes; i++ {
		if s.nodes[i].Name != "" {
			s.current = i
			return nil
		}
	}
	return ErrEmptyList
}

func (s *State) LastNode() error {
	for i := s.nnodes - 1; i >= 0; i-- {
		if s.nodes[i].Name != "" {
			s.current = i
			return nil
		}
	}
	return ErrEmptyList
}

func (s *State) NextNode() error {
	if s.nnodes <= 0 {
		return ErrEmptyList
	}
	if s.current < 0 {
		return s.FirstNode()
	}
	for i := s.current + 1; i < s.nnodes; i++ {
		if s.nodes[i].Name != "" {
			s.current = i
			return nil
		}
	}
	return ErrEndOfList
}

func (s *State) PrevNode() error {
	if s.nnodes <= 0 {
		return ErrEmptyList
	}
	if s.current < 0 {
		return s.FirstNode()
	}
	for i := s.current - 1; i >= 0; i-- {
		if s.nodes[i].Name != "" {
			s.current = i
			return nil
		}
	}
	return ErrEndOfList
}

// CurrentIntf 当前节点里选中的接口
func (s *State) CurrentIntf() *Interface {
	n := s.CurrentNode()
	if n == nil {
		return nil
	}
	return n.Intf(n.Selected)
}

func (s *State) FirstIntf() error {
	n := s.CurrentNode()
	if n == nil || len(n.intfs) == 0 {
		return ErrEmptyList
	}
	for idx, i := range n.intfs {
		if i.Live() {
			n.Selected = idx
			return nil
		}
	}
	return ErrEmptyList
}

func (s *State) LastIntf() error {
	n := s.CurrentNode()
	if n == nil || len(n.intfs) == 0 {
		return ErrEmptyList
	}
	for idx := len(n.intfs) - 1; idx >= 0; idx-- {
		if n.intfs[idx].Live() {
			n.Selected = idx
			return nil
		}
	}
	return ErrEmptyList
}

// NextIntf 跳过墓碑，也跳过顶层设备已折叠的子接口
func (s *State) NextIntf() error {
	n := s.CurrentNode()
	if n == nil || len(n.intfs) == 0 {
		return ErrEmptyList
	}
	if n.Selected < 0 || n.Selected >= len(n.intfs) {
		return s.LastIntf()
	}
	for idx := n.Selected + 1; idx < len(n.intfs); idx++ {
		if n.visible(n.intfs[idx]) {
			n.Selected = idx
			return nil
		}
	}
	return ErrEndOfList
}

func (s *State) PrevIntf() error {
	n := s.CurrentNode()
	if n == nil || len(n.intfs) == 0 {
		return ErrEmptyList
	}
	if n.Selected < 0 || n.Selected >= len(n.intfs) {
		return s.FirstIntf()
	}
	for idx := n.Selected - 1; idx >= 0; idx-- {
		if n.visible(n.intfs[idx]) {
			n.Selected = idx
			return nil
		}
	}
	return ErrEndOfList
}

func (n *Node) visible(i *Interface) bool {
	if !i.Live() {
		return false
	}
	if i.IsChild {
		if top := n.Intf(i.Link); top != nil && top.Folded {
			return false
		}
	}
	return true
}

// Visible 接口是否会出现在展开后的列表里
func (n *Node) Visible(i *Interface) bool {
	return n.visible(i)
}

// Fold 折叠/展开选中接口所在的顶层设备
// 选中的是子接口时，折叠后选中项退回到上一个可见条目
func (s *State) Fold() {
	n := s.CurrentNode()
	i := s.CurrentIntf()
	if n == nil || i == nil {
		return
	}

	child := i.IsChild
	for i != nil && i.IsChild {
		i = n.Intf(i.Parent)
	}
	if i == nil {
		return
	}
	i.Folded = !i.Folded

	if child {
		_ = s.PrevIntf()
	}
}
