package model

const (
	// OverflowLimit 是 32 位计数器的回绕上限
	OverflowLimit uint64 = 1 << 32

	// HistorySize 每个分辨率的环形缓冲槽位数
	HistorySize = 60

	// AttrHashMax 属性哈希桶数量
	AttrHashMax = 32

	// DefaultLifetime 未被刷新的接口还能存活的轮数
	DefaultLifetime = 10

	// 表格每次扩容的槽位数
	slotChunk = 32
)

// 属性方向标志：采集端声明本次提供了哪个方向的值
const (
	RxProvided = 1 << iota
	TxProvided
)

// Rate 跟踪一个单调递增的累计计数器，并推导出每秒速率
type Rate struct {
	Total      uint64    // 采集端写入的最新累计值
	PrevTotal  uint64    // 上一次被接受的采样值
	TPS        float64   // 最近一次算出的每秒速率
	Overflows  uint32    // 已检测到的 32 位回绕次数
	Is64Bit    bool      // 64 位计数器不做回绕修正
	LastUpdate Timestamp // 上一次被接受的采样时间
}

// HistData 是单方向的一条历史环
type HistData struct {
	Data      [HistorySize]float64
	PrevTotal uint64
	Overflows uint32
}

// HistElem 是一个分辨率下 rx/tx 两条历史环，共享写游标和提交时间
type HistElem struct {
	RX         HistData
	TX         HistData
	Index      int
	LastUpdate Timestamp
}

// History 五种分辨率：自定义读取间隔、秒、分、时、天
type History struct {
	Read HistElem
	Sec  HistElem
	Min  HistElem
	Hour HistElem
	Day  HistElem
}

// Attr 是挂在接口上的一个具名计数器 (错误、丢包、队列长度 ...)
type Attr struct {
	Type      AttrType
	RxEnabled bool
	TxEnabled bool
	Rx        uint64
	Tx        uint64
	Updated   Timestamp

	next *Attr
}

// Interface 是一个网卡、qdisc 或 tc class，归属于某个 Node
// 名字为空的槽位是墓碑，可以被复用
type Interface struct {
	Name    string
	Handle  uint32
	Index   int  // 槽位下标，存活期间不变
	Parent  int  // 直接父接口的下标
	Link    int  // 顶层设备的下标 (折叠判断用)
	Level   int  // 嵌套深度
	IsChild bool // qdisc/class 子接口
	Folded  bool

	RxBytes     Rate
	TxBytes     Rate
	BytesHist   History
	RxPackets   Rate
	TxPackets   Rate
	PacketsHist History

	Updated  bool // 本轮是否已刷新
	Lifetime int

	attrs  [AttrHashMax]*Attr
	nattrs int
	node   *Node
}

// Node 是产生接口数据的一台主机 (本地或远端)
type Node struct {
	Index    int
	Name     string
	From     string // 来源描述，本地为空
	Selected int    // 当前选中的接口下标

	intfs []*Interface
	state *State
}

// Live 名字非空即存活
func (i *Interface) Live() bool {
	return i != nil && i.Name != ""
}

// Node 返回接口所属节点
func (i *Interface) Node() *Node {
	return i.node
}
