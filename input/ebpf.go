package input

import (
	gnet "github.com/shirou/gopsutil/v3/net"

	"bwmon/model"
)

// DefaultPinPath ebpf 采集端默认读取的固定 map
const DefaultPinPath = "/sys/fs/bpf/bwmon_ifstats"

const ebpfHelp = `ebpf - 从已固定 (pinned) 的 BPF hash map 读取网卡计数器

  map 的 key 为 uint32 ifindex，value 为 4 个 uint64:
  rx 字节、tx 字节、rx 包、tx 包。BPF 程序本身由外部加载。

  选项:
    path=PATH  map 的 bpffs 路径 (默认 ` + DefaultPinPath + `)
`

// ifCounters 与 BPF 侧的 value 布局一致
type ifCounters struct {
	RxBytes   uint64
	TxBytes   uint64
	RxPackets uint64
	TxPackets uint64
}

func updateCounters(i *model.Interface, c ifCounters) {
	const both = model.RxProvided | model.TxProvided

	i.RxBytes.Total, i.TxBytes.Total = c.RxBytes, c.TxBytes
	i.RxPackets.Total, i.TxPackets.Total = c.RxPackets, c.TxPackets
	i.RxBytes.Is64Bit, i.TxBytes.Is64Bit = true, true
	i.RxPackets.Is64Bit, i.TxPackets.Is64Bit = true, true

	i.UpdateAttr(model.AttrBytes, c.RxBytes, c.TxBytes, both)
	i.UpdateAttr(model.AttrPackets, c.RxPackets, c.TxPackets, both)
	i.NotifyUpdate()
}

// ifNames ifindex 到网卡名的映射；onlyRunning 时不包含没有 up 的网卡
func ifNames(ifs gnet.InterfaceStatList, onlyRunning bool) map[uint32]string {
	names := make(map[uint32]string, len(ifs))
	for _, ifc := range ifs {
		if onlyRunning && !linkUp(ifc) {
			continue
		}
		names[uint32(ifc.Index)] = ifc.Name
	}
	return names
}
