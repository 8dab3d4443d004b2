//go:build linux

package input

import (
	"context"
	"fmt"
	"os"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/rlimit"
	gnet "github.com/shirou/gopsutil/v3/net"

	"bwmon/config"
	"bwmon/model"
)

func platformProviders(s Settings) []Provider {
	return []Provider{newBPF(s)}
}

type bpfStats struct {
	onlyRunning bool
	path        string
	m           *ebpf.Map
	interfaces  func(ctx context.Context) (gnet.InterfaceStatList, error)
}

func newBPF(s Settings) *bpfStats {
	return &bpfStats{
		onlyRunning: s.OnlyRunning,
		path:        DefaultPinPath,
		interfaces:  gnet.InterfacesWithContext,
	}
}

func (b *bpfStats) Name() string { return "ebpf" }
func (b *bpfStats) Help() string { return ebpfHelp }

func (b *bpfStats) SetOpts(attrs []config.Attr) error {
	for _, a := range attrs {
		switch a.Type {
		case "path":
			if a.Value == "" {
				return fmt.Errorf("option path needs a value")
			}
			b.path = a.Value
		default:
			return fmt.Errorf("unknown option %q", a.Type)
		}
	}
	return nil
}

func (b *bpfStats) Probe() bool {
	_, err := os.Stat(b.path)
	return err == nil
}

func (b *bpfStats) Init() error {
	// 1. 移除内存锁定限制，老内核上打开 map 也需要
	if err := rlimit.RemoveMemlock(); err != nil {
		return fmt.Errorf("remove memlock: %w", err)
	}

	// 2. 打开外部程序固定在 bpffs 上的 map
	m, err := ebpf.LoadPinnedMap(b.path, nil)
	if err != nil {
		return fmt.Errorf("load pinned map %s: %w", b.path, err)
	}
	if m.KeySize() != 4 || m.ValueSize() != 32 {
		m.Close()
		return fmt.Errorf("map %s: unexpected layout key=%d value=%d", b.path, m.KeySize(), m.ValueSize())
	}
	b.m = m
	return nil
}

func (b *bpfStats) Read(ctx context.Context, st *model.State) error {
	ifs, err := b.interfaces(ctx)
	if err != nil {
		return fmt.Errorf("list interfaces: %w", err)
	}
	names := ifNames(ifs, b.onlyRunning)

	node := st.LocalNode()

	var (
		key uint32
		val ifCounters
	)
	iter := b.m.Iterate()
	for iter.Next(&key, &val) {
		name, ok := names[key]
		if !ok {
			// 网卡已经消失或没有 up，map 里的条目由 BPF 侧清理
			continue
		}
		if i := node.Lookup(name, 0, 0); i != nil {
			updateCounters(i, val)
		}
	}
	return iter.Err()
}

func (b *bpfStats) Shutdown() {
	if b.m != nil {
		b.m.Close()
		b.m = nil
	}
}
