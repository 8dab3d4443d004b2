package input

import (
	"context"
	"encoding/binary"
	"fmt"

	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"bwmon/config"
	"bwmon/model"
)

const wireguardHelp = `wireguard - WireGuard 设备与 peer 流量 (wgctrl)

  每个 WireGuard 设备是一个顶层接口，流量为所有 peer 之和；
  每个 peer 作为子接口，名字为 p:<公钥前 8 个字符>。
  同一设备已被其他采集端读取时只补充 peer 子接口。

  选项: 无
`

type wgClient interface {
	Devices() ([]*wgtypes.Device, error)
	Close() error
}

type wireguard struct {
	open   func() (wgClient, error)
	client wgClient
}

func newWireguard() *wireguard {
	return &wireguard{
		open: func() (wgClient, error) { return wgctrl.New() },
	}
}

func (w *wireguard) Name() string { return "wireguard" }
func (w *wireguard) Help() string { return wireguardHelp }

func (w *wireguard) SetOpts(attrs []config.Attr) error {
	if len(attrs) > 0 {
		return fmt.Errorf("unknown option %q", attrs[0].Type)
	}
	return nil
}

func (w *wireguard) Probe() bool {
	c, err := w.open()
	if err != nil {
		return false
	}
	defer c.Close()

	devs, err := c.Devices()
	return err == nil && len(devs) > 0
}

func (w *wireguard) Init() error {
	c, err := w.open()
	if err != nil {
		return fmt.Errorf("open wgctrl: %w", err)
	}
	w.client = c
	return nil
}

func (w *wireguard) Read(_ context.Context, st *model.State) error {
	devs, err := w.client.Devices()
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	updateWireguard(st.LocalNode(), devs)
	return nil
}

func (w *wireguard) Shutdown() {
	if w.client != nil {
		w.client.Close()
		w.client = nil
	}
}

func peerName(k wgtypes.Key) string {
	return "p:" + k.String()[:8]
}

// peerHandle 由公钥派生的非零句柄，peer 顺序变化时保持不变
func peerHandle(k wgtypes.Key) uint32 {
	return binary.BigEndian.Uint32(k[:4]) | 1
}

func updateWireguard(node *model.Node, devs []*wgtypes.Device) {
	const both = model.RxProvided | model.TxProvided

	for _, d := range devs {
		owned := true
		dev := node.Lookup(d.Name, 0, 0)
		if dev == nil {
			// 本轮已被 proc 刷新，或被接受策略拒绝
			owned = false
			if dev = node.Find(d.Name, 0, 0); dev == nil {
				continue
			}
		}

		var rx, tx uint64
		for _, p := range d.Peers {
			prx, ptx := uint64(p.ReceiveBytes), uint64(p.TransmitBytes)
			rx += prx
			tx += ptx

			i := node.Lookup(peerName(p.PublicKey), peerHandle(p.PublicKey), dev.Index)
			if i == nil {
				continue
			}
			i.IsChild = true
			i.Link = dev.Index
			i.Level = dev.Level + 1
			i.RxBytes.Total, i.TxBytes.Total = prx, ptx
			i.RxBytes.Is64Bit, i.TxBytes.Is64Bit = true, true
			i.UpdateAttr(model.AttrBytes, prx, ptx, both)
			i.NotifyUpdate()
		}

		if !owned {
			continue
		}
		dev.RxBytes.Total, dev.TxBytes.Total = rx, tx
		dev.RxBytes.Is64Bit, dev.TxBytes.Is64Bit = true, true
		dev.UpdateAttr(model.AttrBytes, rx, tx, both)
		dev.NotifyUpdate()
	}
}
