// Package input 实现各种计数器来源 (采集端)
//
// 每个 Provider 在每轮 tick 里把自己发现的接口解析进 model.State，
// 写入累计计数器后调用 NotifyUpdate 驱动速率和历史
package input

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"bwmon/config"
	"bwmon/model"
)

// ErrUnknownModule 模块名不存在
var ErrUnknownModule = errors.New("unknown input module")

// Settings 来自全局配置、对所有采集端生效的参数
type Settings struct {
	OnlyRunning bool
}

// Provider 采集端
type Provider interface {
	Name() string
	Help() string
	SetOpts(attrs []config.Attr) error
	// Probe 数据源在当前系统上是否可用
	Probe() bool
	Init() error
	// Read 每轮调用一次，必须尽快返回
	Read(ctx context.Context, st *model.State) error
	Shutdown()
}

// Builtin 全部内置采集端，顺序即自动选择时的探测顺序
func Builtin(s Settings) []Provider {
	list := []Provider{
		newProc(s),
		newWireguard(),
	}
	return append(list, platformProviders(s)...)
}

// Names 所有可选模块名
func Names(candidates []Provider) []string {
	names := make([]string, 0, len(candidates))
	for _, p := range candidates {
		names = append(names, p.Name())
	}
	return names
}

func find(candidates []Provider, name string) Provider {
	for _, p := range candidates {
		if strings.EqualFold(p.Name(), name) {
			return p
		}
	}
	return nil
}

// configure 应用模块选项；带 help 选项时返回 *config.HelpError
func configure(p Provider, m config.Module) error {
	if m.Has("help") {
		return &config.HelpError{Module: p.Name(), Text: p.Help()}
	}
	if err := p.SetOpts(m.Attrs); err != nil {
		return fmt.Errorf("input %s: %w", p.Name(), err)
	}
	return nil
}

// Set 选中的主采集端加上若干辅助采集端
type Set struct {
	providers []Provider
	once      sync.Once
}

// Select 按模块参数挑选采集端
//
// 主采集端：依次尝试 primary 中列出的模块，第一个探测成功的胜出；
// primary 为空时按 candidates 顺序自动探测。辅助采集端：列出的模块
// 探测成功就全部启用，名字为 none 的条目被忽略
func Select(primary, secondary []config.Module, candidates []Provider) (*Set, error) {
	set := &Set{}

	if len(primary) == 0 {
		for _, p := range candidates {
			if p.Probe() {
				set.providers = append(set.providers, p)
				break
			}
		}
	} else {
		for _, m := range primary {
			p := find(candidates, m.Name)
			if p == nil {
				return nil, fmt.Errorf("%w: %s (available: %s)", ErrUnknownModule, m.Name,
					strings.Join(Names(candidates), ", "))
			}
			if err := configure(p, m); err != nil {
				return nil, err
			}
			if p.Probe() {
				set.providers = append(set.providers, p)
				break
			}
			log.WithField("input", p.Name()).Warn("probe failed, trying next module")
		}
	}

	if len(set.providers) == 0 {
		return nil, errors.New("no input module available")
	}

	for _, m := range secondary {
		if strings.EqualFold(m.Name, "none") {
			continue
		}
		p := find(candidates, m.Name)
		if p == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownModule, m.Name)
		}
		if set.has(p) {
			continue
		}
		if err := configure(p, m); err != nil {
			return nil, err
		}
		if !p.Probe() {
			log.WithField("input", p.Name()).Warn("secondary input not available, skipped")
			continue
		}
		set.providers = append(set.providers, p)
	}

	return set, nil
}

func (s *Set) has(p Provider) bool {
	for _, q := range s.providers {
		if q == p {
			return true
		}
	}
	return false
}

// Providers 已选中的采集端，主采集端在最前
func (s *Set) Providers() []Provider {
	return s.providers
}

// Init 主采集端初始化失败是致命错误；辅助采集端失败只会被移除
func (s *Set) Init() error {
	kept := s.providers[:0]
	for idx, p := range s.providers {
		if err := p.Init(); err != nil {
			if idx == 0 {
				return fmt.Errorf("input %s: %w", p.Name(), err)
			}
			log.WithField("input", p.Name()).WithError(err).Warn("init failed, disabled")
			continue
		}
		log.WithField("input", p.Name()).Info("input initialized")
		kept = append(kept, p)
	}
	s.providers = kept
	return nil
}

// Read 完整的一轮读取：清刷新标记、依次读取、回收过期接口。
// 单个采集端失败只记日志，它没刷新到的接口照常扣寿命
func (s *Set) Read(ctx context.Context, st *model.State) {
	st.Reset()
	for _, p := range s.providers {
		if err := p.Read(ctx, st); err != nil {
			log.WithField("input", p.Name()).WithError(err).Warn("read failed")
		}
	}
	st.RemoveUnused()
}

// Shutdown 只执行一次
func (s *Set) Shutdown() {
	s.once.Do(func() {
		for _, p := range s.providers {
			p.Shutdown()
		}
	})
}
