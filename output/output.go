// Package output 实现各种展示端 (消费端)
//
// 消费端只读 model.State；Pre/Post 在每次循环里都会被调用，
// Draw 只在真正读取过一轮数据之后调用
package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"bwmon/config"
	"bwmon/model"
)

var (
	// ErrQuit 消费端请求正常退出
	ErrQuit = errors.New("quit requested")
	// ErrUnknownModule 模块名不存在
	ErrUnknownModule = errors.New("unknown output module")
)

// Settings 所有消费端共享的展示参数
type Settings struct {
	XUnit       model.XUnit
	YUnit       model.YUnit
	FgChar      rune
	BgChar      rune
	NoiseChar   rune
	GraphHeight int

	Out io.Writer
}

// Consumer 消费端
type Consumer interface {
	Name() string
	Help() string
	SetOpts(attrs []config.Attr) error
	Probe() bool
	Init() error
	// Pre 每次循环都调用，交互式消费端在这里处理按键
	Pre(ctx context.Context, st *model.State) error
	Draw(st *model.State) error
	Post(st *model.State) error
	Shutdown()
}

// Builtin 全部内置消费端，顺序即自动选择时的探测顺序
func Builtin(s Settings) []Consumer {
	return []Consumer{
		newCurses(s),
		newASCII(s),
		newCSV(s),
		newPrometheus(s),
	}
}

// Names 所有可选模块名
func Names(candidates []Consumer) []string {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name())
	}
	return names
}

func find(candidates []Consumer, name string) Consumer {
	for _, c := range candidates {
		if strings.EqualFold(c.Name(), name) {
			return c
		}
	}
	return nil
}

func configure(c Consumer, m config.Module) error {
	if m.Has("help") {
		return &config.HelpError{Module: c.Name(), Text: c.Help()}
	}
	if err := c.SetOpts(m.Attrs); err != nil {
		return fmt.Errorf("output %s: %w", c.Name(), err)
	}
	return nil
}

// Set 选中的主消费端加上若干辅助消费端
type Set struct {
	consumers []Consumer
	once      sync.Once
}

// Select 规则与 input.Select 相同：主消费端取第一个探测成功的，
// 辅助消费端探测成功就全部启用
func Select(primary, secondary []config.Module, candidates []Consumer) (*Set, error) {
	set := &Set{}

	if len(primary) == 0 {
		for _, c := range candidates {
			if c.Probe() {
				set.consumers = append(set.consumers, c)
				break
			}
		}
	} else {
		for _, m := range primary {
			c := find(candidates, m.Name)
			if c == nil {
				return nil, fmt.Errorf("%w: %s (available: %s)", ErrUnknownModule, m.Name,
					strings.Join(Names(candidates), ", "))
			}
			if err := configure(c, m); err != nil {
				return nil, err
			}
			if c.Probe() {
				set.consumers = append(set.consumers, c)
				break
			}
			log.WithField("output", c.Name()).Warn("probe failed, trying next module")
		}
	}

	if len(set.consumers) == 0 {
		return nil, errors.New("no output module available")
	}

	for _, m := range secondary {
		if strings.EqualFold(m.Name, "none") {
			continue
		}
		c := find(candidates, m.Name)
		if c == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownModule, m.Name)
		}
		if set.Has(c.Name()) {
			continue
		}
		if err := configure(c, m); err != nil {
			return nil, err
		}
		if !c.Probe() {
			log.WithField("output", c.Name()).Warn("secondary output not available, skipped")
			continue
		}
		set.consumers = append(set.consumers, c)
	}

	return set, nil
}

// Has 是否选中了某个消费端
func (s *Set) Has(name string) bool {
	for _, c := range s.consumers {
		if c.Name() == name {
			return true
		}
	}
	return false
}

// Consumers 已选中的消费端，主消费端在最前
func (s *Set) Consumers() []Consumer {
	return s.consumers
}

// Init 主消费端初始化失败是致命错误
func (s *Set) Init() error {
	kept := s.consumers[:0]
	for idx, c := range s.consumers {
		if err := c.Init(); err != nil {
			if idx == 0 {
				return fmt.Errorf("output %s: %w", c.Name(), err)
			}
			log.WithField("output", c.Name()).WithError(err).Warn("init failed, disabled")
			continue
		}
		kept = append(kept, c)
	}
	s.consumers = kept
	return nil
}

// Pre 任一消费端返回 ErrQuit 时整体返回 ErrQuit，其他错误只记日志
func (s *Set) Pre(ctx context.Context, st *model.State) error {
	return s.each(func(c Consumer) error { return c.Pre(ctx, st) })
}

func (s *Set) Draw(st *model.State) error {
	return s.each(func(c Consumer) error { return c.Draw(st) })
}

func (s *Set) Post(st *model.State) error {
	return s.each(func(c Consumer) error { return c.Post(st) })
}

func (s *Set) each(fn func(Consumer) error) error {
	quit := false
	for _, c := range s.consumers {
		err := fn(c)
		switch {
		case err == nil:
		case errors.Is(err, ErrQuit):
			quit = true
		default:
			log.WithField("output", c.Name()).WithError(err).Warn("output failed")
		}
	}
	if quit {
		return ErrQuit
	}
	return nil
}

// Shutdown 只执行一次
func (s *Set) Shutdown() {
	s.once.Do(func() {
		for _, c := range s.consumers {
			c.Shutdown()
		}
	})
}

// setUnitOpt 解析所有消费端共用的展示选项，不认识的返回 false
func (s *Settings) setUnitOpt(a config.Attr) (bool, error) {
	switch a.Type {
	case "xunit":
		s.XUnit = model.ParseXUnit(a.Value)
	case "yunit":
		s.YUnit = model.ParseYUnit(a.Value)
	case "fgchar", "bgchar", "nchar":
		r := []rune(a.Value)
		if len(r) != 1 {
			return true, fmt.Errorf("option %s needs a single character", a.Type)
		}
		switch a.Type {
		case "fgchar":
			s.FgChar = r[0]
		case "bgchar":
			s.BgChar = r[0]
		default:
			s.NoiseChar = r[0]
		}
	case "height":
		h, err := strconv.Atoi(a.Value)
		if err != nil || h <= 0 {
			return true, fmt.Errorf("option height needs a positive number")
		}
		s.GraphHeight = h
	default:
		return false, nil
	}
	return true, nil
}

// qualifiedName 子接口名前面加上父接口路径，例如 eth0/q:htb 1:0
func qualifiedName(n *model.Node, i *model.Interface) string {
	name := i.Name
	for cur := i; cur.IsChild; {
		parent := n.Intf(cur.Parent)
		if parent == nil {
			break
		}
		name = parent.Name + "/" + name
		cur = parent
	}
	return name
}
