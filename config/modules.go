package config

import (
	"fmt"
	"strings"
)

// HelpError 模块参数里带了 help 选项，Text 是该模块的帮助文本
type HelpError struct {
	Module string
	Text   string
}

func (e *HelpError) Error() string {
	return fmt.Sprintf("help requested for module %s", e.Module)
}

// Attr 模块的一个选项：TYPE[=VALUE]
type Attr struct {
	Type     string
	Value    string
	HasValue bool
}

// Module 一个被选中的模块及其选项
type Module struct {
	Name  string
	Attrs []Attr
}

// Has 是否带有某个选项
func (m Module) Has(typ string) bool {
	_, ok := m.Lookup(typ)
	return ok
}

// Lookup 取选项，同名选项以最后一个为准
func (m Module) Lookup(typ string) (Attr, bool) {
	var (
		found Attr
		ok    bool
	)
	for _, a := range m.Attrs {
		if strings.EqualFold(a.Type, typ) {
			found, ok = a, true
		}
	}
	return found, ok
}

// ParseModules 解析 MODULE[:opt;opt=val],MODULE... 形式的模块参数
//
//	proc:notc,wireguard
//	ascii:diagram=details;quitafter=3
func ParseModules(s string) ([]Module, error) {
	var mods []Module

	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		name, opts, _ := strings.Cut(item, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("module parameter %q: missing module name", item)
		}

		m := Module{Name: name}
		for _, opt := range strings.Split(opts, ";") {
			opt = strings.TrimSpace(opt)
			if opt == "" {
				continue
			}
			typ, val, hasVal := strings.Cut(opt, "=")
			typ = strings.TrimSpace(typ)
			if typ == "" {
				return nil, fmt.Errorf("module %s: option %q has no name", name, opt)
			}
			m.Attrs = append(m.Attrs, Attr{Type: typ, Value: strings.TrimSpace(val), HasValue: hasVal})
		}
		mods = append(mods, m)
	}

	return mods, nil
}
