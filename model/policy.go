package model

import "strings"

const maxPolicy = 255

// Policy 接口名的允许/拒绝过滤器
type Policy struct {
	allowed []string
	denied  []string
}

// ParsePolicy 解析逗号分隔的模式列表，"!" 开头表示拒绝
// 例如 "eth*,lo*,!eth1"
func ParsePolicy(s string) Policy {
	var p Policy
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.HasPrefix(item, "!") {
			if len(p.denied) < maxPolicy {
				p.denied = append(p.denied, item[1:])
			}
			continue
		}
		if len(p.allowed) < maxPolicy {
			p.allowed = append(p.allowed, item)
		}
	}
	return p
}

// Empty 没有任何模式
func (p Policy) Empty() bool {
	return len(p.allowed) == 0 && len(p.denied) == 0
}

// Allowed 先看拒绝列表，再看允许列表；没有允许列表时放行所有未被拒绝的
func (p Policy) Allowed(name string) bool {
	for _, m := range p.denied {
		if matchMask(m, name) {
			return false
		}
	}

	if len(p.allowed) == 0 {
		return true
	}

	for _, m := range p.allowed {
		if matchMask(m, name) {
			return true
		}
	}
	return false
}

// matchMask 大小写不敏感；"*" 吞掉字符直到遇见它后面那个字符，
// 末尾的 "*" 匹配剩下的全部
func matchMask(mask, str string) bool {
	m := strings.ToLower(mask)
	s := strings.ToLower(str)

	n := 0
	for i := 0; i < len(m); i, n = i+1, n+1 {
		if m[i] == '*' {
			if i+1 >= len(m) {
				return true
			}
			c := m[i+1]
			for n < len(s) && s[n] != c {
				n++
			}
			if n >= len(s) {
				return false
			}
			n--
			continue
		}
		if n >= len(s) || m[i] != s[n] {
			return false
		}
	}
	return n == len(s)
}
