// Package binding 负责模板中 ${...} 占位符的替换。
// 变量是可以嵌套的 Vars，路径用点号分隔，例如 ${order.number}。
package binding

import (
	"fmt"
	"regexp"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Vars 是模板变量，值可以是标量或下一级 Vars。
type Vars map[string]any

// Interpolate 将文本中的 ${a.b} 替换为 vars 中对应的值。
// ${a.b|默认值} 在路径不存在或值为 nil 时使用默认值；
// 没有默认值时保留原占位符，便于发现拼写错误。
func Interpolate(text string, vars Vars) string {
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		expr := match[2 : len(match)-1]
		path, fallback, hasFallback := strings.Cut(expr, "|")
		if val, ok := Lookup(vars, strings.TrimSpace(path)); ok && val != nil {
			return fmt.Sprint(val)
		}
		if hasFallback {
			return fallback
		}
		return match
	})
}

// Lookup 按点号路径逐级查找。中间层必须是 Vars 或 map[string]any。
func Lookup(vars Vars, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = vars
	for _, key := range strings.Split(path, ".") {
		var (
			next any
			ok   bool
		)
		switch m := cur.(type) {
		case Vars:
			next, ok = m[key]
		case map[string]any:
			next, ok = m[key]
		case map[string]string:
			next, ok = m[key]
		}
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Placeholders 返回模板中引用的变量路径（按出现顺序，可能重复）。
func Placeholders(text string) []string {
	var out []string
	for _, groups := range exprPattern.FindAllStringSubmatch(text, -1) {
		path, _, _ := strings.Cut(groups[1], "|")
		if path = strings.TrimSpace(path); path != "" {
			out = append(out, path)
		}
	}
	return out
}
