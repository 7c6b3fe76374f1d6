// Package sanitize 将任意 Unicode 文本映射到字体可编码的字形子集
// （ASCII 0x20-0x7E、Latin-1 0xA0-0xFF，以及换行与制表符）。
package sanitize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// substitutions 是有序的多对一替换表，先于字符过滤执行。
// 同一位置上靠前的条目优先匹配（例如 CRLF 先于 CR）。
var substitutions = strings.NewReplacer(
	// 换行
	"\r\n", "\n",
	"\r", "\n",
	"\u2028", "\n",
	"\u2029", "\n",

	// 引号
	"‘", "'", "’", "'", "‚", "'", "‛", "'",
	"′", "'", "‹", "'", "›", "'",
	"“", "\"", "”", "\"", "„", "\"", "‟", "\"",
	"″", "\"",

	// 连字符与破折号
	"‐", "-", "‑", "-", "‒", "-", "–", "-",
	"—", "-", "―", "-", "−", "-", "\u00AD", "",

	// 省略号、项目符号
	"…", "...",
	"•", "-", "‣", "-", "◦", "-", "●", "-",
	"∙", "*", "⁃", "*", "▪", "-", "■", "-",

	// 箭头
	"→", "->", "←", "<-", "↔", "<->", "⇒", "=>",
	"⇐", "<=", "↑", "^", "↓", "v", "➜", "->", "➡", "->",

	// Latin-1 以外的货币符号
	"€", "EUR", "₹", "INR", "₽", "RUB", "₩", "KRW",
	"₺", "TRY", "₿", "BTC", "₱", "PHP", "₫", "VND",

	// 零宽与特殊空白
	"\u200B", "", "\u200C", "", "\u200D", "", "\u2060", "", "\uFEFF", "",
	"\u00A0", " ", "\u2000", " ", "\u2001", " ", "\u2002", " ", "\u2003", " ",
	"\u2004", " ", "\u2005", " ", "\u2006", " ", "\u2007", " ", "\u2008", " ",
	"\u2009", " ", "\u200A", " ", "\u202F", " ", "\u205F", " ", "\u3000", " ",

	// 连字与符号
	"ﬁ", "fi", "ﬂ", "fl", "™", "TM", "№", "No",
	"★", "*", "☆", "*",

	// 常见 emoji
	"✅", "[OK]", "✔", "[v]", "✓", "[v]", "❌", "[X]",
	"✖", "[X]", "⚠", "[!]", "❗", "[!]",
	"\U0001F4E6", "[caixa]", "\U0001F69A", "[caminhao]", "\U0001F69B", "[caminhao]",
	"\U0001F4CD", "[local]", "\U0001F4DE", "[tel]", "\U0001F4F1", "[cel]",
	"\U0001F4F7", "[foto]", "\U0001F4C5", "[data]", "\U0001F550", "[hora]",
	"\U0001F44D", "[ok]", "\U0001F600", ":)", "\U0001F642", ":)", "\U0001F641", ":(",
)

// Allowed 判断字符是否属于目标字形子集。
func Allowed(r rune) bool {
	switch {
	case r == '\n' || r == '\t':
		return true
	case r >= 0x20 && r <= 0x7E:
		return true
	case r >= 0xA0 && r <= 0xFF:
		return true
	default:
		return false
	}
}

// FirstUnsupported 返回文本中第一个不在目标子集内的字符。
func FirstUnsupported(s string) (rune, bool) {
	for _, r := range s {
		if !Allowed(r) {
			return r, true
		}
	}
	return 0, false
}

// Text 先做 NFC 组合，再应用替换表，删除剩余的不支持字符，最后合并连续空格。
// 对任意输入都不会 panic，且 Text(Text(s)) == Text(s)。
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	s = substitutions.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		if !Allowed(r) {
			continue
		}
		if r == ' ' {
			if lastSpace {
				continue
			}
			lastSpace = true
		} else {
			lastSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ptr 接受可能为 nil 的字符串指针，nil 返回空串。
func Ptr(s *string) string {
	if s == nil {
		return ""
	}
	return Text(*s)
}
