package layout

import (
	"strings"

	"github.com/ByLCY/romaneio/sanitize"
)

const (
	ellipsis = "..."
	// fallbackRunes 是测宽失败时 Fit 保留的字符数。
	fallbackRunes = 50
)

// Wrap 先清洗文本，再按 maxWidth 贪心折行。
// 文本中的换行符强制开始新行；单个超宽单词独占一行且不拆分；
// 某个单词测宽失败时跳过该单词并结束当前行。
// 返回值至少包含一行（空白输入返回 []string{""}）。
func Wrap(text string, maxWidth float64, font Font, size float64) []string {
	clean := strings.Trim(sanitize.Text(text), "\n")
	var lines []string
	for _, paragraph := range strings.Split(clean, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, wrapWords(words, maxWidth, font, size)...)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

func wrapWords(words []string, maxWidth float64, font Font, size float64) []string {
	var lines []string
	line := ""
	flush := func() {
		if line != "" {
			lines = append(lines, line)
			line = ""
		}
	}
	for _, word := range words {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		width, err := font.WidthOfTextAtSize(candidate, size)
		if err != nil {
			flush()
			continue
		}
		if width <= maxWidth || line == "" {
			line = candidate
			continue
		}
		flush()
		line = word
	}
	flush()
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

// Fit 返回能放进 maxWidth 的单行文本：原文可放下时原样返回，
// 否则二分查找最长前缀并追加省略号。测宽失败时退化为截取前 50 个字符。
func Fit(text string, maxWidth float64, font Font, size float64) string {
	clean := sanitize.Text(text)
	width, err := font.WidthOfTextAtSize(clean, size)
	if err == nil && width <= maxWidth {
		return clean
	}
	// 需要截断时按单行处理。
	clean = strings.TrimSpace(strings.ReplaceAll(clean, "\n", " "))
	if err != nil {
		return fallbackTruncate(clean)
	}

	runes := []rune(clean)
	lo, hi := 0, len(runes)
	best := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		candidate := strings.TrimRight(string(runes[:mid]), " ") + ellipsis
		w, err := font.WidthOfTextAtSize(candidate, size)
		if err != nil {
			return fallbackTruncate(clean)
		}
		if w <= maxWidth {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best < 0 {
		return ""
	}
	return strings.TrimRight(string(runes[:best]), " ") + ellipsis
}

func fallbackTruncate(s string) string {
	runes := []rune(s)
	if len(runes) <= fallbackRunes {
		return s
	}
	return string(runes[:fallbackRunes]) + ellipsis
}

// TextWidth 返回文本宽度，测宽失败时返回 0，用于对齐计算。
func TextWidth(font Font, text string, size float64) float64 {
	if font == nil || text == "" {
		return 0
	}
	w, err := font.WidthOfTextAtSize(text, size)
	if err != nil {
		return 0
	}
	return w
}
