package layout

import (
	"errors"
	"strings"
	"testing"
)

// monoFont 是等宽测试字体：每个字符宽 0.5 × 字号。
// failOn 非空时，包含该子串的文本测宽失败。
type monoFont struct {
	failOn string
}

var errGlyph = errors.New("glyph not supported")

func (f monoFont) WidthOfTextAtSize(text string, size float64) (float64, error) {
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return 0, errGlyph
	}
	return float64(len([]rune(text))) * size * 0.5, nil
}

// brokenFont 对任何文本都返回错误。
type brokenFont struct{}

func (brokenFont) WidthOfTextAtSize(string, float64) (float64, error) {
	return 0, errGlyph
}

func testFonts() Fonts {
	return Fonts{Regular: monoFont{}, Bold: monoFont{}}
}

func testConfig() Config {
	return Config{
		Size:   A4,
		Margin: Margin{Top: 40, Right: 40, Bottom: 40, Left: 40},
		Fonts:  testFonts(),
	}
}

func newTestDocument(t *testing.T) *Document {
	t.Helper()
	doc, err := NewDocument(testConfig())
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	return doc
}

// texts 返回页面上按顺序绘制的文本。
func texts(p *Page) []string {
	var out []string
	for _, op := range p.Ops() {
		if op.Text != nil {
			out = append(out, op.Text.Text)
		}
	}
	return out
}

func countLines(p *Page) int {
	n := 0
	for _, op := range p.Ops() {
		if op.Line != nil {
			n++
		}
	}
	return n
}

// fixedRow 返回固定高度、绘制一段文本的片段。
func fixedRow(label string, h float64) Fragment {
	return Fragment{
		Name:   label,
		Height: h,
		Draw: func(p *Page, top float64) {
			p.DrawText(label, 40, top-h+2, Regular, 10, Black)
		},
	}
}
