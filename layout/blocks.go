package layout

import "github.com/ByLCY/romaneio/sanitize"

// 本文件提供测量阶段使用的通用区块构造函数。
// 构造函数只做测量并返回 Fragment，不向任何页面绘制内容；宽度均由调用方显式传入。

// Align 控制单行文本的水平对齐。
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// ParseAlign 解析 "left"/"center"/"right"，未知值按左对齐处理。
func ParseAlign(s string) Align {
	switch s {
	case "center":
		return AlignCenter
	case "right":
		return AlignRight
	default:
		return AlignLeft
	}
}

// Style 描述一段文本的字体、字号、颜色与行高。
type Style struct {
	Face       Face
	Size       float64
	Color      Color
	LineHeight float64
	Align      Align
}

// Leading 返回行高，未设置时为字号的 1.25 倍。
func (s Style) Leading() float64 {
	if s.LineHeight > 0 {
		return s.LineHeight
	}
	return s.Size * 1.25
}

// baseline 返回行顶为 lineTop 时文本的基线位置。
func baseline(lineTop, size, leading float64) float64 {
	return lineTop - (leading-size)/2 - size*0.8
}

// alignedX 返回对齐后的文本起点。
func alignedX(font Font, text string, size, x, width float64, align Align) float64 {
	switch align {
	case AlignRight:
		return x + width - TextWidth(font, text, size)
	case AlignCenter:
		return x + (width-TextWidth(font, text, size))/2
	default:
		return x
	}
}

// drawLines 从 top 开始逐行绘制已折好的文本。
func drawLines(p *Page, lines []string, fonts Fonts, st Style, x, width, top float64) {
	lead := st.Leading()
	font := fonts.Get(st.Face)
	for i, line := range lines {
		lineTop := top - float64(i)*lead
		p.DrawText(line, alignedX(font, line, st.Size, x, width, st.Align), baseline(lineTop, st.Size, lead), st.Face, st.Size, st.Color)
	}
}

// Paragraph 将文本按 width 折行。空文本仍占一行高度。
func Paragraph(fonts Fonts, text string, x, width float64, st Style) Fragment {
	lines := Wrap(text, width, fonts.Get(st.Face), st.Size)
	return Fragment{
		Name:   "paragraph",
		Height: float64(len(lines)) * st.Leading(),
		Draw: func(p *Page, top float64) {
			drawLines(p, lines, fonts, st, x, width, top)
		},
	}
}

// LabeledText 绘制 "标签: 值"，标签为粗体，值在标签右侧的剩余宽度内折行。
func LabeledText(fonts Fonts, label, value string, x, width float64, st Style) Fragment {
	labelText := sanitize.Text(label)
	if labelText != "" {
		labelText += ": "
	}
	labelWidth := TextWidth(fonts.Get(Bold), labelText, st.Size)
	valueWidth := width - labelWidth
	if valueWidth <= 0 {
		valueWidth = width
	}
	valueStyle := st
	valueStyle.Face = Regular
	valueStyle.Align = AlignLeft
	lines := Wrap(value, valueWidth, fonts.Get(Regular), st.Size)
	return Fragment{
		Name:   "labeled:" + label,
		Height: float64(len(lines)) * st.Leading(),
		Draw: func(p *Page, top float64) {
			lead := st.Leading()
			p.DrawText(labelText, x, baseline(top, st.Size, lead), Bold, st.Size, st.Color)
			drawLines(p, lines, fonts, valueStyle, x+labelWidth, valueWidth, top)
		},
	}
}

// Stack 将多个片段纵向排列为一个片段。
func Stack(name string, frags ...Fragment) Fragment {
	return Fragment{
		Name:   name,
		Height: sumHeights(frags),
		Draw: func(p *Page, top float64) {
			y := top
			for _, f := range frags {
				if f.Draw != nil {
					f.Draw(p, y)
				}
				y -= f.Height
			}
		},
	}
}

// SideBySide 将各自带有 x 坐标的片段并排放置，高度取最高者。
func SideBySide(name string, frags ...Fragment) Fragment {
	height := 0.0
	for _, f := range frags {
		if f.Height > height {
			height = f.Height
		}
	}
	return Fragment{
		Name:   name,
		Height: height,
		Draw: func(p *Page, top float64) {
			for _, f := range frags {
				if f.Draw != nil {
					f.Draw(p, top)
				}
			}
		},
	}
}

// Spacer 只占用垂直空间。
func Spacer(height float64) Fragment {
	return Fragment{Name: "spacer", Height: height}
}

// Rule 在高度为 gap 的区域中部绘制一条水平线。
func Rule(x, width, gap, thickness float64, color Color) Fragment {
	return Fragment{
		Name:   "rule",
		Height: gap,
		Draw: func(p *Page, top float64) {
			y := top - gap/2
			p.DrawLine(Point{X: x, Y: y}, Point{X: x + width, Y: y}, thickness, color)
		},
	}
}

// Strip 绘制带底色的单行横条，左侧文本截断以避开右侧文本。
func Strip(fonts Fonts, left, right string, x, width, height float64, fill Color, st Style) Fragment {
	const pad = 6.0
	font := fonts.Get(st.Face)
	rightText := Fit(right, width/2-pad, font, st.Size)
	rightWidth := TextWidth(font, rightText, st.Size)
	leftWidth := width - 2*pad - rightWidth
	if rightText != "" {
		leftWidth -= pad
	}
	leftText := Fit(left, leftWidth, font, st.Size)
	return Fragment{
		Name:   "strip",
		Height: height,
		Draw: func(p *Page, top float64) {
			p.DrawRectangle(x, top-height, width, height, RectOptions{FillColor: fill.Ptr()})
			y := baseline(top, st.Size, height)
			p.DrawText(leftText, x+pad, y, st.Face, st.Size, st.Color)
			p.DrawText(rightText, x+width-pad-rightWidth, y, st.Face, st.Size, st.Color)
		},
	}
}

// Column 描述表格的一列，Width 以 pt 为单位。
// Wrap 为 true 时单元格折行，否则截断为单行。
type Column struct {
	Key    string
	Header string
	Width  float64
	Wrap   bool
	Align  Align
}

// Table 测量并绘制表格的表头、数据行与分组标题。
type Table struct {
	X           float64
	Columns     []Column
	Fonts       Fonts
	Size        float64
	LineHeight  float64
	Padding     float64
	TextColor   Color
	BorderColor Color
	HeaderFill  Color
	GroupFill   Color
	Placeholder string
}

// Width 返回各列宽度之和。
func (t Table) Width() float64 {
	total := 0.0
	for _, c := range t.Columns {
		total += c.Width
	}
	return total
}

func (t Table) leading() float64 {
	if t.LineHeight > 0 {
		return t.LineHeight
	}
	return t.Size * 1.25
}

// cellLines 计算单元格的折行结果。折行后仍超宽的单词按 Fit 截断。
func (t Table) cellLines(col Column, text string, face Face) []string {
	inner := col.Width - 2*t.Padding
	font := t.Fonts.Get(face)
	if !col.Wrap {
		return []string{Fit(text, inner, font, t.Size)}
	}
	lines := Wrap(text, inner, font, t.Size)
	for i, line := range lines {
		if TextWidth(font, line, t.Size) > inner {
			lines[i] = Fit(line, inner, font, t.Size)
		}
	}
	return lines
}

// measureRow 返回每列的折行结果与行高（最多行数 × 行高 + 上下内边距）。
func (t Table) measureRow(cells map[string]string, face Face) ([][]string, float64) {
	all := make([][]string, len(t.Columns))
	maxLines := 1
	for i, col := range t.Columns {
		all[i] = t.cellLines(col, cells[col.Key], face)
		if len(all[i]) > maxLines {
			maxLines = len(all[i])
		}
	}
	return all, float64(maxLines)*t.leading() + 2*t.Padding
}

func (t Table) drawRow(p *Page, top, height float64, cells [][]string, face Face, fill *Color) {
	border := t.BorderColor
	if fill != nil {
		p.DrawRectangle(t.X, top-height, t.Width(), height, RectOptions{FillColor: fill})
	}
	x := t.X
	st := Style{Face: face, Size: t.Size, Color: t.TextColor, LineHeight: t.leading()}
	for i, col := range t.Columns {
		p.DrawRectangle(x, top-height, col.Width, height, RectOptions{BorderColor: &border, BorderWidth: 0.5})
		st.Align = col.Align
		drawLines(p, cells[i], t.Fonts, st, x+t.Padding, col.Width-2*t.Padding, top-t.Padding)
		x += col.Width
	}
}

// HeaderRow 返回粗体表头行。
func (t Table) HeaderRow() Fragment {
	headers := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		headers[c.Key] = c.Header
	}
	cells, height := t.measureRow(headers, Bold)
	fill := t.HeaderFill
	return Fragment{
		Name:   "table-header",
		Height: height,
		Draw: func(p *Page, top float64) {
			t.drawRow(p, top, height, cells, Bold, &fill)
		},
	}
}

// Row 返回一行数据，cells 以列 Key 索引。
func (t Table) Row(cells map[string]string) Fragment {
	lines, height := t.measureRow(cells, Regular)
	return Fragment{
		Name:   "table-row",
		Height: height,
		Draw: func(p *Page, top float64) {
			t.drawRow(p, top, height, lines, Regular, nil)
		},
	}
}

// Rows 返回全部数据行；没有数据时返回一行占位行，表格不会为空。
func (t Table) Rows(rows []map[string]string) []Fragment {
	if len(rows) == 0 {
		return []Fragment{t.PlaceholderRow()}
	}
	out := make([]Fragment, 0, len(rows))
	for _, r := range rows {
		out = append(out, t.Row(r))
	}
	return out
}

// PlaceholderRow 返回横跨全部列、居中显示占位文本的一行。
func (t Table) PlaceholderRow() Fragment {
	text := t.Placeholder
	if text == "" {
		text = "Nenhum item"
	}
	width := t.Width()
	line := Fit(text, width-2*t.Padding, t.Fonts.Get(Regular), t.Size)
	height := t.leading() + 2*t.Padding
	return Fragment{
		Name:   "table-placeholder",
		Height: height,
		Draw: func(p *Page, top float64) {
			border := t.BorderColor
			p.DrawRectangle(t.X, top-height, width, height, RectOptions{BorderColor: &border, BorderWidth: 0.5})
			st := Style{Face: Regular, Size: t.Size, Color: Gray, LineHeight: t.leading(), Align: AlignCenter}
			drawLines(p, []string{line}, t.Fonts, st, t.X+t.Padding, width-2*t.Padding, top-t.Padding)
		},
	}
}

// GroupHeader 返回横跨全部列的分组标题行，它总是与下一行位于同一页。
func (t Table) GroupHeader(text string) Fragment {
	width := t.Width()
	line := Fit(text, width-2*t.Padding, t.Fonts.Get(Bold), t.Size)
	height := t.leading() + 2*t.Padding
	fill := t.GroupFill
	return Fragment{
		Name:         "table-group",
		Height:       height,
		KeepWithNext: true,
		Draw: func(p *Page, top float64) {
			border := t.BorderColor
			p.DrawRectangle(t.X, top-height, width, height, RectOptions{BorderColor: &border, BorderWidth: 0.5, FillColor: &fill})
			st := Style{Face: Bold, Size: t.Size, Color: t.TextColor, LineHeight: t.leading()}
			drawLines(p, []string{line}, t.Fonts, st, t.X+t.Padding, width-2*t.Padding, top-t.Padding)
		},
	}
}

// KPI 是指标条中的一列。
type KPI struct {
	Label string
	Value string
}

const (
	kpiLabelSize = 7.5
	kpiValueSize = 14
	kpiPadding   = 6
)

// KPIStrip 绘制等宽的指标列：小号标签在上、粗体数值在下，
// 相邻列之间绘制竖线，最后一列之后不绘制。
func KPIStrip(fonts Fonts, items []KPI, x, width float64) Fragment {
	if len(items) == 0 {
		return Fragment{Name: "kpi"}
	}
	colWidth := width / float64(len(items))
	labelStyle := Style{Face: Regular, Size: kpiLabelSize, Color: Gray, Align: AlignCenter}
	valueStyle := Style{Face: Bold, Size: kpiValueSize, Color: Black, Align: AlignCenter}
	labels := make([]string, len(items))
	values := make([]string, len(items))
	inner := colWidth - 2*kpiPadding
	for i, it := range items {
		labels[i] = Fit(it.Label, inner, fonts.Get(Regular), kpiLabelSize)
		values[i] = Fit(it.Value, inner, fonts.Get(Bold), kpiValueSize)
	}
	height := 2*kpiPadding + labelStyle.Leading() + valueStyle.Leading()
	return Fragment{
		Name:   "kpi",
		Height: height,
		Draw: func(p *Page, top float64) {
			p.DrawRectangle(x, top-height, width, height, RectOptions{BorderColor: LightGray.Ptr(), BorderWidth: 0.5, FillColor: Shade.Ptr()})
			for i := range items {
				cx := x + float64(i)*colWidth
				if i > 0 {
					p.DrawLine(Point{X: cx, Y: top - kpiPadding}, Point{X: cx, Y: top - height + kpiPadding}, 0.5, LightGray)
				}
				drawLines(p, labels[i:i+1], fonts, labelStyle, cx+kpiPadding, inner, top-kpiPadding)
				drawLines(p, values[i:i+1], fonts, valueStyle, cx+kpiPadding, inner, top-kpiPadding-labelStyle.Leading())
			}
		},
	}
}

const (
	signatureSpace   = 36
	signatureCaption = 8.5
	signatureInset   = 18
)

// Signatures 绘制一到两条并排的签名线，线下居中显示说明文字。
// 超过两个说明时只使用前两个。
func Signatures(fonts Fonts, captions []string, x, width float64) Fragment {
	if len(captions) > 2 {
		captions = captions[:2]
	}
	if len(captions) == 0 {
		captions = []string{""}
	}
	colWidth := width / float64(len(captions))
	st := Style{Face: Regular, Size: signatureCaption, Color: DarkGray, Align: AlignCenter}
	lines := make([][]string, len(captions))
	captionLines := 1
	for i, c := range captions {
		lines[i] = Wrap(c, colWidth-2*signatureInset, fonts.Get(Regular), signatureCaption)
		if len(lines[i]) > captionLines {
			captionLines = len(lines[i])
		}
	}
	height := signatureSpace + float64(captionLines)*st.Leading() + 4
	return Fragment{
		Name:   "signatures",
		Height: height,
		Draw: func(p *Page, top float64) {
			y := top - signatureSpace
			for i := range captions {
				cx := x + float64(i)*colWidth
				p.DrawLine(Point{X: cx + signatureInset, Y: y}, Point{X: cx + colWidth - signatureInset, Y: y}, 0.7, DarkGray)
				drawLines(p, lines[i], fonts, st, cx+signatureInset, colWidth-2*signatureInset, y-2)
			}
		},
	}
}

// ImageBox 在固定框内等比缩放并居中绘制图片；图片为空时显示占位文本。
func ImageBox(fonts Fonts, img *Image, x, width, height float64, placeholder string) Fragment {
	if placeholder == "" {
		placeholder = "Foto indisponível"
	}
	st := Style{Face: Regular, Size: 9, Color: Gray, Align: AlignCenter}
	text := Fit(placeholder, width-8, fonts.Get(Regular), st.Size)
	return Fragment{
		Name:   "image",
		Height: height,
		Draw: func(p *Page, top float64) {
			bottom := top - height
			p.DrawRectangle(x, bottom, width, height, RectOptions{BorderColor: LightGray.Ptr(), BorderWidth: 0.5})
			if img == nil || img.Data == nil || img.Width <= 0 || img.Height <= 0 {
				lineTop := top - (height-st.Leading())/2
				drawLines(p, []string{text}, fonts, st, x+4, width-8, lineTop)
				return
			}
			w, h := Contain(img.Width, img.Height, width-4, height-4)
			p.DrawImage(img, x+(width-w)/2, bottom+(height-h)/2, w, h)
		},
	}
}

// Contain 返回等比缩放后恰好放入 maxW×maxH 的尺寸。
func Contain(pxW, pxH int, maxW, maxH float64) (float64, float64) {
	if pxW <= 0 || pxH <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0
	}
	scale := maxW / float64(pxW)
	if s := maxH / float64(pxH); s < scale {
		scale = s
	}
	return float64(pxW) * scale, float64(pxH) * scale
}
