package layout

import "encoding/json"

// Document 是一次生成过程独占的页面序列，纸张与边距在整个生命周期内不变。
type Document struct {
	cfg       Config
	meta      Meta
	pages     []*Page
	onNewPage func(p *Page)
}

// NewDocument 根据配置创建空文档，首页在第一次 AddPage/Current 时创建。
func NewDocument(cfg Config) (*Document, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Document{cfg: cfg}, nil
}

// Config 返回文档的排版上下文。
func (d *Document) Config() Config { return d.cfg }

// Fonts 返回文档共享的字体集。
func (d *Document) Fonts() Fonts { return d.cfg.Fonts }

// Meta 返回 PDF 元信息。
func (d *Document) Meta() Meta { return d.meta }

// SetMeta 设置 PDF 元信息。
func (d *Document) SetMeta(m Meta) { d.meta = m }

// OnNewPage 注册每次新建页面后执行的回调（例如绘制每页重复的页眉）。
// 回调可以绘制内容并推进游标，回调结束后的游标位置视为该页内容起点。
func (d *Document) OnNewPage(fn func(p *Page)) { d.onNewPage = fn }

// AddPage 新建页面并将其设为当前页，游标重置到页面顶部。
func (d *Document) AddPage() *Page {
	p := &Page{
		index:  len(d.pages),
		size:   d.cfg.Size,
		margin: d.cfg.Margin,
	}
	p.cursor = p.Top()
	d.pages = append(d.pages, p)
	if d.onNewPage != nil {
		d.onNewPage(p)
	}
	p.start = p.cursor
	return p
}

// Current 返回当前页，尚无页面时先创建首页。
func (d *Document) Current() *Page {
	if len(d.pages) == 0 {
		return d.AddPage()
	}
	return d.pages[len(d.pages)-1]
}

// Pages 返回全部页面（按顺序）。
func (d *Document) Pages() []*Page { return d.pages }

// PageCount 返回当前页数。
func (d *Document) PageCount() int { return len(d.pages) }

// Finalize 在内容生成完成后遍历全部页面，total 为最终页数。
// 用于绘制需要总页数的页脚，必须在不再新增页面之后调用。
func (d *Document) Finalize(fn func(p *Page, total int)) {
	total := len(d.pages)
	for _, p := range d.pages {
		fn(p, total)
	}
}

// Page 是可变的绘制面，拥有自己的游标。绘制方法只追加指令，不影响其他页面。
type Page struct {
	index  int
	size   PageSize
	margin Margin
	cursor float64
	start  float64
	ops    []Op
}

// Index 返回从 0 开始的页序号。
func (p *Page) Index() int { return p.index }

// Number 返回从 1 开始的页码。
func (p *Page) Number() int { return p.index + 1 }

// Size 返回纸张尺寸。
func (p *Page) Size() PageSize { return p.size }

// Margin 返回页边距。
func (p *Page) Margin() Margin { return p.margin }

// Top 返回内容区顶部（页高减上边距）。
func (p *Page) Top() float64 { return p.size.Height - p.margin.Top }

// Bottom 返回内容区底部（下边距）。
func (p *Page) Bottom() float64 { return p.margin.Bottom }

// Left 返回内容区左侧 x。
func (p *Page) Left() float64 { return p.margin.Left }

// ContentWidth 返回内容区宽度。
func (p *Page) ContentWidth() float64 {
	return p.size.Width - p.margin.Left - p.margin.Right
}

// Cursor 返回下一个可用内容的顶部位置。
func (p *Page) Cursor() float64 { return p.cursor }

// Remaining 返回游标到下边距之间的剩余高度。
func (p *Page) Remaining() float64 { return p.cursor - p.margin.Bottom }

// Fits 判断高度 h 的内容能否放在当前游标下方。
func (p *Page) Fits(h float64) bool { return p.cursor-h >= p.margin.Bottom }

// Advance 将游标下移 h。
func (p *Page) Advance(h float64) { p.cursor -= h }

// Fresh 表示自页面创建（含页眉回调）后尚未放置任何内容。
func (p *Page) Fresh() bool { return p.cursor == p.start }

// Ops 返回按绘制顺序记录的指令。
func (p *Page) Ops() []Op { return p.ops }

// DrawText 在基线 (x, y) 处绘制文本。调用方负责预先清洗文本。
func (p *Page) DrawText(text string, x, y float64, face Face, size float64, color Color) {
	if text == "" {
		return
	}
	p.ops = append(p.ops, Op{Text: &TextOp{Text: text, X: x, Y: y, Face: face, Size: size, Color: color}})
}

// DrawLine 绘制线段。
func (p *Page) DrawLine(from, to Point, thickness float64, color Color) {
	p.ops = append(p.ops, Op{Line: &LineOp{From: from, To: to, Thickness: thickness, Color: color}})
}

// DrawRectangle 绘制以 (x, y) 为左下角的矩形。
func (p *Page) DrawRectangle(x, y, width, height float64, opts RectOptions) {
	if opts.BorderColor == nil && opts.FillColor == nil {
		return
	}
	p.ops = append(p.ops, Op{Rect: &RectOp{
		X: x, Y: y, Width: width, Height: height,
		BorderColor: opts.BorderColor,
		BorderWidth: opts.BorderWidth,
		FillColor:   opts.FillColor,
	}})
}

// DrawImage 将已嵌入的图片绘制在以 (x, y) 为左下角的框内。
func (p *Page) DrawImage(img *Image, x, y, width, height float64) {
	if img == nil || img.Data == nil {
		return
	}
	p.ops = append(p.ops, Op{Image: &ImageOp{Image: img, X: x, Y: y, Width: width, Height: height}})
}

// MarshalJSON 输出调试用的页面快照。
func (p *Page) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Number int      `json:"number"`
		Size   PageSize `json:"size"`
		Margin Margin   `json:"margin"`
		Cursor float64  `json:"cursor"`
		Ops    []Op     `json:"ops"`
	}{p.Number(), p.size, p.margin, p.cursor, p.ops})
}
