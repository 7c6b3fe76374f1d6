package layout

import (
	"fmt"
	"image"
	"strings"
)

// 该文件定义排版引擎的基础类型：字体、颜色、页面尺寸与绘制指令。
// 坐标系原点在左下角，y 向上增长，单位 pt。

// Face 标识文档字体集中的字重。
type Face int

const (
	Regular Face = iota
	Bold
)

func (f Face) String() string {
	if f == Bold {
		return "bold"
	}
	return "regular"
}

// Font 提供指定字号下的文本宽度。对超出字形子集的文本可以返回错误。
type Font interface {
	WidthOfTextAtSize(text string, size float64) (float64, error)
}

// Fonts 是一次文档生成共享的字体集（至少包含常规与粗体）。
type Fonts struct {
	Regular Font
	Bold    Font
}

// Get 返回对应字重的字体，缺失粗体时回退到常规字体。
func (f Fonts) Get(face Face) Font {
	if face == Bold && f.Bold != nil {
		return f.Bold
	}
	return f.Regular
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// 常用颜色。
var (
	Black     = Color{R: 20, G: 20, B: 20}
	DarkGray  = Color{R: 70, G: 70, B: 70}
	Gray      = Color{R: 120, G: 120, B: 120}
	LightGray = Color{R: 200, G: 200, B: 200}
	Shade     = Color{R: 242, G: 242, B: 242}
	White     = Color{R: 255, G: 255, B: 255}
	Accent    = Color{R: 15, G: 98, B: 254}
)

// Ptr 返回颜色指针，便于填充 RectOptions。
func (c Color) Ptr() *Color { return &c }

// Point 表示页面上的一个点。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Margin 以 pt 为单位。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// PageSize 以 pt 为单位。
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// 常用纸张尺寸。
var (
	A4     = PageSize{Width: 595.28, Height: 841.89}
	A5     = PageSize{Width: 419.53, Height: 595.28}
	Letter = PageSize{Width: 612, Height: 792}
)

var pagePresets = map[string]PageSize{
	"A4":     A4,
	"A5":     A5,
	"LETTER": Letter,
}

// LookupPageSize 按名称查找纸张尺寸，支持 "A4"、"A4-landscape" 等写法。
func LookupPageSize(name string) (PageSize, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	landscape := false
	if trimmed, ok := strings.CutSuffix(key, "-LANDSCAPE"); ok {
		key = trimmed
		landscape = true
	}
	size, ok := pagePresets[key]
	if !ok {
		return PageSize{}, fmt.Errorf("暂不支持的纸张尺寸：%s", name)
	}
	if landscape {
		size.Width, size.Height = size.Height, size.Width
	}
	return size, nil
}

// Config 是单次文档生成的显式上下文：纸张、边距与字体。
// 同一文档生命周期内保持不变。
type Config struct {
	Size   PageSize
	Margin Margin
	Fonts  Fonts
}

// ContentWidth 返回左右边距之间的可用宽度。
func (c Config) ContentWidth() float64 {
	return c.Size.Width - c.Margin.Left - c.Margin.Right
}

// Validate 检查配置是否可以用于排版。
func (c Config) Validate() error {
	if c.Size.Width <= 0 || c.Size.Height <= 0 {
		return fmt.Errorf("纸张尺寸无效: %gx%g", c.Size.Width, c.Size.Height)
	}
	if c.Fonts.Regular == nil || c.Fonts.Bold == nil {
		return fmt.Errorf("字体集缺少常规或粗体字体")
	}
	if c.Margin.Left+c.Margin.Right >= c.Size.Width || c.Margin.Top+c.Margin.Bottom >= c.Size.Height {
		return fmt.Errorf("边距超出纸张范围")
	}
	return nil
}

// Meta 保存 PDF 元信息。
type Meta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}

// Image 是已嵌入的图片句柄，Width/Height 为源图像素。
type Image struct {
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Format string      `json:"format"`
	Data   image.Image `json:"-"`
}

// RectOptions 控制矩形的边框与填充；颜色为空表示不描边或不填充。
type RectOptions struct {
	BorderColor *Color
	BorderWidth float64
	FillColor   *Color
}

// TextOp 在基线 (X, Y) 处绘制一行文本。
type TextOp struct {
	Text  string  `json:"text"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Face  Face    `json:"face"`
	Size  float64 `json:"size"`
	Color Color   `json:"color"`
}

// LineOp 表示一条线段。
type LineOp struct {
	From      Point   `json:"from"`
	To        Point   `json:"to"`
	Thickness float64 `json:"thickness"`
	Color     Color   `json:"color"`
}

// RectOp 表示一个矩形，(X, Y) 为左下角。
type RectOp struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	BorderColor *Color  `json:"borderColor,omitempty"`
	BorderWidth float64 `json:"borderWidth,omitempty"`
	FillColor   *Color  `json:"fillColor,omitempty"`
}

// ImageOp 将图片绘制在以 (X, Y) 为左下角的框内。
type ImageOp struct {
	Image  *Image  `json:"image"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Op 是页面上按顺序记录的一条绘制指令，四个字段有且仅有一个非空。
type Op struct {
	Text  *TextOp  `json:"text,omitempty"`
	Line  *LineOp  `json:"line,omitempty"`
	Rect  *RectOp  `json:"rect,omitempty"`
	Image *ImageOp `json:"image,omitempty"`
}
