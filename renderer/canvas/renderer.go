package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/romaneio/fonts"
	"github.com/ByLCY/romaneio/layout"
	"github.com/ByLCY/romaneio/renderer"
	"github.com/ByLCY/romaneio/sanitize"
)

const defaultStrokeWidth = 0.5

var transparent = color.RGBA{0, 0, 0, 0}

// Renderer draws laid-out documents via github.com/tdewolff/canvas.
// Layout coordinates are in pt with a bottom-left origin; canvas works in mm,
// so every coordinate is converted at the boundary.
type Renderer struct {
	families map[layout.Face]*canvas.FontFamily

	faceMu sync.Mutex
	faces  map[faceKey]*canvas.FontFace
}

var (
	_ renderer.Renderer     = (*Renderer)(nil)
	_ renderer.FontProvider = (*Renderer)(nil)
)

type faceKey struct {
	face  layout.Face
	size  float64
	color layout.Color
}

// Options configures the fonts used by the renderer.
type Options struct {
	Regular Resource
	Bold    Resource
}

// Resource can be provided by Bytes, by Path, or by the name of a built-in font.
type Resource struct {
	Bytes []byte
	Path  string
	Name  string
}

// NewRenderer creates a renderer with the built-in Go regular and bold fonts.
func NewRenderer() (*Renderer, error) {
	return NewRendererWithOptions(Options{})
}

// NewRendererWithOptions creates a renderer with injected font resources.
func NewRendererWithOptions(opts Options) (*Renderer, error) {
	if opts.Regular.empty() {
		opts.Regular.Name = fonts.Regular
	}
	if opts.Bold.empty() {
		opts.Bold.Name = fonts.Bold
	}
	r := &Renderer{
		families: map[layout.Face]*canvas.FontFamily{},
		faces:    map[faceKey]*canvas.FontFace{},
	}
	for face, res := range map[layout.Face]Resource{layout.Regular: opts.Regular, layout.Bold: opts.Bold} {
		data, err := res.load()
		if err != nil {
			return nil, err
		}
		family := canvas.NewFontFamily("romaneio-" + face.String())
		if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
			return nil, fmt.Errorf("加载%s字体失败: %w", face, err)
		}
		r.families[face] = family
	}
	return r, nil
}

func (res Resource) empty() bool {
	return len(res.Bytes) == 0 && res.Path == "" && res.Name == ""
}

func (res Resource) load() ([]byte, error) {
	switch {
	case len(res.Bytes) > 0:
		return res.Bytes, nil
	case res.Path != "":
		data, err := os.ReadFile(res.Path)
		if err != nil {
			return nil, fmt.Errorf("读取字体 %s 失败: %w", res.Path, err)
		}
		return data, nil
	default:
		return fonts.Load(res.Name)
	}
}

// Fonts returns measurement fonts backed by the same faces used for drawing.
func (r *Renderer) Fonts() layout.Fonts {
	return layout.Fonts{
		Regular: metrics{r: r, face: layout.Regular},
		Bold:    metrics{r: r, face: layout.Bold},
	}
}

// metrics implements layout.Font. Like a WinAnsi-only PDF font it rejects
// text outside the sanitizer's glyph set instead of measuring it.
type metrics struct {
	r    *Renderer
	face layout.Face
}

func (m metrics) WidthOfTextAtSize(text string, size float64) (float64, error) {
	if r, bad := sanitize.FirstUnsupported(text); bad {
		return 0, fmt.Errorf("字体无法编码字符 %q (U+%04X)", r, r)
	}
	face := m.r.fontFace(m.face, size, layout.Black)
	return face.TextWidth(text) * layout.MmToPt, nil
}

func (r *Renderer) fontFace(face layout.Face, sizePt float64, col layout.Color) *canvas.FontFace {
	key := faceKey{face: face, size: sizePt, color: col}
	r.faceMu.Lock()
	defer r.faceMu.Unlock()
	if f, ok := r.faces[key]; ok {
		return f
	}
	family, ok := r.families[face]
	if !ok {
		family = r.families[layout.Regular]
	}
	f := family.Face(sizePt, colorFromLayout(col), canvas.FontRegular, canvas.FontNormal)
	r.faces[key] = f
	return f
}

// Render renders the document into a PDF byte slice.
func (r *Renderer) Render(doc *layout.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("渲染文档为空")
	}
	pages := doc.Pages()
	if len(pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}

	var buf bytes.Buffer
	first := pages[0].Size()
	writer := pdf.New(&buf, toMm(first.Width), toMm(first.Height), nil)
	applyMeta(writer, doc.Meta())
	for i, page := range pages {
		w, h := toMm(page.Size().Width), toMm(page.Size().Height)
		if i > 0 {
			writer.NewPage(w, h)
		}
		c := canvas.New(w, h)
		ctx := canvas.NewContext(c)
		if err := r.drawPage(ctx, page); err != nil {
			return nil, fmt.Errorf("渲染第 %d 页失败: %w", page.Number(), err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func applyMeta(writer *pdf.PDF, meta layout.Meta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// drawPage replays the page ops in the order they were recorded.
func (r *Renderer) drawPage(ctx *canvas.Context, page *layout.Page) error {
	for _, op := range page.Ops() {
		switch {
		case op.Text != nil:
			if err := r.drawText(ctx, op.Text); err != nil {
				return err
			}
		case op.Line != nil:
			drawLine(ctx, op.Line)
		case op.Rect != nil:
			drawRect(ctx, op.Rect)
		case op.Image != nil:
			drawImage(ctx, op.Image)
		}
	}
	return nil
}

func (r *Renderer) drawText(ctx *canvas.Context, t *layout.TextOp) error {
	if ch, bad := sanitize.FirstUnsupported(t.Text); bad {
		return fmt.Errorf("文本 %q 含无法编码的字符 U+%04X", t.Text, ch)
	}
	face := r.fontFace(t.Face, t.Size, t.Color)
	// NewTextLine draws with its baseline on the given coordinate.
	ctx.DrawText(toMm(t.X), toMm(t.Y), canvas.NewTextLine(face, t.Text, canvas.Left))
	return nil
}

func drawLine(ctx *canvas.Context, ln *layout.LineOp) {
	w := ln.Thickness
	if w <= 0 {
		w = defaultStrokeWidth
	}
	ctx.SetFillColor(transparent)
	ctx.SetStrokeColor(colorFromLayout(ln.Color))
	ctx.SetStrokeWidth(toMm(w))
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(toMm(ln.To.X-ln.From.X), toMm(ln.To.Y-ln.From.Y))
	ctx.DrawPath(toMm(ln.From.X), toMm(ln.From.Y), p)
}

func drawRect(ctx *canvas.Context, rc *layout.RectOp) {
	if rc.FillColor != nil {
		ctx.SetFillColor(colorFromLayout(*rc.FillColor))
	} else {
		ctx.SetFillColor(transparent)
	}
	if rc.BorderColor != nil {
		w := rc.BorderWidth
		if w <= 0 {
			w = defaultStrokeWidth
		}
		ctx.SetStrokeColor(colorFromLayout(*rc.BorderColor))
		ctx.SetStrokeWidth(toMm(w))
	} else {
		ctx.SetStrokeColor(transparent)
		ctx.SetStrokeWidth(0)
	}
	ctx.DrawPath(toMm(rc.X), toMm(rc.Y), canvas.Rectangle(toMm(rc.Width), toMm(rc.Height)))
}

// drawImage draws an embedded image scaled uniformly to the op width.
func drawImage(ctx *canvas.Context, op *layout.ImageOp) {
	if op.Image == nil || op.Image.Data == nil || op.Width <= 0 {
		return
	}
	px := op.Image.Data.Bounds().Dx()
	if px <= 0 {
		return
	}
	dpmm := float64(px) / toMm(op.Width)
	ctx.DrawImage(toMm(op.X), toMm(op.Y), op.Image.Data, canvas.DPMM(dpmm))
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toMm 将点(pt)转换为毫米(mm)。
func toMm(pt float64) float64 { return pt * layout.PtToMm }
