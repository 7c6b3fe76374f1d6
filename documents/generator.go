// Package documents 将各类物流单据的输入数据排版为 PDF。
// 每次生成都创建独立的 layout.Document，Generator 本身只持有只读配置，可以并发使用。
package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ByLCY/romaneio/assets"
	"github.com/ByLCY/romaneio/docspec"
	"github.com/ByLCY/romaneio/layout"
	"github.com/ByLCY/romaneio/renderer"
	canvasrenderer "github.com/ByLCY/romaneio/renderer/canvas"
)

var (
	// ErrInvalidInput 表示输入数据缺少必填内容或无法解析。
	ErrInvalidInput = errors.New("documents: invalid input")
	// ErrRender 表示最终序列化为 PDF 失败。
	ErrRender = errors.New("documents: render failed")
)

// Kind 标识单据类型。
type Kind = docspec.Kind

// 支持的单据类型。
const (
	KindDeliverySheet   = docspec.DeliverySheet
	KindSeparationSheet = docspec.SeparationSheet
	KindAssemblyReport  = docspec.AssemblyReport
	KindRouteReport     = docspec.RouteReport
	KindDeliveryProof   = docspec.DeliveryProof
)

// DefaultMaxPhotosPerPage 是交付凭证每页照片数的默认上限（2×2 网格）。
const DefaultMaxPhotosPerPage = 4

// DefaultMargin 为页面留出页脚空间。
var DefaultMargin = layout.Margin{Top: 36, Right: 36, Bottom: 48, Left: 36}

// Options 配置 Generator。零值字段使用默认值。
type Options struct {
	Registry *docspec.Registry
	Renderer renderer.Renderer
	// Fonts 为每次生成提供字体集，缺省时使用 Renderer 的 FontProvider。
	Fonts    func() layout.Fonts
	Assets   *assets.Resolver
	Maps     assets.MapConfig
	Logger   *zap.Logger
	Now      func() time.Time
	Location *time.Location
	PageSize layout.PageSize
	Margin   *layout.Margin
	// Company 在没有可用 logo 时作为文字标识。
	Company string
	// LogoURL 是输入数据未指定 logo 时使用的默认地址。
	LogoURL          string
	MaxPhotosPerPage int
}

// Generator 生成各类单据。
type Generator struct {
	registry  *docspec.Registry
	renderer  renderer.Renderer
	fonts     func() layout.Fonts
	assets    *assets.Resolver
	maps      assets.MapConfig
	logger    *zap.Logger
	now       func() time.Time
	loc       *time.Location
	pageSize  layout.PageSize
	margin    layout.Margin
	company   string
	logoURL   string
	maxPhotos int
}

// New 根据选项创建 Generator。
func New(opts Options) (*Generator, error) {
	g := &Generator{
		registry:  opts.Registry,
		renderer:  opts.Renderer,
		fonts:     opts.Fonts,
		assets:    opts.Assets,
		maps:      opts.Maps,
		logger:    opts.Logger,
		now:       opts.Now,
		loc:       opts.Location,
		pageSize:  opts.PageSize,
		margin:    DefaultMargin,
		company:   opts.Company,
		logoURL:   opts.LogoURL,
		maxPhotos: opts.MaxPhotosPerPage,
	}
	if g.registry == nil {
		reg, err := docspec.Builtin()
		if err != nil {
			return nil, fmt.Errorf("加载内置版式失败: %w", err)
		}
		g.registry = reg
	}
	if g.renderer == nil {
		r, err := canvasrenderer.NewRenderer()
		if err != nil {
			return nil, fmt.Errorf("创建渲染器失败: %w", err)
		}
		g.renderer = r
	}
	if g.fonts == nil {
		fp, ok := g.renderer.(renderer.FontProvider)
		if !ok {
			return nil, fmt.Errorf("渲染器未提供字体，需要设置 Options.Fonts")
		}
		g.fonts = fp.Fonts
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.assets == nil {
		g.assets = assets.NewResolver(assets.DefaultTimeout, nil, g.logger)
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.loc == nil {
		g.loc = time.UTC
	}
	if g.pageSize.Width <= 0 || g.pageSize.Height <= 0 {
		g.pageSize = layout.A4
	}
	if opts.Margin != nil {
		g.margin = *opts.Margin
	}
	if g.company == "" {
		g.company = "Romaneio"
	}
	if g.maxPhotos <= 0 {
		g.maxPhotos = DefaultMaxPhotosPerPage
	}
	return g, nil
}

// Kinds 返回可生成的单据类型。
func (g *Generator) Kinds() []Kind {
	return g.registry.Kinds()
}

// Generate 解析 JSON 输入并生成对应类型的单据。
func (g *Generator) Generate(ctx context.Context, kind Kind, input json.RawMessage) ([]byte, error) {
	switch kind {
	case KindDeliverySheet:
		var in RouteManifest
		if err := decode(input, &in); err != nil {
			return nil, err
		}
		return g.DeliverySheet(ctx, in)
	case KindSeparationSheet:
		var in PickList
		if err := decode(input, &in); err != nil {
			return nil, err
		}
		return g.SeparationSheet(ctx, in)
	case KindAssemblyReport:
		var in AssemblyReport
		if err := decode(input, &in); err != nil {
			return nil, err
		}
		return g.AssemblyReport(ctx, in)
	case KindRouteReport:
		var in RouteReport
		if err := decode(input, &in); err != nil {
			return nil, err
		}
		return g.RouteReport(ctx, in)
	case KindDeliveryProof:
		var in DeliveryProof
		if err := decode(input, &in); err != nil {
			return nil, err
		}
		return g.DeliveryProof(ctx, in)
	default:
		return nil, fmt.Errorf("%w: 未知单据类型 %q", ErrInvalidInput, kind)
	}
}

func decode(input json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(input)) == 0 {
		return fmt.Errorf("%w: 输入为空", ErrInvalidInput)
	}
	if err := json.Unmarshal(input, dst); err != nil {
		return fmt.Errorf("%w: 解析 JSON 失败: %v", ErrInvalidInput, err)
	}
	return nil
}

// Layout 只执行排版，返回未序列化的文档，供调试输出使用。
func (g *Generator) Layout(ctx context.Context, kind Kind, input json.RawMessage) (*layout.Document, error) {
	var (
		s   *session
		err error
	)
	switch kind {
	case KindDeliverySheet:
		var in RouteManifest
		if err = decode(input, &in); err == nil {
			s, err = g.layoutDeliverySheet(ctx, in)
		}
	case KindSeparationSheet:
		var in PickList
		if err = decode(input, &in); err == nil {
			s, err = g.layoutSeparationSheet(ctx, in)
		}
	case KindAssemblyReport:
		var in AssemblyReport
		if err = decode(input, &in); err == nil {
			s, err = g.layoutAssemblyReport(ctx, in)
		}
	case KindRouteReport:
		var in RouteReport
		if err = decode(input, &in); err == nil {
			s, err = g.layoutRouteReport(ctx, in)
		}
	case KindDeliveryProof:
		var in DeliveryProof
		if err = decode(input, &in); err == nil {
			s, err = g.layoutDeliveryProof(ctx, in)
		}
	default:
		err = fmt.Errorf("%w: 未知单据类型 %q", ErrInvalidInput, kind)
	}
	if err != nil {
		return nil, err
	}
	return s.doc, nil
}

// Render 将 Layout 返回的文档序列化为 PDF。
func (g *Generator) Render(doc *layout.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: 文档为空", ErrRender)
	}
	data, err := g.renderer.Render(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return data, nil
}

// render 序列化一次生成的结果。
func (g *Generator) render(s *session, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	data, err := g.Render(s.doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.spec.Kind, err)
	}
	g.logger.Debug("[Documents] Rendered",
		zap.String("kind", string(s.spec.Kind)),
		zap.String("code", s.code),
		zap.Int("pages", s.doc.PageCount()),
		zap.Int("bytes", len(data)),
	)
	return data, nil
}
