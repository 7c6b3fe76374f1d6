package documents

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ByLCY/romaneio/assets"
	"github.com/ByLCY/romaneio/binding"
	"github.com/ByLCY/romaneio/docspec"
	"github.com/ByLCY/romaneio/layout"
	"github.com/ByLCY/romaneio/sanitize"
)

// 各单据共用的排版参数。
const (
	headerHeight  = 44.0
	logoMaxWidth  = 120.0
	titleSize     = 15.0
	metaSize      = 8.0
	bodySize      = 9.0
	tableSize     = 8.5
	tablePadding  = 3.0
	sectionGap    = 10.0
	footerSize    = 7.5
	disclaimerGap = 10.0
)

var groupFill = layout.Color{R: 230, G: 238, B: 255}

// session 是一次生成独占的状态：版式、文档与模板变量。
type session struct {
	g     *Generator
	spec  *docspec.Spec
	doc   *layout.Document
	fonts layout.Fonts
	code  string
	x     float64
	width float64
	vars  binding.Vars
}

// begin 创建文档并注册页眉。logo 在首页创建前解析，失败时退化为文字标识。
func (g *Generator) begin(ctx context.Context, kind Kind, ref, logoURL string) (*session, error) {
	spec, err := g.registry.Get(kind)
	if err != nil {
		return nil, err
	}
	size := g.pageSize
	if spec.PageSize != "" {
		if size, err = layout.LookupPageSize(spec.PageSize); err != nil {
			return nil, fmt.Errorf("%w: %v", docspec.ErrInvalidSpec, err)
		}
	}
	fonts := g.fonts()
	doc, err := layout.NewDocument(layout.Config{Size: size, Margin: g.margin, Fonts: fonts})
	if err != nil {
		return nil, fmt.Errorf("创建文档失败: %w", err)
	}
	code := documentCode(spec.CodePrefix, ref)
	s := &session{
		g:     g,
		spec:  spec,
		doc:   doc,
		fonts: fonts,
		code:  code,
		x:     g.margin.Left,
		width: doc.Config().ContentWidth(),
		vars:  binding.Vars{"code": code, "title": spec.Title},
	}
	doc.SetMeta(layout.Meta{
		Title:    sanitize.Text(spec.Title + " " + code),
		Author:   sanitize.Text(g.company),
		Subject:  sanitize.Text(spec.Title),
		Creator:  "romaneio",
		Keywords: []string{string(kind), code},
	})

	logo := g.assets.Image(ctx, logoSources(logoURL, g.logoURL)...)
	header := s.header(logo, g.now().In(g.loc))
	doc.OnNewPage(func(p *layout.Page) {
		if p.Index() > 0 && spec.RunningHeader != docspec.HeaderEveryPage {
			return
		}
		header.Draw(p, p.Cursor())
		p.Advance(header.Height)
	})
	doc.Current()
	return s, nil
}

func logoSources(urls ...string) []assets.Source {
	var out []assets.Source
	for _, u := range urls {
		if strings.TrimSpace(u) != "" {
			out = append(out, assets.URL(u))
		}
	}
	return out
}

func documentCode(prefix, ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case prefix == "":
		return ref
	case ref == "":
		return prefix
	default:
		return prefix + "-" + ref
	}
}

// header 绘制 logo（或文字标识）、标题、生成时间与单据编号，下方为分隔线。
func (s *session) header(logo *layout.Image, generatedAt time.Time) layout.Fragment {
	half := s.width / 2
	var brand layout.Fragment
	if logo != nil {
		brand = layout.Fragment{
			Name:   "logo",
			Height: headerHeight,
			Draw: func(p *layout.Page, top float64) {
				w, h := layout.Contain(logo.Width, logo.Height, logoMaxWidth, headerHeight)
				p.DrawImage(logo, s.x, top-(headerHeight+h)/2, w, h)
			},
		}
	} else {
		brand = layout.Paragraph(s.fonts, s.g.company, s.x, half, layout.Style{Face: layout.Bold, Size: 16, Color: layout.Accent, LineHeight: headerHeight})
	}
	right := layout.Style{Size: metaSize, Color: layout.Gray, Align: layout.AlignRight}
	info := layout.Stack("header-info",
		layout.Paragraph(s.fonts, s.spec.Title, s.x+half, half, layout.Style{Face: layout.Bold, Size: titleSize, Color: layout.Black, Align: layout.AlignRight}),
		layout.Paragraph(s.fonts, "Gerado em "+formatDateTime(generatedAt), s.x+half, half, right),
		layout.Paragraph(s.fonts, s.code, s.x+half, half, right),
	)
	return layout.Stack("header",
		layout.SideBySide("header-top", brand, info),
		layout.Rule(s.x, s.width, sectionGap, 0.8, layout.Accent),
	)
}

// kpis 按版式中的标签顺序生成指标条，缺少的数值显示为 "-"。
func (s *session) kpis(values ...string) []layout.Fragment {
	if len(s.spec.KPIs) == 0 {
		return nil
	}
	items := make([]layout.KPI, len(s.spec.KPIs))
	for i, label := range s.spec.KPIs {
		v := "-"
		if i < len(values) && values[i] != "" {
			v = values[i]
		}
		items[i] = layout.KPI{Label: label, Value: v}
	}
	return []layout.Fragment{layout.KPIStrip(s.fonts, items, s.x, s.width), layout.Spacer(sectionGap)}
}

// table 按版式中的表格定义创建铺满内容宽度的表格。
func (s *session) table(name string) (layout.Table, error) {
	def, ok := s.spec.Table(name)
	if !ok {
		return layout.Table{}, fmt.Errorf("%w: %s 未定义表格 %s", docspec.ErrInvalidSpec, s.spec.Kind, name)
	}
	return layout.Table{
		X:           s.x,
		Columns:     def.Layout(s.width),
		Fonts:       s.fonts,
		Size:        tableSize,
		Padding:     tablePadding,
		TextColor:   layout.Black,
		BorderColor: layout.LightGray,
		HeaderFill:  layout.Shade,
		GroupFill:   groupFill,
		Placeholder: s.spec.Placeholder,
	}, nil
}

// continuation 返回续页标题，模板为空时返回 nil。
func (s *session) continuation(vars binding.Vars) []layout.Fragment {
	if s.spec.Continuation == "" {
		return nil
	}
	text := binding.Interpolate(s.spec.Continuation, s.merge(vars))
	return []layout.Fragment{
		layout.Paragraph(s.fonts, text, s.x, s.width, layout.Style{Face: layout.Bold, Size: bodySize, Color: layout.Gray}),
		layout.Spacer(4),
	}
}

// orderVars 是模板中 ${order.*} 的取值，seq 为 0 时不提供 sequence。
func orderVars(number, customer string, seq int) binding.Vars {
	v := binding.Vars{"number": number, "customer": customer}
	if seq > 0 {
		v["sequence"] = seq
	}
	return v
}

// routeVars 是模板中 ${route.*} 的取值。
func routeVars(code, driver string, date time.Time) binding.Vars {
	return binding.Vars{"code": code, "driver": driver, "date": formatDate(date)}
}

func (s *session) merge(vars binding.Vars) binding.Vars {
	out := make(binding.Vars, len(s.vars)+len(vars))
	for k, v := range s.vars {
		out[k] = v
	}
	for k, v := range vars {
		out[k] = v
	}
	return out
}

// signatures 返回版式中的签名栏。
func (s *session) signatures() layout.Fragment {
	return layout.Signatures(s.fonts, s.spec.Signatures, s.x, s.width)
}

// section 返回带下划线的小节标题。
func (s *session) section(title string) layout.Fragment {
	return layout.Stack("section",
		layout.Paragraph(s.fonts, title, s.x, s.width, layout.Style{Face: layout.Bold, Size: 10, Color: layout.Accent}),
		layout.Rule(s.x, s.width, 6, 0.5, layout.LightGray),
	)
}

// notes 返回 "标签: 文本" 段落；文本为空时不占空间。
func (s *session) notes(label string, text *string) []layout.Fragment {
	value := sanitize.Ptr(text)
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return []layout.Fragment{layout.LabeledText(s.fonts, label, value, s.x, s.width, layout.Style{Size: bodySize, Color: layout.DarkGray})}
}

// finish 在全部内容放置后绘制页脚：免责声明、单据编号与页码。
func (s *session) finish() {
	footer := s.spec.Footer
	disclaimer := s.spec.Disclaimer
	font := s.fonts.Get(layout.Regular)
	s.doc.Finalize(func(p *layout.Page, total int) {
		y := p.Bottom() / 2
		if disclaimer != "" {
			line := layout.Fit(disclaimer, s.width, font, footerSize)
			w := layout.TextWidth(font, line, footerSize)
			p.DrawText(line, s.x+(s.width-w)/2, y+disclaimerGap, layout.Regular, footerSize, layout.Gray)
		}
		p.DrawLine(layout.Point{X: s.x, Y: p.Bottom() - 6}, layout.Point{X: s.x + s.width, Y: p.Bottom() - 6}, 0.5, layout.LightGray)
		p.DrawText(layout.Fit(s.code, s.width/3, font, footerSize), s.x, y, layout.Regular, footerSize, layout.Gray)
		if footer == "" {
			return
		}
		text := layout.Fit(binding.Interpolate(footer, s.merge(binding.Vars{"page": p.Number(), "total": total})), s.width/3, font, footerSize)
		w := layout.TextWidth(font, text, footerSize)
		p.DrawText(text, s.x+s.width-w, y, layout.Regular, footerSize, layout.Gray)
	})
}

// required 检查必填字段。
func required(kind Kind, fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s 缺少必填字段 %s", ErrInvalidInput, kind, strings.Join(missing, ", "))
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006 15:04")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006")
}

// formatNumber 以逗号作小数点，最多保留 decimals 位并去掉末尾的 0。
func formatNumber(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return strings.Replace(s, ".", ",", 1)
}

func formatQty(v float64, unit string) string {
	s := formatNumber(v, 3)
	if unit != "" {
		s += " " + unit
	}
	return s
}

func itoa(n int) string { return strconv.Itoa(n) }

// field 是信息栏中的一项。
type field struct {
	label string
	value string
}

// infoGrid 将字段按 cols 列排布，空值显示为 "-"。
func (s *session) infoGrid(cols int, fields ...field) layout.Fragment {
	if cols < 1 {
		cols = 1
	}
	colWidth := s.width / float64(cols)
	st := layout.Style{Size: bodySize, Color: layout.Black}
	var rows []layout.Fragment
	for i := 0; i < len(fields); i += cols {
		var cells []layout.Fragment
		for j := i; j < i+cols && j < len(fields); j++ {
			x := s.x + float64(j-i)*colWidth
			cells = append(cells, layout.LabeledText(s.fonts, fields[j].label, dash(fields[j].value), x, colWidth-8, st))
		}
		rows = append(rows, layout.SideBySide("info-row", cells...), layout.Spacer(3))
	}
	return layout.Stack("info", rows...)
}

func dash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func errEmpty(kind Kind, section string) error {
	return fmt.Errorf("%w: %s 的 %s 不能为空", ErrInvalidInput, kind, section)
}

func errMissingAt(kind Kind, section string, index int, name string) error {
	return fmt.Errorf("%w: %s 的 %s[%d] 缺少 %s", ErrInvalidInput, kind, section, index, name)
}

// withHeader 返回续页标题加表头，表格跨页时使用。
func withHeader(cont []layout.Fragment, tbl layout.Table) []layout.Fragment {
	out := make([]layout.Fragment, 0, len(cont)+1)
	out = append(out, cont...)
	return append(out, tbl.HeaderRow())
}
