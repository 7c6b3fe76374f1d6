// Package docspec 描述各类单据的版式：标题、编号前缀、指标条、表格列、签名栏与页脚模板。
// 版式以小型 DSL 书写，内置版式通过 go:embed 打包，也可以从目录加载覆盖。
package docspec

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ByLCY/romaneio/binding"
	"github.com/ByLCY/romaneio/layout"
)

// ErrInvalidSpec 表示版式文件语法正确但内容不合法。
var ErrInvalidSpec = errors.New("docspec: invalid spec")

// Kind 标识单据类型。
type Kind string

const (
	DeliverySheet   Kind = "delivery-sheet"
	SeparationSheet Kind = "separation-sheet"
	AssemblyReport  Kind = "assembly-report"
	RouteReport     Kind = "route-report"
	DeliveryProof   Kind = "delivery-proof"
)

// Kinds 返回全部单据类型。
func Kinds() []Kind {
	return []Kind{DeliverySheet, SeparationSheet, AssemblyReport, RouteReport, DeliveryProof}
}

// Valid 判断是否为已知类型。
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// HeaderMode 控制页眉只在首页绘制还是每页重复。
type HeaderMode int

const (
	HeaderFirstPage HeaderMode = iota
	HeaderEveryPage
)

const (
	maxKPIs       = 6
	maxSignatures = 2
	fractionSlack = 1.0001
)

// templateVars 列出模板中可以引用的变量：值为 nil 表示标量，否则为可用的子字段。
type templateVars map[string][]string

var (
	footerVars = templateVars{"page": nil, "total": nil, "code": nil, "title": nil}

	continuationVars = templateVars{
		"order": {"number", "customer", "sequence"},
		"route": {"code", "driver", "date"},
		"code":  nil,
		"title": nil,
	}
)

func (v templateVars) allows(path string) bool {
	root, field, nested := strings.Cut(path, ".")
	fields, ok := v[root]
	if !ok {
		return false
	}
	if !nested {
		return fields == nil
	}
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

func (v templateVars) String() string {
	var names []string
	for root, fields := range v {
		if fields == nil {
			names = append(names, root)
			continue
		}
		for _, f := range fields {
			names = append(names, root+"."+f)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// checkTemplate 确认模板只引用 allowed 中的变量。
func checkTemplate(kind Kind, key, text string, allowed templateVars) error {
	for _, path := range binding.Placeholders(text) {
		if !allowed.allows(path) {
			return fmt.Errorf("%w: %s.%s 引用了未知变量 %q（可用 %s）", ErrInvalidSpec, kind, key, path, allowed)
		}
	}
	return nil
}

// Column 是版式中的一列，Fraction 为占表格宽度的比例。
type Column struct {
	Key      string
	Header   string
	Fraction float64
	Wrap     bool
	Align    layout.Align
}

// Table 是版式中的一张表。
type Table struct {
	Name    string
	Columns []Column
}

// Layout 按给定表格宽度换算出排版用的列。
func (t Table) Layout(width float64) []layout.Column {
	cols := make([]layout.Column, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = layout.Column{
			Key:    c.Key,
			Header: c.Header,
			Width:  c.Fraction * width,
			Wrap:   c.Wrap,
			Align:  c.Align,
		}
	}
	return cols
}

// Spec 是一种单据的完整版式。
type Spec struct {
	Kind          Kind
	Title         string
	CodePrefix    string
	RunningHeader HeaderMode
	PageSize      string
	KPIs          []string
	Signatures    []string
	Receipt       string
	Continuation  string
	Footer        string
	Disclaimer    string
	Placeholder   string
	PhotosPerPage int
	tables        map[string]Table
}

// Table 按名称查找表格定义。
func (s *Spec) Table(name string) (Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// TableNames 返回已定义的表格名称（排序后）。
func (s *Spec) TableNames() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate 检查版式是否可用于排版。
func (s *Spec) Validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: 未知单据类型 %q", ErrInvalidSpec, s.Kind)
	}
	if s.Title == "" {
		return fmt.Errorf("%w: %s 缺少 title", ErrInvalidSpec, s.Kind)
	}
	if len(s.KPIs) > maxKPIs {
		return fmt.Errorf("%w: %s 指标数量 %d 超过上限 %d", ErrInvalidSpec, s.Kind, len(s.KPIs), maxKPIs)
	}
	if len(s.Signatures) > maxSignatures {
		return fmt.Errorf("%w: %s 签名栏数量 %d 超过上限 %d", ErrInvalidSpec, s.Kind, len(s.Signatures), maxSignatures)
	}
	if s.PhotosPerPage < 0 {
		return fmt.Errorf("%w: %s photos-per-page 不能为负数", ErrInvalidSpec, s.Kind)
	}
	if err := checkTemplate(s.Kind, "footer", s.Footer, footerVars); err != nil {
		return err
	}
	if err := checkTemplate(s.Kind, "continuation", s.Continuation, continuationVars); err != nil {
		return err
	}
	if s.PageSize != "" {
		if _, err := layout.LookupPageSize(s.PageSize); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidSpec, s.Kind, err)
		}
	}
	for name, t := range s.tables {
		if len(t.Columns) == 0 {
			return fmt.Errorf("%w: %s 表格 %s 没有列", ErrInvalidSpec, s.Kind, name)
		}
		seen := map[string]bool{}
		total := 0.0
		for _, c := range t.Columns {
			if seen[c.Key] {
				return fmt.Errorf("%w: %s 表格 %s 列 %s 重复", ErrInvalidSpec, s.Kind, name, c.Key)
			}
			seen[c.Key] = true
			if c.Fraction <= 0 || c.Fraction > 1 || math.IsNaN(c.Fraction) {
				return fmt.Errorf("%w: %s 表格 %s 列 %s 宽度比例 %g 超出 (0,1]", ErrInvalidSpec, s.Kind, name, c.Key, c.Fraction)
			}
			total += c.Fraction
		}
		if total > fractionSlack {
			return fmt.Errorf("%w: %s 表格 %s 列宽比例之和 %g 超过 1", ErrInvalidSpec, s.Kind, name, total)
		}
	}
	return nil
}

// Compile 将语法树转换为版式并校验。
func Compile(file *File) ([]*Spec, error) {
	if file == nil {
		return nil, nil
	}
	specs := make([]*Spec, 0, len(file.Documents))
	for _, node := range file.Documents {
		spec, err := compileDocument(node)
		if err != nil {
			return nil, err
		}
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func compileDocument(node *DocumentNode) (*Spec, error) {
	spec := &Spec{Kind: Kind(node.Kind), tables: map[string]Table{}}
	for _, entry := range node.Entries {
		switch {
		case entry.Table != nil:
			t, err := compileTable(spec.Kind, entry.Table)
			if err != nil {
				return nil, err
			}
			if _, dup := spec.tables[t.Name]; dup {
				return nil, fmt.Errorf("%w: %s 表格 %s 重复定义 (%s)", ErrInvalidSpec, spec.Kind, t.Name, entry.Table.Pos)
			}
			spec.tables[t.Name] = t
		case entry.Assignment != nil:
			if err := assign(spec, entry.Assignment); err != nil {
				return nil, err
			}
		}
	}
	return spec, nil
}

func compileTable(kind Kind, node *TableNode) (Table, error) {
	t := Table{Name: node.Name}
	for _, col := range node.Columns {
		c := Column{Key: col.Key, Header: string(col.Header), Fraction: col.Fraction}
		for _, flag := range col.Flags {
			switch flag {
			case "wrap":
				c.Wrap = true
			case "fit":
				c.Wrap = false
			case "left", "center", "right":
				c.Align = layout.ParseAlign(flag)
			default:
				return Table{}, fmt.Errorf("%w: %s 列 %s 未知选项 %q (%s)", ErrInvalidSpec, kind, col.Key, flag, col.Pos)
			}
		}
		t.Columns = append(t.Columns, c)
	}
	return t, nil
}

func assign(spec *Spec, a *Assignment) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s.%s: %s (%s)", ErrInvalidSpec, spec.Kind, a.Key, fmt.Sprintf(format, args...), a.Pos)
	}
	str := func(dst *string) error {
		if a.Value.String == nil {
			return fail("需要字符串")
		}
		*dst = string(*a.Value.String)
		return nil
	}
	list := func(dst *[]string) error {
		if a.Value.List == nil {
			return fail("需要字符串列表")
		}
		out := make([]string, 0, len(a.Value.List.Items))
		for _, item := range a.Value.List.Items {
			if item.String == nil {
				return fail("列表元素需要字符串")
			}
			out = append(out, string(*item.String))
		}
		*dst = out
		return nil
	}

	switch a.Key {
	case "title":
		return str(&spec.Title)
	case "code-prefix":
		return str(&spec.CodePrefix)
	case "page-size":
		return str(&spec.PageSize)
	case "receipt":
		return str(&spec.Receipt)
	case "continuation":
		return str(&spec.Continuation)
	case "footer":
		return str(&spec.Footer)
	case "disclaimer":
		return str(&spec.Disclaimer)
	case "placeholder":
		return str(&spec.Placeholder)
	case "kpis":
		return list(&spec.KPIs)
	case "signatures":
		return list(&spec.Signatures)
	case "running-header":
		if a.Value.Ident == nil {
			return fail("需要 first-page 或 every-page")
		}
		switch *a.Value.Ident {
		case "first-page":
			spec.RunningHeader = HeaderFirstPage
		case "every-page":
			spec.RunningHeader = HeaderEveryPage
		default:
			return fail("未知取值 %q", *a.Value.Ident)
		}
		return nil
	case "photos-per-page":
		if a.Value.Number == nil || *a.Value.Number != math.Trunc(*a.Value.Number) {
			return fail("需要整数")
		}
		spec.PhotosPerPage = int(*a.Value.Number)
		return nil
	default:
		return fail("未知属性")
	}
}
