package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/ByLCY/romaneio/assets"
	"github.com/ByLCY/romaneio/layout"
)

// monoFont 每个字符宽 0.5 × 字号。
type monoFont struct{}

func (monoFont) WidthOfTextAtSize(text string, size float64) (float64, error) {
	return float64(len([]rune(text))) * size * 0.5, nil
}

func testFonts() layout.Fonts {
	return layout.Fonts{Regular: monoFont{}, Bold: monoFont{}}
}

// fakeRenderer 记录最后一次渲染的文档。
type fakeRenderer struct {
	doc *layout.Document
	err error
}

func (r *fakeRenderer) Render(doc *layout.Document) ([]byte, error) {
	r.doc = doc
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-fake"), nil
}

// mapFetcher 按 URL 返回数据，未登记的 URL 失败。
type mapFetcher map[string][]byte

func (f mapFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	if data, ok := f[url]; ok {
		return data, nil
	}
	return nil, errors.New("unreachable")
}

var fixedNow = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

func newTestGenerator(t *testing.T, fetch mapFetcher) (*Generator, *fakeRenderer) {
	t.Helper()
	r := &fakeRenderer{}
	g, err := New(Options{
		Renderer: r,
		Fonts:    testFonts,
		Assets:   &assets.Resolver{Fetcher: fetch},
		Now:      func() time.Time { return fixedNow },
		Company:  "Transportes Teste",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g, r
}

func pageTexts(p *layout.Page) []string {
	var out []string
	for _, op := range p.Ops() {
		if op.Text != nil {
			out = append(out, op.Text.Text)
		}
	}
	return out
}

func contains(p *layout.Page, text string) bool {
	for _, s := range pageTexts(p) {
		if s == text {
			return true
		}
	}
	return false
}

func countText(p *layout.Page, text string) int {
	n := 0
	for _, s := range pageTexts(p) {
		if s == text {
			n++
		}
	}
	return n
}

// pageOf 返回首个包含 text 的页码（从 1 开始），找不到时返回 0。
func pageOf(doc *layout.Document, text string) int {
	for _, p := range doc.Pages() {
		if contains(p, text) {
			return p.Number()
		}
	}
	return 0
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 60, 20))); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func strPtr(s string) *string { return &s }

func manifest(orders, items int) RouteManifest {
	m := RouteManifest{
		RouteCode: "R-17",
		Date:      fixedNow,
		Driver:    Driver{Name: "João Silva", Phone: strPtr("11 99999-0000")},
		Vehicle:   &Vehicle{Plate: "ABC1D23", Model: "VUC"},
	}
	for i := 1; i <= orders; i++ {
		o := Order{
			Sequence: i,
			Number:   fmt.Sprintf("%d", 1000+i),
			Customer: Customer{Name: fmt.Sprintf("Cliente %d", i)},
			Address:  Address{Street: "Rua das Flores", Number: fmt.Sprint(i), Neighborhood: "Centro", City: "São Paulo", State: "SP"},
			Window:   &TimeWindow{Start: "08:00", End: "12:00"},
		}
		for j := 0; j < items; j++ {
			o.Items = append(o.Items, OrderItem{
				SKU:      fmt.Sprintf("SKU-%d-%d", i, j),
				Name:     "Cadeira estofada",
				Location: "A-01",
				Quantity: 2,
				Volumes:  1,
				WeightKg: 7.5,
			})
		}
		m.Orders = append(m.Orders, o)
	}
	return m
}
