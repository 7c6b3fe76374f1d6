package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ByLCY/romaneio/layout"
	canvasrenderer "github.com/ByLCY/romaneio/renderer/canvas"
)

func TestDeliverySheetFooterReportsTotal(t *testing.T) {
	g, r := newTestGenerator(t, nil)
	if _, err := g.DeliverySheet(context.Background(), manifest(40, 4)); err != nil {
		t.Fatalf("DeliverySheet: %v", err)
	}
	total := r.doc.PageCount()
	if total < 2 {
		t.Fatalf("40 个订单应跨多页, got %d", total)
	}
	for _, p := range r.doc.Pages() {
		want := fmt.Sprintf("Página %d de %d", p.Number(), total)
		if !contains(p, want) {
			t.Fatalf("第 %d 页缺少页脚 %q", p.Number(), want)
		}
		if !contains(p, "Romaneio de Entrega") {
			t.Fatalf("第 %d 页缺少每页页眉", p.Number())
		}
	}
}

func TestDeliverySheetKPIsAndCode(t *testing.T) {
	g, r := newTestGenerator(t, nil)
	if _, err := g.DeliverySheet(context.Background(), manifest(2, 3)); err != nil {
		t.Fatalf("DeliverySheet: %v", err)
	}
	first := r.doc.Pages()[0]
	for _, want := range []string{"Pedidos", "Itens", "Volumes", "Peso (kg)", "6", "45", "RE-R-17", "Gerado em 05/03/2024 14:30", "Transportes Teste"} {
		if !contains(first, want) {
			t.Fatalf("首页缺少 %q: %v", want, pageTexts(first))
		}
	}
	if got := countText(first, "Recebido por (nome / documento)"); got != 2 {
		t.Fatalf("每个订单应有一条签收线, got %d", got)
	}
	if meta := r.doc.Meta(); meta.Title != "Romaneio de Entrega RE-R-17" {
		t.Fatalf("meta title = %q", meta.Title)
	}
}

func TestDeliverySheetEmptyItemsRendersPlaceholder(t *testing.T) {
	g, r := newTestGenerator(t, nil)
	m := manifest(1, 0)
	if _, err := g.DeliverySheet(context.Background(), m); err != nil {
		t.Fatalf("DeliverySheet: %v", err)
	}
	if pageOf(r.doc, "Nenhum item neste pedido") == 0 {
		t.Fatalf("空商品列表应显示占位行")
	}
}

func TestDeliverySheetContinuationOnItemBreak(t *testing.T) {
	g, r := newTestGenerator(t, nil)
	if _, err := g.DeliverySheet(context.Background(), manifest(1, 80)); err != nil {
		t.Fatalf("DeliverySheet: %v", err)
	}
	if r.doc.PageCount() < 2 {
		t.Fatalf("80 个商品应跨页")
	}
	p2 := r.doc.Pages()[1]
	if !contains(p2, "(continuação - Pedido #1001)") {
		t.Fatalf("续页缺少续页标题: %v", pageTexts(p2))
	}
	if !contains(p2, "Produto") {
		t.Fatalf("续页应重绘表头")
	}
}

func TestDeliverySheetObservationAddsWholeLines(t *testing.T) {
	g, _ := newTestGenerator(t, nil)
	s, err := g.begin(context.Background(), KindDeliverySheet, "R-1", "")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	tbl, err := s.table("items")
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	o := manifest(1, 2).Orders[0]
	base := s.orderPlan(tbl, o).Height()
	o.Notes = strPtr(strings.Repeat("Cliente pede para ligar antes ", 10))
	withNotes := s.orderPlan(tbl, o).Height()

	lead := layout.Style{Size: bodySize}.Leading()
	lines := (withNotes - base) / lead
	if lines < 2 || math.Abs(lines-math.Round(lines)) > 1e-9 {
		t.Fatalf("观察文本应增加整数行高度, got %g 行", lines)
	}
	o.Notes = strPtr("   ")
	if h := s.orderPlan(tbl, o).Height(); h != base {
		t.Fatalf("空白备注不应占空间: %g != %g", h, base)
	}
}

func TestDeliverySheetLogo(t *testing.T) {
	g, r := newTestGenerator(t, mapFetcher{"https://cdn.example/logo.png": pngBytes(t)})
	m := manifest(1, 1)
	m.LogoURL = "https://cdn.example/logo.png"
	if _, err := g.DeliverySheet(context.Background(), m); err != nil {
		t.Fatalf("DeliverySheet: %v", err)
	}
	first := r.doc.Pages()[0]
	images := 0
	for _, op := range first.Ops() {
		if op.Image != nil {
			images++
		}
	}
	if images != 1 {
		t.Fatalf("应绘制 logo, images=%d", images)
	}
	if contains(first, "Transportes Teste") {
		t.Fatalf("有 logo 时不应绘制文字标识")
	}
}

func TestInvalidInput(t *testing.T) {
	g, _ := newTestGenerator(t, nil)
	ctx := context.Background()
	cases := map[string]func() error{
		"no orders": func() error {
			_, err := g.DeliverySheet(ctx, RouteManifest{RouteCode: "R"})
			return err
		},
		"no route code": func() error {
			_, err := g.DeliverySheet(ctx, manifest(1, 1).withCode(""))
			return err
		},
		"pick list without orders": func() error {
			_, err := g.SeparationSheet(ctx, PickList{Code: "1"})
			return err
		},
		"assembly without orders": func() error {
			_, err := g.AssemblyReport(ctx, AssemblyReport{Code: "1"})
			return err
		},
		"route without stops": func() error {
			_, err := g.RouteReport(ctx, RouteReport{RouteCode: "R"})
			return err
		},
		"proof without recipient": func() error {
			_, err := g.DeliveryProof(ctx, DeliveryProof{Order: "1", DeliveredAt: fixedNow})
			return err
		},
		"proof without time": func() error {
			_, err := g.DeliveryProof(ctx, DeliveryProof{Order: "1", RecipientName: "Ana"})
			return err
		},
	}
	for name, run := range cases {
		if err := run(); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
}

func (m RouteManifest) withCode(code string) RouteManifest {
	m.RouteCode = code
	return m
}

func TestRenderFailureIsErrRender(t *testing.T) {
	g, r := newTestGenerator(t, nil)
	r.err = errors.New("disk full")
	_, err := g.DeliverySheet(context.Background(), manifest(1, 1))
	if !errors.Is(err, ErrRender) {
		t.Fatalf("expected ErrRender, got %v", err)
	}
}

func TestSeparationSheetGroupsStayWithFirstRow(t *testing.T) {
	g, r := newTestGenerator(t, nil)
	in := PickList{Code: "001", Warehouse: "CD Norte"}
	for i := 1; i <= 60; i++ {
		po := PickOrder{Number: fmt.Sprint(i), Customer: fmt.Sprintf("Loja %d", i)}
		for j := 0; j < 3; j++ {
			po.Items = append(po.Items, OrderItem{SKU: fmt.Sprintf("S%d-%d", i, j), Name: "Parafuso", Location: "B-2", Quantity: 10})
		}
		in.Orders = append(in.Orders, po)
	}
	if _, err := g.SeparationSheet(context.Background(), in); err != nil {
		t.Fatalf("SeparationSheet: %v", err)
	}
	if r.doc.PageCount() < 2 {
		t.Fatalf("应跨页")
	}
	for i := 1; i <= 60; i++ {
		hp := pageOf(r.doc, fmt.Sprintf("Pedido #%d - Loja %d", i, i))
		rp := pageOf(r.doc, fmt.Sprintf("S%d-0", i))
		if hp == 0 || hp != rp {
			t.Fatalf("订单 %d 分组标题在第 %d 页, 首行在第 %d 页", i, hp, rp)
		}
	}
	if !contains(r.doc.Pages()[1], "(continuação - Separação SEP-001)") {
		t.Fatalf("第 2 页缺少续页标题")
	}
	last := r.doc.Pages()[r.doc.PageCount()-1]
	if !contains(last, "Total: 60 pedidos, 180 SKUs, 1800 unidades") {
		t.Fatalf("末页缺少合计: %v", pageTexts(last))
	}
	if !contains(last, "Separador") || !contains(last, "Conferente") {
		t.Fatalf("末页缺少签名栏")
	}
}

func TestGroupByKit(t *testing.T) {
	products := []AssemblyProduct{
		{Name: "Lateral", Kit: "Guarda-roupa", KitQuantity: 1},
		{Name: "Puxador"},
		{Name: "Porta", Kit: "Guarda-roupa", KitQuantity: 2},
		{Name: "Tampo", Kit: "Mesa", KitQuantity: 1},
	}
	groups := groupByKit(products)
	type summary struct {
		Name     string
		Quantity int
		Count    int
	}
	var got []summary
	for _, g := range groups {
		got = append(got, summary{g.name, g.quantity, len(g.products)})
	}
	want := []summary{{"Guarda-roupa", 2, 2}, {"", 0, 1}, {"Mesa", 1, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("分组不符 (-want +got):\n%s", diff)
	}
}

func TestAssemblyReportKPIsAndFirstPageHeader(t *testing.T) {
	g, r := newTestGenerator(t, nil)
	in := AssemblyReport{Code: "77", Date: fixedNow, Team: "Equipe A"}
	for i := 1; i <= 25; i++ {
		in.Orders = append(in.Orders, AssemblyOrder{
			Number:   fmt.Sprint(i),
			Customer: Customer{Name: fmt.Sprintf("Cliente %d", i)},
			Address:  Address{Street: "Av. Brasil", Number: "100", City: "Curitiba", State: "PR"},
			Products: []AssemblyProduct{
				{Name: "Cama box", Kit: "Quarto", KitQuantity: 1, Quantity: 1, Status: StatusCompleted, Assembler: "Pedro"},
				{Name: "Criado-mudo", Kit: "Quarto", KitQuantity: 1, Quantity: 2, Status: StatusPending},
			},
			Notes: strPtr("Cliente ausente no primeiro horário"),
		})
	}
	if _, err := g.AssemblyReport(context.Background(), in); err != nil {
		t.Fatalf("AssemblyReport: %v", err)
	}
	first := r.doc.Pages()[0]
	for _, want := range []string{"Produtos", "Concluídos", "Pendentes", "Kits", "50", "25", "Concluído", "Pendente", "Kit: Quarto (1 un.)"} {
		if !contains(first, want) {
			t.Fatalf("首页缺少 %q", want)
		}
	}
	if r.doc.PageCount() < 2 {
		t.Fatalf("应跨页")
	}
	for _, p := range r.doc.Pages()[1:] {
		if contains(p, "Relatório de Montagem") {
			t.Fatalf("first-page 页眉不应出现在第 %d 页", p.Number())
		}
	}
	last := r.doc.Pages()[r.doc.PageCount()-1]
	if !contains(last, "Montador") || !contains(last, "Cliente") {
		t.Fatalf("末页缺少签名栏")
	}
}

func TestRouteReportOrdersStopsAndRate(t *testing.T) {
	g, r := newTestGenerator(t, nil)
	done := fixedNow.Add(time.Hour)
	in := RouteReport{
		RouteCode: "R-9",
		Date:      fixedNow,
		Driver:    Driver{Name: "Maria"},
		Stops: []Stop{
			{Sequence: 3, Order: "P-3", Customer: "C", Status: StopPending},
			{Sequence: 1, Order: "P-1", Customer: "A", Status: StopDelivered, CompletedAt: &done},
			{Sequence: 2, Order: "P-2", Customer: "B", Status: StopFailed, Occurrence: strPtr("Cliente ausente")},
			{Sequence: 4, Order: "P-4", Customer: "D", Status: StopDelivered},
		},
	}
	if _, err := g.RouteReport(context.Background(), in); err != nil {
		t.Fatalf("RouteReport: %v", err)
	}
	p := r.doc.Pages()[0]
	var orders []string
	for _, s := range pageTexts(p) {
		if strings.HasPrefix(s, "P-") {
			orders = append(orders, s)
		}
	}
	if diff := cmp.Diff([]string{"P-1", "P-2", "P-3", "P-4"}, orders); diff != "" {
		t.Fatalf("停靠点应按序号排列 (-want +got):\n%s", diff)
	}
	for _, want := range []string{"50%", "Entregue", "Falha", "15:30", "Cliente ausente", "RR-R-9"} {
		if !contains(p, want) {
			t.Fatalf("缺少 %q: %v", want, pageTexts(p))
		}
	}
	if in.Stops[0].Sequence != 3 {
		t.Fatalf("输入不应被修改")
	}
}

func TestRouteReportContinuationUsesRouteCode(t *testing.T) {
	g, r := newTestGenerator(t, nil)
	in := RouteReport{RouteCode: "R-9", Date: fixedNow, Driver: Driver{Name: "Maria"}}
	for i := 1; i <= 80; i++ {
		in.Stops = append(in.Stops, Stop{Sequence: i, Order: fmt.Sprintf("P-%d", i), Customer: "Cliente", Status: StopDelivered})
	}
	if _, err := g.RouteReport(context.Background(), in); err != nil {
		t.Fatalf("RouteReport: %v", err)
	}
	if r.doc.PageCount() < 2 {
		t.Fatalf("应跨页")
	}
	if !contains(r.doc.Pages()[1], "(continuação - Rota R-9)") {
		t.Fatalf("续页标题缺失: %v", pageTexts(r.doc.Pages()[1]))
	}
}

func TestDeliveryProofPhotosPerPage(t *testing.T) {
	g, r := newTestGenerator(t, mapFetcher{})
	in := DeliveryProof{
		Order:         "5521",
		Customer:      Customer{Name: "Ana Souza"},
		Address:       Address{Street: "Rua A", Number: "10", City: "Recife", State: "PE"},
		RecipientName: "Ana Souza",
		DeliveredAt:   fixedNow,
		Location:      &GeoPoint{Lat: -8.05, Lng: -34.9},
		Signature:     &Photo{URLs: []string{"https://files.example/sig.png"}},
	}
	for i := 0; i < 9; i++ {
		in.Photos = append(in.Photos, Photo{URLs: []string{fmt.Sprintf("https://files.example/%d.jpg", i)}})
	}
	if _, err := g.DeliveryProof(context.Background(), in); err != nil {
		t.Fatalf("DeliveryProof: %v", err)
	}
	total := 0
	for _, p := range r.doc.Pages() {
		n := countText(p, "Foto indisponível")
		if n > DefaultMaxPhotosPerPage {
			t.Fatalf("第 %d 页有 %d 张照片", p.Number(), n)
		}
		total += n
		if !contains(p, "Documento gerado eletronicamente a partir dos dados registrados no momento da entrega.") {
			t.Fatalf("第 %d 页缺少免责声明", p.Number())
		}
	}
	if total != 9 {
		t.Fatalf("照片占位总数 = %d, want 9", total)
	}
	if pageOf(r.doc, "Mapa indisponível") != 1 {
		t.Fatalf("地图获取失败时应显示占位")
	}
	if pageOf(r.doc, "Assinatura indisponível") == 0 || pageOf(r.doc, "Assinatura do recebedor") == 0 {
		t.Fatalf("缺少签名区")
	}
	if pageOf(r.doc, "(continuação - Pedido #5521)") == 0 {
		t.Fatalf("照片续页缺少续页标题")
	}
}

func TestDeliveryProofEmbedsInlinePhoto(t *testing.T) {
	g, r := newTestGenerator(t, nil)
	in := DeliveryProof{
		Order:         "1",
		RecipientName: "Carlos",
		DeliveredAt:   fixedNow,
		Photos:        []Photo{{Caption: "Fachada", Data: pngBytes(t)}},
	}
	if _, err := g.DeliveryProof(context.Background(), in); err != nil {
		t.Fatalf("DeliveryProof: %v", err)
	}
	if pageOf(r.doc, "Foto indisponível") != 0 {
		t.Fatalf("内联照片应直接嵌入")
	}
	if pageOf(r.doc, "Fachada") == 0 {
		t.Fatalf("缺少照片说明")
	}
	if pageOf(r.doc, "Mapa indisponível") != 0 {
		t.Fatalf("没有坐标时不应绘制地图")
	}
}

func TestGenerateDecodesJSON(t *testing.T) {
	g, r := newTestGenerator(t, nil)
	raw, err := json.Marshal(manifest(1, 1))
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	out, err := g.Generate(context.Background(), KindDeliverySheet, raw)
	if err != nil || !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("Generate = %q, %v", out, err)
	}
	if r.doc == nil {
		t.Fatalf("renderer not called")
	}
	if _, err := g.Generate(context.Background(), "invoice", raw); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown kind: %v", err)
	}
	if _, err := g.Generate(context.Background(), KindRouteReport, json.RawMessage(`{"stops": 3}`)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad json: %v", err)
	}
	if _, err := g.Generate(context.Background(), KindRouteReport, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty input: %v", err)
	}
	doc, err := g.Layout(context.Background(), KindDeliverySheet, raw)
	if err != nil || doc.PageCount() != 1 {
		t.Fatalf("Layout = %v, %v", doc, err)
	}
}

func TestDeliverySheetRendersPDFWithSanitizedText(t *testing.T) {
	r, err := canvasrenderer.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	g, err := New(Options{Renderer: r, Now: func() time.Time { return fixedNow }})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m := manifest(3, 2)
	m.Orders[0].Notes = strPtr("Entrega — R$ 10–20 • “ótimo”")
	m.Orders[1].Customer.Name = "Zo\u00eb\u200b \u201cCaf\u00e9\u201d \u2605"
	out, err := g.DeliverySheet(context.Background(), m)
	if err != nil {
		t.Fatalf("DeliverySheet: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
}

func TestConcurrentGenerationsDoNotInterfere(t *testing.T) {
	r, err := canvasrenderer.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	g, err := New(Options{Renderer: r, Now: func() time.Time { return fixedNow }})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sheet, err := json.Marshal(manifest(6, 4))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	report := RouteReport{RouteCode: "R-3", Date: fixedNow, Driver: Driver{Name: "Maria"}}
	for i := 1; i <= 60; i++ {
		report.Stops = append(report.Stops, Stop{Sequence: i, Order: fmt.Sprintf("P-%d", i), Customer: "Cliente", Status: StopDelivered})
	}
	stops, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	inputs := map[Kind]json.RawMessage{KindDeliverySheet: sheet, KindRouteReport: stops}

	ctx := context.Background()
	want := map[Kind]int{}
	for kind, raw := range inputs {
		doc, err := g.Layout(ctx, kind, raw)
		if err != nil {
			t.Fatalf("Layout %s: %v", kind, err)
		}
		want[kind] = doc.PageCount()
	}

	const workers = 4
	var wg sync.WaitGroup
	errs := make(chan error, workers*len(inputs))
	for i := 0; i < workers; i++ {
		for kind, raw := range inputs {
			wg.Add(1)
			go func(kind Kind, raw json.RawMessage) {
				defer wg.Done()
				doc, err := g.Layout(ctx, kind, raw)
				if err != nil {
					errs <- fmt.Errorf("Layout %s: %w", kind, err)
					return
				}
				if doc.PageCount() != want[kind] {
					errs <- fmt.Errorf("%s: %d 页, want %d", kind, doc.PageCount(), want[kind])
					return
				}
				out, err := g.Generate(ctx, kind, raw)
				if err != nil {
					errs <- fmt.Errorf("Generate %s: %w", kind, err)
					return
				}
				if !bytes.HasPrefix(out, []byte("%PDF")) || !bytes.Contains(out, []byte("%%EOF")) {
					errs <- fmt.Errorf("%s: 输出不是完整的 PDF (%d bytes)", kind, len(out))
				}
			}(kind, raw)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("%v", err)
	}
}
