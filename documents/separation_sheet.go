package documents

import (
	"context"
	"strings"

	"github.com/ByLCY/romaneio/binding"
	"github.com/ByLCY/romaneio/layout"
)

const checkbox = "[  ]"

// SeparationSheet 生成仓库拣货单：按订单分组的一张商品表，分组标题不会与首行分离。
func (g *Generator) SeparationSheet(ctx context.Context, in PickList) ([]byte, error) {
	return g.render(g.layoutSeparationSheet(ctx, in))
}

func (g *Generator) layoutSeparationSheet(ctx context.Context, in PickList) (*session, error) {
	if err := validatePickList(in); err != nil {
		return nil, err
	}
	s, err := g.begin(ctx, KindSeparationSheet, in.Code, in.LogoURL)
	if err != nil {
		return nil, err
	}
	tbl, err := s.table("items")
	if err != nil {
		return nil, err
	}

	skus := map[string]bool{}
	units := 0.0
	var rows []layout.Fragment
	for _, o := range in.Orders {
		title := "Pedido #" + o.Number
		if c := strings.TrimSpace(o.Customer); c != "" {
			title += " - " + c
		}
		rows = append(rows, tbl.GroupHeader(title))
		if len(o.Items) == 0 {
			rows = append(rows, tbl.PlaceholderRow())
			continue
		}
		for _, it := range o.Items {
			skus[it.SKU] = true
			units += it.Quantity
			rows = append(rows, tbl.Row(map[string]string{
				"check":    checkbox,
				"sku":      it.SKU,
				"name":     it.Name,
				"location": it.Location,
				"qty":      formatQty(it.Quantity, it.Unit),
			}))
		}
	}

	head := []layout.Fragment{
		s.infoGrid(3,
			field{"Separação", in.Code},
			field{"Depósito", in.Warehouse},
			field{"Separador", in.Picker},
		),
		layout.Spacer(6),
	}
	head = append(head, s.kpis(itoa(len(in.Orders)), itoa(len(skus)), formatNumber(units, 3))...)
	head = append(head, tbl.HeaderRow())

	cont := s.continuation(binding.Vars{"code": s.code})
	totals := "Total: " + itoa(len(in.Orders)) + " pedidos, " + itoa(len(skus)) + " SKUs, " + formatNumber(units, 3) + " unidades"
	plan := layout.Plan{
		Head:             head,
		Rows:             rows,
		Continuation:     withHeader(cont, tbl),
		TailContinuation: cont,
	}
	plan.Append(
		layout.Spacer(4),
		layout.Paragraph(s.fonts, totals, s.x, s.width, layout.Style{Face: layout.Bold, Size: bodySize, Color: layout.Black, Align: layout.AlignRight}),
		layout.Spacer(sectionGap),
		s.signatures(),
	)
	s.doc.Place(plan)
	s.finish()
	return s, nil
}

func validatePickList(in PickList) error {
	if err := required(KindSeparationSheet, map[string]string{"code": in.Code}); err != nil {
		return err
	}
	if len(in.Orders) == 0 {
		return errEmpty(KindSeparationSheet, "orders")
	}
	for i, o := range in.Orders {
		if strings.TrimSpace(o.Number) == "" {
			return errMissingAt(KindSeparationSheet, "orders", i, "number")
		}
	}
	return nil
}
