package documents

import (
	"context"
	"strings"

	"github.com/ByLCY/romaneio/binding"
	"github.com/ByLCY/romaneio/layout"
	"github.com/ByLCY/romaneio/sanitize"
)

const orderStripHeight = 20.0

// DeliverySheet 生成司机随车的配送单：每个订单一个区块，包含地址、商品与签收栏。
func (g *Generator) DeliverySheet(ctx context.Context, in RouteManifest) ([]byte, error) {
	return g.render(g.layoutDeliverySheet(ctx, in))
}

func (g *Generator) layoutDeliverySheet(ctx context.Context, in RouteManifest) (*session, error) {
	if err := validateManifest(in); err != nil {
		return nil, err
	}
	s, err := g.begin(ctx, KindDeliverySheet, in.RouteCode, in.LogoURL)
	if err != nil {
		return nil, err
	}
	s.vars["route"] = routeVars(in.RouteCode, in.Driver.Name, in.Date)
	tbl, err := s.table("items")
	if err != nil {
		return nil, err
	}

	var items, volumes int
	var weight float64
	for _, o := range in.Orders {
		items += len(o.Items)
		for _, it := range o.Items {
			volumes += it.Volumes
			weight += it.WeightKg
		}
	}
	vehicle := ""
	if in.Vehicle != nil {
		vehicle = strings.TrimSpace(in.Vehicle.Plate + " " + in.Vehicle.Model)
	}
	intro := layout.Plan{Head: []layout.Fragment{
		s.infoGrid(3,
			field{"Rota", in.RouteCode},
			field{"Data", formatDate(in.Date.In(g.loc))},
			field{"Motorista", in.Driver.Name},
			field{"Veículo", vehicle},
			field{"Telefone", sanitize.Ptr(in.Driver.Phone)},
			field{"Documento", sanitize.Ptr(in.Driver.Document)},
		),
		layout.Spacer(6),
	}}
	intro.Head = append(intro.Head, s.kpis(itoa(len(in.Orders)), itoa(items), itoa(volumes), formatNumber(weight, 1))...)
	s.doc.Place(intro)

	for _, o := range in.Orders {
		s.doc.Place(s.orderPlan(tbl, o))
	}

	s.doc.Place(layout.Plan{Head: []layout.Fragment{layout.Spacer(sectionGap), s.signatures()}})
	s.finish()
	return s, nil
}

// orderPlan 测量一个订单区块。商品行之间可以分页，分页后重绘续页标题与表头。
func (s *session) orderPlan(tbl layout.Table, o Order) layout.Plan {
	half := s.width / 2
	st := layout.Style{Size: bodySize, Color: layout.Black}

	left := "#" + itoa(o.Sequence) + "  Pedido " + o.Number + "  " + o.Customer.Name
	strip := layout.Strip(s.fonts, left, o.Window.String(), s.x, s.width, orderStripHeight, layout.Shade, layout.Style{Face: layout.Bold, Size: 9.5, Color: layout.Black})

	addr := []layout.Fragment{layout.LabeledText(s.fonts, "Endereço", o.Address.Line(), s.x, half-8, st)}
	if ref := sanitize.Ptr(o.Address.Reference); strings.TrimSpace(ref) != "" {
		addr = append(addr, layout.LabeledText(s.fonts, "Referência", ref, s.x, half-8, st))
	}
	contact := []layout.Fragment{layout.LabeledText(s.fonts, "Telefone", dash(sanitize.Ptr(o.Customer.Phone)), s.x+half, half, st)}
	if id := sanitize.Ptr(o.Customer.Document); id != "" {
		contact = append(contact, layout.LabeledText(s.fonts, "Documento", id, s.x+half, half, st))
	}

	rows := make([]map[string]string, 0, len(o.Items))
	for _, it := range o.Items {
		rows = append(rows, map[string]string{
			"sku":      it.SKU,
			"name":     it.Name,
			"location": it.Location,
			"qty":      formatQty(it.Quantity, it.Unit),
		})
	}

	cont := s.continuation(binding.Vars{"order": orderVars(o.Number, o.Customer.Name, o.Sequence)})
	plan := layout.Plan{
		Head: []layout.Fragment{
			strip,
			layout.Spacer(4),
			layout.SideBySide("address", layout.Stack("address-left", addr...), layout.Stack("address-right", contact...)),
			layout.Spacer(4),
			tbl.HeaderRow(),
		},
		Rows:             tbl.Rows(rows),
		Continuation:     withHeader(cont, tbl),
		TailContinuation: cont,
	}
	plan.Append(layout.Spacer(4))
	plan.Append(s.notes("Observações", o.Notes)...)
	if s.spec.Receipt != "" {
		plan.Append(layout.Signatures(s.fonts, []string{s.spec.Receipt}, s.x, s.width))
	}
	plan.Append(layout.Rule(s.x, s.width, sectionGap, 0.5, layout.LightGray))
	return plan
}

func validateManifest(in RouteManifest) error {
	if err := required(KindDeliverySheet, map[string]string{"route_code": in.RouteCode}); err != nil {
		return err
	}
	if len(in.Orders) == 0 {
		return errEmpty(KindDeliverySheet, "orders")
	}
	for i, o := range in.Orders {
		if strings.TrimSpace(o.Number) == "" {
			return errMissingAt(KindDeliverySheet, "orders", i, "number")
		}
	}
	return nil
}
