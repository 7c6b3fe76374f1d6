package documents

import (
	"context"
	"strings"

	"github.com/ByLCY/romaneio/binding"
	"github.com/ByLCY/romaneio/layout"
)

var statusLabels = map[string]string{
	StatusCompleted: "Concluído",
	StatusPending:   "Pendente",
	StatusPartial:   "Parcial",
}

func statusLabel(labels map[string]string, status string) string {
	if l, ok := labels[strings.ToLower(strings.TrimSpace(status))]; ok {
		return l
	}
	return dash(status)
}

// kitGroup 是同一订单内属于同一套件的商品。
type kitGroup struct {
	name     string
	quantity int
	products []AssemblyProduct
}

// groupByKit 按首次出现顺序分组。套件数量取组内调用方提供的最大值。
func groupByKit(products []AssemblyProduct) []kitGroup {
	var groups []kitGroup
	index := map[string]int{}
	for _, p := range products {
		key := strings.TrimSpace(p.Kit)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, kitGroup{name: key})
		}
		if p.KitQuantity > groups[i].quantity {
			groups[i].quantity = p.KitQuantity
		}
		groups[i].products = append(groups[i].products, p)
	}
	return groups
}

// AssemblyReport 生成组装报告：每个客户一个区块，商品按套件分组。
func (g *Generator) AssemblyReport(ctx context.Context, in AssemblyReport) ([]byte, error) {
	return g.render(g.layoutAssemblyReport(ctx, in))
}

func (g *Generator) layoutAssemblyReport(ctx context.Context, in AssemblyReport) (*session, error) {
	if err := validateAssembly(in); err != nil {
		return nil, err
	}
	s, err := g.begin(ctx, KindAssemblyReport, in.Code, in.LogoURL)
	if err != nil {
		return nil, err
	}
	tbl, err := s.table("products")
	if err != nil {
		return nil, err
	}

	var products, completed, kits int
	for _, o := range in.Orders {
		for _, grp := range groupByKit(o.Products) {
			if grp.name != "" {
				kits += grp.quantity
			}
		}
		for _, p := range o.Products {
			products++
			if strings.EqualFold(strings.TrimSpace(p.Status), StatusCompleted) {
				completed++
			}
		}
	}

	intro := layout.Plan{Head: []layout.Fragment{
		s.infoGrid(3,
			field{"Relatório", in.Code},
			field{"Data", formatDate(in.Date.In(g.loc))},
			field{"Equipe", in.Team},
		),
		layout.Spacer(6),
	}}
	intro.Head = append(intro.Head, s.kpis(itoa(products), itoa(completed), itoa(products-completed), itoa(kits))...)
	s.doc.Place(intro)

	for _, o := range in.Orders {
		s.doc.Place(s.assemblyPlan(tbl, o))
	}
	s.doc.Place(layout.Plan{Head: []layout.Fragment{layout.Spacer(sectionGap), s.signatures()}})
	s.finish()
	return s, nil
}

func (s *session) assemblyPlan(tbl layout.Table, o AssemblyOrder) layout.Plan {
	st := layout.Style{Size: bodySize, Color: layout.Black}
	strip := layout.Strip(s.fonts, "Pedido "+o.Number+"  "+o.Customer.Name, itoa(len(o.Products))+" produtos",
		s.x, s.width, orderStripHeight, layout.Shade, layout.Style{Face: layout.Bold, Size: 9.5, Color: layout.Black})

	var rows []layout.Fragment
	for _, grp := range groupByKit(o.Products) {
		if grp.name != "" {
			title := "Kit: " + grp.name
			if grp.quantity > 0 {
				title += " (" + itoa(grp.quantity) + " un.)"
			}
			rows = append(rows, tbl.GroupHeader(title))
		}
		for _, p := range grp.products {
			rows = append(rows, tbl.Row(map[string]string{
				"name":      p.Name,
				"kit":       p.Kit,
				"qty":       formatNumber(p.Quantity, 3),
				"status":    statusLabel(statusLabels, p.Status),
				"assembler": p.Assembler,
			}))
		}
	}
	if len(rows) == 0 {
		rows = append(rows, tbl.PlaceholderRow())
	}

	cont := s.continuation(binding.Vars{"order": orderVars(o.Number, o.Customer.Name, 0)})
	plan := layout.Plan{
		Head: []layout.Fragment{
			strip,
			layout.Spacer(4),
			layout.LabeledText(s.fonts, "Endereço", o.Address.Line(), s.x, s.width, st),
			layout.Spacer(4),
			tbl.HeaderRow(),
		},
		Rows:             rows,
		Continuation:     withHeader(cont, tbl),
		TailContinuation: cont,
	}
	plan.Append(layout.Spacer(4))
	for _, p := range o.Products {
		plan.Append(s.notes(p.Name, p.Notes)...)
	}
	plan.Append(s.notes("Observações do montador", o.Notes)...)
	plan.Append(layout.Rule(s.x, s.width, sectionGap, 0.5, layout.LightGray))
	return plan
}

func validateAssembly(in AssemblyReport) error {
	if err := required(KindAssemblyReport, map[string]string{"code": in.Code}); err != nil {
		return err
	}
	if len(in.Orders) == 0 {
		return errEmpty(KindAssemblyReport, "orders")
	}
	for i, o := range in.Orders {
		if strings.TrimSpace(o.Number) == "" {
			return errMissingAt(KindAssemblyReport, "orders", i, "number")
		}
		for j, p := range o.Products {
			if strings.TrimSpace(p.Name) == "" {
				return errMissingAt(KindAssemblyReport, "orders["+itoa(i)+"].products", j, "name")
			}
		}
	}
	return nil
}
