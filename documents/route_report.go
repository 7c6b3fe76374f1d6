package documents

import (
	"context"
	"sort"
	"strings"

	"github.com/ByLCY/romaneio/layout"
	"github.com/ByLCY/romaneio/sanitize"
)

var stopLabels = map[string]string{
	StopDelivered: "Entregue",
	StopFailed:    "Falha",
	StopPending:   "Pendente",
}

// RouteReport 生成路线完成报告：路线信息、完成指标与停靠点明细表。
func (g *Generator) RouteReport(ctx context.Context, in RouteReport) ([]byte, error) {
	return g.render(g.layoutRouteReport(ctx, in))
}

func (g *Generator) layoutRouteReport(ctx context.Context, in RouteReport) (*session, error) {
	if err := validateRouteReport(in); err != nil {
		return nil, err
	}
	s, err := g.begin(ctx, KindRouteReport, in.RouteCode, in.LogoURL)
	if err != nil {
		return nil, err
	}
	s.vars["route"] = routeVars(in.RouteCode, in.Driver.Name, in.Date)
	tbl, err := s.table("stops")
	if err != nil {
		return nil, err
	}

	stops := make([]Stop, len(in.Stops))
	copy(stops, in.Stops)
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].Sequence < stops[j].Sequence })

	var delivered, failed int
	rows := make([]map[string]string, 0, len(stops))
	for _, st := range stops {
		switch strings.ToLower(strings.TrimSpace(st.Status)) {
		case StopDelivered:
			delivered++
		case StopFailed:
			failed++
		}
		at := ""
		if st.CompletedAt != nil {
			at = st.CompletedAt.In(g.loc).Format("15:04")
		}
		rows = append(rows, map[string]string{
			"seq":        itoa(st.Sequence),
			"order":      st.Order,
			"customer":   st.Customer,
			"address":    st.Address.Line(),
			"status":     statusLabel(stopLabels, st.Status),
			"time":       dash(at),
			"occurrence": sanitize.Ptr(st.Occurrence),
		})
	}
	rate := formatNumber(float64(delivered)*100/float64(len(stops)), 1) + "%"

	vehicle := ""
	if in.Vehicle != nil {
		vehicle = strings.TrimSpace(in.Vehicle.Plate + " " + in.Vehicle.Model)
	}
	var started, finished, distance string
	if in.StartedAt != nil {
		started = formatDateTime(in.StartedAt.In(g.loc))
	}
	if in.FinishedAt != nil {
		finished = formatDateTime(in.FinishedAt.In(g.loc))
	}
	if in.DistanceKm > 0 {
		distance = formatNumber(in.DistanceKm, 1) + " km"
	}

	head := []layout.Fragment{
		s.infoGrid(3,
			field{"Rota", in.RouteCode},
			field{"Data", formatDate(in.Date.In(g.loc))},
			field{"Motorista", in.Driver.Name},
			field{"Veículo", vehicle},
			field{"Início", started},
			field{"Término", finished},
			field{"Distância", distance},
		),
		layout.Spacer(6),
	}
	head = append(head, s.kpis(itoa(len(stops)), itoa(delivered), itoa(failed), rate)...)
	head = append(head, s.section("Paradas"), tbl.HeaderRow())

	cont := s.continuation(nil)
	plan := layout.Plan{
		Head:             head,
		Rows:             tbl.Rows(rows),
		Continuation:     withHeader(cont, tbl),
		TailContinuation: cont,
	}
	plan.Append(layout.Spacer(sectionGap), s.signatures())
	s.doc.Place(plan)
	s.finish()
	return s, nil
}

func validateRouteReport(in RouteReport) error {
	if err := required(KindRouteReport, map[string]string{"route_code": in.RouteCode}); err != nil {
		return err
	}
	if len(in.Stops) == 0 {
		return errEmpty(KindRouteReport, "stops")
	}
	for i, st := range in.Stops {
		if strings.TrimSpace(st.Order) == "" {
			return errMissingAt(KindRouteReport, "stops", i, "order")
		}
	}
	return nil
}
