package documents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ByLCY/romaneio/assets"
	"github.com/ByLCY/romaneio/layout"
	"github.com/ByLCY/romaneio/sanitize"
)

const (
	mapHeight       = 170.0
	photoHeight     = 150.0
	photoGap        = 10.0
	signatureHeight = 60.0
	photosPerRow    = 2
)

// DeliveryProof 生成交付凭证：签收信息、地图、现场照片（每页有上限）与收货人签名。
// 地图、照片与签名图片获取失败时显示占位文本，不影响生成。
func (g *Generator) DeliveryProof(ctx context.Context, in DeliveryProof) ([]byte, error) {
	return g.render(g.layoutDeliveryProof(ctx, in))
}

func (g *Generator) layoutDeliveryProof(ctx context.Context, in DeliveryProof) (*session, error) {
	if err := validateProof(in); err != nil {
		return nil, err
	}
	s, err := g.begin(ctx, KindDeliveryProof, in.Order, in.LogoURL)
	if err != nil {
		return nil, err
	}
	s.vars["order"] = orderVars(in.Order, in.Customer.Name, 0)

	// 图片在绘制前依次解析。
	var mapImg *layout.Image
	hasLocation := in.Location != nil && assets.ValidCoordinate(in.Location.Lat, in.Location.Lng)
	if hasLocation {
		mapImg = g.assets.Image(ctx, g.maps.StaticMapSources(in.Location.Lat, in.Location.Lng)...)
	}
	photos := make([]*layout.Image, len(in.Photos))
	for i, ph := range in.Photos {
		photos[i] = g.assets.Image(ctx, photoSources(ph)...)
		if photos[i] == nil {
			g.logger.Warn("[Documents] Photo unavailable",
				zap.String("order", in.Order),
				zap.Int("photo", i),
			)
		}
	}
	var sigImg *layout.Image
	if in.Signature != nil {
		sigImg = g.assets.Image(ctx, photoSources(*in.Signature)...)
	}

	driver := ""
	if in.Driver != nil {
		driver = in.Driver.Name
	}
	receipt := layout.Plan{Head: []layout.Fragment{
		s.section("Dados da entrega"),
		s.infoGrid(2,
			field{"Pedido", in.Order},
			field{"Cliente", in.Customer.Name},
			field{"Recebedor", in.RecipientName},
			field{"Documento", sanitize.Ptr(in.RecipientDocument)},
			field{"Entregue em", formatDateTime(in.DeliveredAt.In(g.loc))},
			field{"Motorista", driver},
		),
		s.infoGrid(1,
			field{"Endereço", in.Address.Line()},
			field{"Coordenadas", in.Location.String()},
		),
	}}
	receipt.Append(s.notes("Observações", in.Notes)...)
	receipt.Append(layout.Spacer(sectionGap))
	if hasLocation {
		receipt.Append(
			s.section("Localização"),
			layout.ImageBox(s.fonts, mapImg, s.x, s.width, mapHeight, "Mapa indisponível"),
			layout.Spacer(sectionGap),
		)
	}
	s.doc.Place(receipt)

	cont := s.continuation(nil)
	for i, chunk := range chunkPhotos(photos, in.Photos, s.photosPerPage()) {
		if i > 0 {
			s.doc.AddPage()
			s.doc.Place(layout.Plan{Head: cont})
		}
		plan := layout.Plan{Continuation: cont}
		if i == 0 {
			plan.Head = []layout.Fragment{s.section("Fotos da entrega")}
		}
		for start := 0; start < len(chunk); start += photosPerRow {
			end := min(start+photosPerRow, len(chunk))
			plan.Rows = append(plan.Rows, s.photoRow(chunk[start:end]))
		}
		s.doc.Place(plan)
	}

	closing := layout.Plan{Head: []layout.Fragment{layout.Spacer(sectionGap)}}
	if in.Signature != nil {
		closing.Head = append(closing.Head, layout.ImageBox(s.fonts, sigImg, s.x+s.width/4, s.width/2, signatureHeight, "Assinatura indisponível"))
	}
	closing.Head = append(closing.Head, s.signatures())
	recipient := in.RecipientName
	if id := sanitize.Ptr(in.RecipientDocument); id != "" {
		recipient += " - " + id
	}
	closing.Head = append(closing.Head, layout.Paragraph(s.fonts, recipient, s.x, s.width, layout.Style{Size: bodySize, Color: layout.DarkGray, Align: layout.AlignCenter}))
	s.doc.Place(closing)
	s.finish()
	return s, nil
}

// photosPerPage 取版式与配置中较小的上限。
func (s *session) photosPerPage() int {
	n := s.g.maxPhotos
	if s.spec.PhotosPerPage > 0 && s.spec.PhotosPerPage < n {
		n = s.spec.PhotosPerPage
	}
	return n
}

type photoCell struct {
	img     *layout.Image
	caption string
}

func chunkPhotos(imgs []*layout.Image, photos []Photo, size int) [][]photoCell {
	var out [][]photoCell
	for start := 0; start < len(photos); start += size {
		end := min(start+size, len(photos))
		chunk := make([]photoCell, 0, end-start)
		for i := start; i < end; i++ {
			chunk = append(chunk, photoCell{img: imgs[i], caption: photos[i].Caption})
		}
		out = append(out, chunk)
	}
	return out
}

// photoRow 并排绘制至多两张照片，照片下方为单行说明。
func (s *session) photoRow(cells []photoCell) layout.Fragment {
	colWidth := (s.width - photoGap) / photosPerRow
	captionStyle := layout.Style{Size: 8, Color: layout.Gray, Align: layout.AlignCenter}
	frags := make([]layout.Fragment, 0, len(cells))
	for i, c := range cells {
		x := s.x + float64(i)*(colWidth+photoGap)
		caption := layout.Fit(c.caption, colWidth, s.fonts.Get(layout.Regular), captionStyle.Size)
		frags = append(frags, layout.Stack("photo",
			layout.ImageBox(s.fonts, c.img, x, colWidth, photoHeight, s.spec.Placeholder),
			layout.Paragraph(s.fonts, caption, x, colWidth, captionStyle),
		))
	}
	return layout.Stack("photo-row", layout.SideBySide("photos", frags...), layout.Spacer(photoGap))
}

func photoSources(ph Photo) []assets.Source {
	var out []assets.Source
	if len(ph.Data) > 0 {
		out = append(out, assets.Bytes(ph.Data))
	}
	for _, u := range ph.URLs {
		if strings.TrimSpace(u) != "" {
			out = append(out, assets.URL(u))
		}
	}
	return out
}

func validateProof(in DeliveryProof) error {
	if err := required(KindDeliveryProof, map[string]string{
		"order":          in.Order,
		"recipient_name": in.RecipientName,
	}); err != nil {
		return err
	}
	if in.DeliveredAt.IsZero() {
		return fmt.Errorf("%w: %s 缺少必填字段 delivered_at", ErrInvalidInput, KindDeliveryProof)
	}
	return nil
}
