package documents

import (
	"fmt"
	"strings"
	"time"
)

// 本文件定义各类单据的输入数据。结构体只承载数据，生成过程中不会被修改。

// Customer 是收货客户。
type Customer struct {
	Name     string  `json:"name"`
	Document *string `json:"document,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// Address 是收货地址。
type Address struct {
	Street       string  `json:"street"`
	Number       string  `json:"number"`
	Complement   *string `json:"complement,omitempty"`
	Neighborhood string  `json:"neighborhood"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	PostalCode   string  `json:"postal_code"`
	Reference    *string `json:"reference,omitempty"`
}

// Line 返回单行地址。
func (a Address) Line() string {
	parts := make([]string, 0, 5)
	street := strings.TrimSpace(a.Street)
	if n := strings.TrimSpace(a.Number); n != "" {
		if street != "" {
			street += ", "
		}
		street += n
	}
	if street != "" {
		parts = append(parts, street)
	}
	if a.Complement != nil && strings.TrimSpace(*a.Complement) != "" {
		parts = append(parts, strings.TrimSpace(*a.Complement))
	}
	if a.Neighborhood != "" {
		parts = append(parts, a.Neighborhood)
	}
	city := a.City
	if a.State != "" {
		if city != "" {
			city += "/"
		}
		city += a.State
	}
	if city != "" {
		parts = append(parts, city)
	}
	if a.PostalCode != "" {
		parts = append(parts, "CEP "+a.PostalCode)
	}
	return strings.Join(parts, " - ")
}

// OrderItem 是订单中的一个商品。
type OrderItem struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Location string  `json:"location,omitempty"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
	Volumes  int     `json:"volumes,omitempty"`
	WeightKg float64 `json:"weight_kg,omitempty"`
}

// TimeWindow 是约定的送达时段。
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (w *TimeWindow) String() string {
	if w == nil || (w.Start == "" && w.End == "") {
		return ""
	}
	switch {
	case w.Start == "":
		return "até " + w.End
	case w.End == "":
		return "a partir de " + w.Start
	default:
		return w.Start + " - " + w.End
	}
}

// Order 是路线中的一个订单。
type Order struct {
	Sequence int         `json:"sequence"`
	Number   string      `json:"number"`
	Customer Customer    `json:"customer"`
	Address  Address     `json:"address"`
	Window   *TimeWindow `json:"window,omitempty"`
	Items    []OrderItem `json:"items"`
	Notes    *string     `json:"notes,omitempty"`
}

// Driver 是司机。
type Driver struct {
	Name     string  `json:"name"`
	Document *string `json:"document,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

// Vehicle 是车辆。
type Vehicle struct {
	Plate string `json:"plate"`
	Model string `json:"model,omitempty"`
}

// RouteManifest 是配送单（司机随车携带的订单清单）的输入。
type RouteManifest struct {
	RouteCode string    `json:"route_code"`
	Date      time.Time `json:"date"`
	Driver    Driver    `json:"driver"`
	Vehicle   *Vehicle  `json:"vehicle,omitempty"`
	Orders    []Order   `json:"orders"`
	LogoURL   string    `json:"logo_url,omitempty"`
}

// PickOrder 是拣货单中一个订单的商品。
type PickOrder struct {
	Number   string      `json:"number"`
	Customer string      `json:"customer"`
	Items    []OrderItem `json:"items"`
}

// PickList 是拣货单的输入。
type PickList struct {
	Code      string      `json:"code"`
	Warehouse string      `json:"warehouse,omitempty"`
	Picker    string      `json:"picker,omitempty"`
	Orders    []PickOrder `json:"orders"`
	LogoURL   string      `json:"logo_url,omitempty"`
}

// 组装状态。
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusPartial   = "partial"
)

// AssemblyProduct 是一个待组装的商品。
// KitQuantity 由调用方预先计算，生成过程不会由组件数量反推套件数。
type AssemblyProduct struct {
	Name        string  `json:"name"`
	SKU         string  `json:"sku,omitempty"`
	Kit         string  `json:"kit,omitempty"`
	KitQuantity int     `json:"kit_quantity,omitempty"`
	Quantity    float64 `json:"quantity"`
	Status      string  `json:"status"`
	Assembler   string  `json:"assembler,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// AssemblyOrder 是一个客户的组装记录。
type AssemblyOrder struct {
	Number   string            `json:"number"`
	Customer Customer          `json:"customer"`
	Address  Address           `json:"address"`
	Products []AssemblyProduct `json:"products"`
	Notes    *string           `json:"notes,omitempty"`
}

// AssemblyReport 是组装报告的输入。
type AssemblyReport struct {
	Code    string          `json:"code"`
	Date    time.Time       `json:"date"`
	Team    string          `json:"team,omitempty"`
	Orders  []AssemblyOrder `json:"orders"`
	LogoURL string          `json:"logo_url,omitempty"`
}

// 配送状态。
const (
	StopDelivered = "delivered"
	StopFailed    = "failed"
	StopPending   = "pending"
)

// Stop 是路线中的一个停靠点。
type Stop struct {
	Sequence    int        `json:"sequence"`
	Order       string     `json:"order"`
	Customer    string     `json:"customer"`
	Address     Address    `json:"address"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Occurrence  *string    `json:"occurrence,omitempty"`
}

// RouteReport 是路线完成报告的输入。
type RouteReport struct {
	RouteCode  string     `json:"route_code"`
	Date       time.Time  `json:"date"`
	Driver     Driver     `json:"driver"`
	Vehicle    *Vehicle   `json:"vehicle,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	DistanceKm float64    `json:"distance_km,omitempty"`
	Stops      []Stop     `json:"stops"`
	LogoURL    string     `json:"logo_url,omitempty"`
}

// GeoPoint 是带精度的坐标。
type GeoPoint struct {
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	AccuracyM *float64 `json:"accuracy_m,omitempty"`
}

func (g *GeoPoint) String() string {
	if g == nil {
		return ""
	}
	s := fmt.Sprintf("%.6f, %.6f", g.Lat, g.Lng)
	if g.AccuracyM != nil {
		s += fmt.Sprintf(" (precisão %.0f m)", *g.AccuracyM)
	}
	return s
}

// Photo 是交付现场照片，URLs 按优先顺序尝试，Data 为内联数据。
type Photo struct {
	Caption string   `json:"caption,omitempty"`
	URLs    []string `json:"urls,omitempty"`
	Data    []byte   `json:"data,omitempty"`
}

// DeliveryProof 是交付凭证的输入。
type DeliveryProof struct {
	Order             string    `json:"order"`
	Customer          Customer  `json:"customer"`
	Address           Address   `json:"address"`
	RecipientName     string    `json:"recipient_name"`
	RecipientDocument *string   `json:"recipient_document,omitempty"`
	DeliveredAt       time.Time `json:"delivered_at"`
	Driver            *Driver   `json:"driver,omitempty"`
	Location          *GeoPoint `json:"location,omitempty"`
	Photos            []Photo   `json:"photos,omitempty"`
	Signature         *Photo    `json:"signature,omitempty"`
	Notes             *string   `json:"notes,omitempty"`
	LogoURL           string    `json:"logo_url,omitempty"`
}
