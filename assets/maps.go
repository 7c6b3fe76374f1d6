package assets

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// 静态地图服务商。
const (
	ProviderGoogle = "google"
	ProviderMapbox = "mapbox"
	ProviderOSM    = "osm"
)

// MapConfig 描述静态地图的服务商与图片参数。
// Preference 为空时按 google、mapbox、osm 的顺序尝试；缺少密钥的服务商会被跳过，
// 无需密钥的 OSM 总是作为最后的回退。
type MapConfig struct {
	GoogleKey   string   `yaml:"google_key"`
	MapboxToken string   `yaml:"mapbox_token"`
	Preference  []string `yaml:"preference"`
	Zoom        int      `yaml:"zoom"`
	Width       int      `yaml:"width"`
	Height      int      `yaml:"height"`
	// OSMEndpoint 可替换默认的 OSM 静态地图服务地址。
	OSMEndpoint string `yaml:"osm_endpoint"`
}

const (
	defaultZoom        = 16
	defaultMapWidth    = 600
	defaultMapHeight   = 300
	defaultOSMEndpoint = "https://staticmap.openstreetmap.de/staticmap.php"
	maxZoom            = 20
)

func (c MapConfig) normalized() MapConfig {
	if c.Zoom <= 0 || c.Zoom > maxZoom {
		c.Zoom = defaultZoom
	}
	if c.Width <= 0 {
		c.Width = defaultMapWidth
	}
	if c.Height <= 0 {
		c.Height = defaultMapHeight
	}
	if c.OSMEndpoint == "" {
		c.OSMEndpoint = defaultOSMEndpoint
	}
	if len(c.Preference) == 0 {
		c.Preference = []string{ProviderGoogle, ProviderMapbox, ProviderOSM}
	}
	return c
}

// StaticMapSources 返回以 (lat, lng) 为中心、带标记的静态地图候选地址。
func (c MapConfig) StaticMapSources(lat, lng float64) []Source {
	cfg := c.normalized()
	var out []Source
	seen := map[string]bool{}
	add := func(provider string) {
		if seen[provider] {
			return
		}
		u, ok := cfg.mapURL(provider, lat, lng)
		if !ok {
			return
		}
		seen[provider] = true
		out = append(out, URL(u))
	}
	for _, p := range cfg.Preference {
		add(strings.ToLower(strings.TrimSpace(p)))
	}
	add(ProviderOSM)
	return out
}

func (c MapConfig) mapURL(provider string, lat, lng float64) (string, bool) {
	center := coord(lat) + "," + coord(lng)
	size := fmt.Sprintf("%dx%d", c.Width, c.Height)
	switch provider {
	case ProviderGoogle:
		if c.GoogleKey == "" {
			return "", false
		}
		q := url.Values{}
		q.Set("center", center)
		q.Set("zoom", strconv.Itoa(c.Zoom))
		q.Set("size", size)
		q.Set("scale", "2")
		q.Set("markers", "color:red|"+center)
		q.Set("key", c.GoogleKey)
		return "https://maps.googleapis.com/maps/api/staticmap?" + q.Encode(), true
	case ProviderMapbox:
		if c.MapboxToken == "" {
			return "", false
		}
		lngLat := coord(lng) + "," + coord(lat)
		path := fmt.Sprintf("/styles/v1/mapbox/streets-v12/static/pin-s+d32f2f(%s)/%s,%d,0/%s",
			lngLat, lngLat, c.Zoom, size)
		q := url.Values{}
		q.Set("access_token", c.MapboxToken)
		return "https://api.mapbox.com" + path + "?" + q.Encode(), true
	case ProviderOSM:
		q := url.Values{}
		q.Set("center", center)
		q.Set("zoom", strconv.Itoa(c.Zoom))
		q.Set("size", size)
		q.Set("markers", center+",red-pushpin")
		return c.OSMEndpoint + "?" + q.Encode(), true
	default:
		return "", false
	}
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// ValidCoordinate 判断经纬度是否在合法范围内。
func ValidCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180 && !(lat == 0 && lng == 0)
}
