// Package config 读取服务与命令行共用的 YAML 配置，并应用环境变量覆盖。
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ByLCY/romaneio/assets"
	"github.com/ByLCY/romaneio/kvstore"
	"github.com/ByLCY/romaneio/layout"
)

// ErrInvalid 表示配置内容不合法。
var ErrInvalid = errors.New("config: invalid")

// 环境变量。
const (
	EnvGoogleMapsKey = "ROMANEIO_GOOGLE_MAPS_KEY"
	EnvMapboxToken   = "ROMANEIO_MAPBOX_TOKEN"
	EnvRedisAddr     = "ROMANEIO_REDIS_ADDR"
	EnvAddr          = "ROMANEIO_ADDR"
)

// Duration 在 YAML 中写作 "4s"、"10m" 等字符串。
type Duration struct {
	time.Duration
}

// UnmarshalYAML 实现 yaml.Unmarshaler。
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("第 %d 行: 时长需要字符串: %w", node.Line, err)
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("第 %d 行: %w", node.Line, err)
	}
	d.Duration = v
	return nil
}

// MarshalYAML 实现 yaml.Marshaler。
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Log 配置日志。
type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Page 配置纸张、边距与时区。Margin 为四边统一的长度，如 "12.7mm"、"36pt"。
type Page struct {
	Size     string `yaml:"size"`
	Margin   string `yaml:"margin"`
	Timezone string `yaml:"timezone"`
}

// Fonts 指定常规与粗体字体：TTF 文件路径或 "embed:Go-Regular" 形式的内置字体。
type Fonts struct {
	Regular string `yaml:"regular"`
	Bold    string `yaml:"bold"`
}

// Assets 配置远程图片下载。
type Assets struct {
	Timeout  Duration `yaml:"timeout"`
	CacheTTL Duration `yaml:"cache_ttl"`
	MaxBytes int64    `yaml:"max_bytes"`
}

// Documents 配置单据生成与暂存。
type Documents struct {
	SpecsDir         string   `yaml:"specs_dir"`
	Company          string   `yaml:"company"`
	LogoURL          string   `yaml:"logo_url"`
	MaxPhotosPerPage int      `yaml:"max_photos_per_page"`
	TTL              Duration `yaml:"ttl"`
	MaxBodyBytes     int64    `yaml:"max_body_bytes"`
}

// Config 是完整配置。
type Config struct {
	Addr      string           `yaml:"addr"`
	Log       Log              `yaml:"log"`
	Page      Page             `yaml:"page"`
	Fonts     Fonts            `yaml:"fonts"`
	Assets    Assets           `yaml:"assets"`
	Maps      assets.MapConfig `yaml:"maps"`
	Store     kvstore.Conf     `yaml:"store"`
	Documents Documents        `yaml:"documents"`
}

const maxPhotosLimit = 8

// Default 返回默认配置。
func Default() Config {
	return Config{
		Addr: ":8080",
		Log:  Log{Level: "info"},
		Page: Page{Size: "A4", Timezone: "America/Sao_Paulo"},
		Assets: Assets{
			Timeout:  Duration{assets.DefaultTimeout},
			CacheTTL: Duration{time.Hour},
			MaxBytes: assets.DefaultMaxBytes,
		},
		Maps:  assets.MapConfig{Preference: []string{assets.ProviderGoogle, assets.ProviderMapbox, assets.ProviderOSM}},
		Store: kvstore.Conf{Type: "memory", Prefix: "romaneio:"},
		Documents: Documents{
			Company:          "Romaneio",
			MaxPhotosPerPage: 4,
			TTL:              Duration{10 * time.Minute},
			MaxBodyBytes:     8 << 20,
		},
	}
}

// Load 读取配置文件（path 为空时只使用默认值），再应用环境变量并校验。
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("读取配置 %s 失败: %w", path, err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvGoogleMapsKey); ok {
		c.Maps.GoogleKey = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvMapboxToken); ok {
		c.Maps.MapboxToken = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvAddr); ok && strings.TrimSpace(v) != "" {
		c.Addr = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvRedisAddr); ok && strings.TrimSpace(v) != "" {
		host, port, err := net.SplitHostPort(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, EnvRedisAddr, v, err)
		}
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("%w: %s 端口 %q 无效", ErrInvalid, EnvRedisAddr, port)
		}
		c.Store.Type = "redis"
		c.Store.Host = host
		c.Store.Port = n
	}
	return nil
}

// Validate 检查配置取值。
func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr 不能为空", ErrInvalid)
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	if _, err := layout.LookupPageSize(c.Page.Size); err != nil {
		return fmt.Errorf("%w: page.size: %v", ErrInvalid, err)
	}
	if _, err := c.Margin(); err != nil {
		return fmt.Errorf("%w: page.margin: %v", ErrInvalid, err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: page.timezone: %v", ErrInvalid, err)
	}
	if c.Assets.Timeout.Duration <= 0 {
		return fmt.Errorf("%w: assets.timeout 必须大于 0", ErrInvalid)
	}
	if c.Assets.MaxBytes <= 0 {
		return fmt.Errorf("%w: assets.max_bytes 必须大于 0", ErrInvalid)
	}
	if c.Documents.TTL.Duration <= 0 {
		return fmt.Errorf("%w: documents.ttl 必须大于 0", ErrInvalid)
	}
	if n := c.Documents.MaxPhotosPerPage; n < 1 || n > maxPhotosLimit {
		return fmt.Errorf("%w: documents.max_photos_per_page 应在 1 到 %d 之间", ErrInvalid, maxPhotosLimit)
	}
	switch c.Store.Type {
	case "", "memory":
	case "redis":
		if c.Store.Host == "" {
			return fmt.Errorf("%w: store.host 不能为空", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: store.type %q 不支持", ErrInvalid, c.Store.Type)
	}
	return nil
}

// Location 返回生成单据时使用的时区。
func (c Config) Location() (*time.Location, error) {
	if c.Page.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Page.Timezone)
}

// PageSize 返回纸张尺寸。
func (c Config) PageSize() (layout.PageSize, error) {
	return layout.LookupPageSize(c.Page.Size)
}

// Margin 返回页面边距，未配置时返回 nil 以使用默认边距。
func (c Config) Margin() (*layout.Margin, error) {
	if strings.TrimSpace(c.Page.Margin) == "" {
		return nil, nil
	}
	l, err := layout.ParseLength(c.Page.Margin)
	if err != nil {
		return nil, err
	}
	pt := l.Points()
	if pt <= 0 {
		return nil, fmt.Errorf("边距必须大于 0: %s", l)
	}
	return &layout.Margin{Top: pt, Right: pt, Bottom: pt, Left: pt}, nil
}

// Logger 按配置创建 zap 日志。
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
