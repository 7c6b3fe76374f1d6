package assets

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/ByLCY/romaneio/kvstore"
	"github.com/ByLCY/romaneio/layout"
)

// Resolver 依次尝试候选来源，直到某个来源成功。
// 候选之间是顺序回退而不是并发竞速：顺序即偏好。
type Resolver struct {
	Fetcher Fetcher
	// Timeout 是每个候选的超时，<= 0 时使用 DefaultTimeout。
	Timeout time.Duration
	// Cache 可选，按 URL 缓存下载结果。
	Cache    kvstore.Store
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// NewResolver 创建使用 HTTP 下载的解析器。
func NewResolver(timeout time.Duration, cache kvstore.Store, logger *zap.Logger) *Resolver {
	return &Resolver{
		Fetcher:  &HTTPFetcher{UserAgent: "romaneio"},
		Timeout:  timeout,
		Cache:    cache,
		CacheTTL: time.Hour,
		Logger:   logger,
	}
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Resolver) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

func cacheKey(url string) string {
	return fmt.Sprintf("asset:%016x", xxhash.Sum64String(url))
}

// Resolve 返回第一个可用候选的字节。全部失败时返回包装了 ErrNoSource 的错误。
// nil Resolver 只接受内联数据。
func (r *Resolver) Resolve(ctx context.Context, sources ...Source) ([]byte, error) {
	if r == nil {
		r = &Resolver{}
	}
	var lastErr error
	for i, src := range sources {
		data, err := r.fetchOne(ctx, src)
		if err == nil {
			return data, nil
		}
		lastErr = err
		r.logger().Warn("[Assets] Candidate failed",
			zap.Int("candidate", i),
			zap.String("source", describe(src)),
			zap.Error(err),
		)
	}
	if lastErr == nil {
		return nil, fmt.Errorf("%w: 没有候选来源", ErrNoSource)
	}
	return nil, fmt.Errorf("%w: %v", ErrNoSource, lastErr)
}

func (r *Resolver) fetchOne(ctx context.Context, src Source) ([]byte, error) {
	if len(src.Data) > 0 {
		return src.Data, nil
	}
	if src.URL == "" {
		return nil, fmt.Errorf("候选来源为空")
	}
	if r.Cache != nil {
		if data, found, err := r.Cache.Get(ctx, cacheKey(src.URL)); err == nil && found {
			r.logger().Debug("[Assets] Cache hit", zap.String("source", src.URL))
			return data, nil
		} else if err != nil {
			r.logger().Debug("[Assets] Cache read failed", zap.String("source", src.URL), zap.Error(err))
		}
	}
	if r.Fetcher == nil {
		return nil, fmt.Errorf("未配置下载器")
	}
	cctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()
	start := time.Now()
	data, err := r.Fetcher.Fetch(cctx, src.URL)
	if err != nil {
		return nil, err
	}
	r.logger().Debug("[Assets] Fetched",
		zap.String("source", src.URL),
		zap.Int("size", len(data)),
		zap.Duration("duration", time.Since(start)),
	)
	if r.Cache != nil {
		if err := r.Cache.Set(ctx, cacheKey(src.URL), data, r.CacheTTL); err != nil {
			r.logger().Debug("[Assets] Cache write failed", zap.String("source", src.URL), zap.Error(err))
		}
	}
	return data, nil
}

// Image 依次尝试候选来源并解码为图片；下载或解码失败时继续下一个候选。
// 全部失败返回 nil，调用方应绘制占位内容。
func (r *Resolver) Image(ctx context.Context, sources ...Source) *layout.Image {
	if r == nil {
		r = &Resolver{}
	}
	for i, src := range sources {
		data, err := r.fetchOne(ctx, src)
		if err != nil {
			r.logger().Warn("[Assets] Image candidate failed",
				zap.Int("candidate", i),
				zap.String("source", describe(src)),
				zap.Error(err),
			)
			continue
		}
		img, err := Embed(data)
		if err != nil {
			r.logger().Warn("[Assets] Image decode failed",
				zap.Int("candidate", i),
				zap.String("source", describe(src)),
				zap.Error(err),
			)
			continue
		}
		return img
	}
	return nil
}

func describe(src Source) string {
	if len(src.Data) > 0 {
		return fmt.Sprintf("inline(%d bytes)", len(src.Data))
	}
	return src.URL
}
