// Package assets 解析单据用到的远程资源（logo、静态地图、签收照片）。
// 资源以有序候选列表表示，逐个尝试，每个候选有独立超时；任何失败都只会降级为占位。
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoSource 表示所有候选来源均不可用。
var ErrNoSource = errors.New("assets: no usable source")

const (
	DefaultTimeout  = 4 * time.Second
	DefaultMaxBytes = 10 << 20
)

// Source 是一个候选来源：Data 非空时直接使用，否则按 URL 下载。
type Source struct {
	URL  string
	Data []byte
}

// URL 构造只有地址的来源。
func URL(u string) Source { return Source{URL: u} }

// Bytes 构造内联数据来源。
func Bytes(b []byte) Source { return Source{Data: b} }

// Fetcher 按 URL 下载资源。实现必须遵守 ctx 的超时与取消。
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher 通过 HTTP GET 下载资源，限制响应大小并检查状态码。
type HTTPFetcher struct {
	Client    *http.Client
	MaxBytes  int64
	UserAgent string
}

var _ Fetcher = (*HTTPFetcher)(nil)

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("下载 %s 失败: HTTP %d", url, resp.StatusCode)
	}
	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", url, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("资源 %s 超过 %d 字节上限", url, limit)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("资源 %s 为空", url)
	}
	return data, nil
}
