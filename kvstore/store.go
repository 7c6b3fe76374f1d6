// Package kvstore 提供带过期时间的键值存储，用于缓存远程图片与暂存生成的单据。
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Store 是最小的键值存储接口。Get 在键不存在或已过期时返回 found=false 且 err=nil。
// ttl <= 0 表示永不过期。
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error) // val, found, err
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

var ErrNotSupported = errors.New("kvstore: backend not supported")

// Conf 描述存储后端。
type Conf struct {
	Type string `yaml:"type" json:"type"` // memory | redis
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
	PW   string `yaml:"pw" json:"pw"`
	DB   int    `yaml:"db" json:"db"`
	// Prefix 会加在所有键之前，便于多个服务共用一个 Redis。
	Prefix string `yaml:"prefix" json:"prefix"`
}

// Open 按配置创建存储，Type 为空时使用内存存储。
func Open(conf Conf) (Store, error) {
	switch conf.Type {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		return NewRedis(conf)
	default:
		return nil, fmt.Errorf("%w: %q", ErrNotSupported, conf.Type)
	}
}
