package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	lowimpl "github.com/redis/go-redis/v9"
)

// Redis 是基于 go-redis 的存储实现。
type Redis struct {
	Conf Conf

	internal *lowimpl.Client
}

var _ Store = (*Redis)(nil)

// NewRedis 创建 Redis 客户端，不会立即建立连接。
func NewRedis(conf Conf) (*Redis, error) {
	if conf.Host == "" {
		return nil, fmt.Errorf("redis 缺少 host")
	}
	port := conf.Port
	if port == 0 {
		port = 6379
	}
	return &Redis{
		Conf: conf,
		internal: lowimpl.NewClient(&lowimpl.Options{
			Addr:     fmt.Sprintf("%s:%d", conf.Host, port),
			Password: conf.PW,
			DB:       conf.DB,
		}),
	}, nil
}

// Ping 检查连接是否可用。
func (r *Redis) Ping(ctx context.Context) error {
	return r.internal.Ping(ctx).Err()
}

func (r *Redis) key(k string) string { return r.Conf.Prefix + k }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.internal.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, lowimpl.Nil) {
		return nil, false, nil // redis.Nil -> found: false, err: nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.internal.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.internal.Del(ctx, r.key(key)).Err()
}

func (r *Redis) Close() error {
	if r.internal == nil {
		return nil
	}
	return r.internal.Close()
}
