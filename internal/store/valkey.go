package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyStore 是基于 Valkey/Redis 的存储实现，供多实例部署使用。
type ValkeyStore struct {
	client valkey.Client
}

func NewValkeyStore(addr string) (*ValkeyStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("valkey 地址不能为空")
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{addr},
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 valkey 客户端失败: %w", err)
	}

	// 启动时验证连接可用
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey 连接检查失败: %w", err)
	}

	return &ValkeyStore{client: client}, nil
}

func (vs *ValkeyStore) Get(ctx context.Context, key string) (string, error) {
	value, err := vs.client.Do(ctx, vs.client.B().Get().Key(key).Build()).ToString()
	if err != nil {
		// 键不存在视为正常的空结果
		if valkey.IsValkeyNil(err) {
			return "", nil
		}
		return "", fmt.Errorf("valkey get 失败: %w", err)
	}

	return value, nil
}

func (vs *ValkeyStore) Setex(ctx context.Context, key string, ttlSeconds int, value string) error {
	cmd := vs.client.B().Setex().Key(key).Seconds(int64(ttlSeconds)).Value(value).Build()

	if err := vs.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey setex 失败: %w", err)
	}

	return nil
}

func (vs *ValkeyStore) Del(ctx context.Context, key string) error {
	if err := vs.client.Do(ctx, vs.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("valkey del 失败: %w", err)
	}

	return nil
}

func (vs *ValkeyStore) Exists(ctx context.Context, key string) (int64, error) {
	count, err := vs.client.Do(ctx, vs.client.B().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("valkey exists 失败: %w", err)
	}

	return count, nil
}

func (vs *ValkeyStore) Rpush(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}

	cmd := vs.client.B().Rpush().Key(key).Element(values...).Build()

	if err := vs.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey rpush 失败: %w", err)
	}

	return nil
}

func (vs *ValkeyStore) Lrange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	cmd := vs.client.B().Lrange().Key(key).Start(start).Stop(stop).Build()

	values, err := vs.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, fmt.Errorf("valkey lrange 失败: %w", err)
	}

	return values, nil
}

func (vs *ValkeyStore) Llen(ctx context.Context, key string) (int64, error) {
	length, err := vs.client.Do(ctx, vs.client.B().Llen().Key(key).Build()).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("valkey llen 失败: %w", err)
	}

	return length, nil
}

func (vs *ValkeyStore) Close() error {
	vs.client.Close()
	return nil
}
