package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Store 是统一的键值存储接口，覆盖各管理器用到的 Redis 命令子集。
// 两个后端（进程内 memory 和网络化 valkey）必须表现出完全一致的可观测行为。
//
// 约定：缺失的键不是错误——Get 返回空串，Exists 返回 0，
// Lrange 返回空切片，Llen 返回 0。
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	// Setex 写入值并重新设置 TTL（覆盖写会重置倒计时）
	Setex(ctx context.Context, key string, ttlSeconds int, value string) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (int64, error)

	// 列表操作，供匹配队列使用
	Rpush(ctx context.Context, key string, values ...string) error
	// Lrange 遵循 Redis 语义：两端都是闭区间，负的 stop 表示从末尾偏移，-1 为取到末尾
	Lrange(ctx context.Context, key string, start, stop int64) ([]string, error)
	Llen(ctx context.Context, key string) (int64, error)

	Close() error
}

// NewStore 根据配置的类型创建存储后端。
func NewStore(storeType string, valkeyAddr string) (Store, error) {
	switch storeType {
	case "valkey":
		zap.S().Infof("使用 Valkey 存储：%s", valkeyAddr)
		return NewValkeyStore(valkeyAddr)

	case "memory", "":
		zap.S().Info("使用进程内存储")
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("未知的存储类型: %s", storeType)
	}
}
