package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore 是进程内的存储实现，零外部依赖，适合单实例部署与测试。
// TTL 到期后键自动消失，无需调用方触发清扫。
type MemoryStore struct {
	mu     sync.Mutex
	data   map[string]string
	lists  map[string][]string
	timers map[string]*time.Timer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:   make(map[string]string),
		lists:  make(map[string][]string),
		timers: make(map[string]*time.Timer),
	}
}

func (ms *MemoryStore) Get(_ context.Context, key string) (string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return ms.data[key], nil
}

func (ms *MemoryStore) Setex(_ context.Context, key string, ttlSeconds int, value string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.data[key] = value
	ms.resetTTL(key, ttlSeconds)

	return nil
}

func (ms *MemoryStore) Del(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.data, key)
	delete(ms.lists, key)
	ms.clearTTL(key)

	return nil
}

func (ms *MemoryStore) Exists(_ context.Context, key string) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.data[key]; ok {
		return 1, nil
	}
	if _, ok := ms.lists[key]; ok {
		return 1, nil
	}

	return 0, nil
}

func (ms *MemoryStore) Rpush(_ context.Context, key string, values ...string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.lists[key] = append(ms.lists[key], values...)

	return nil
}

func (ms *MemoryStore) Lrange(_ context.Context, key string, start, stop int64) ([]string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	list := ms.lists[key]
	length := int64(len(list))

	// Redis 的 lrange 两端都是闭区间，负的 stop 表示从末尾偏移
	end := stop + 1
	if stop < 0 {
		end = length + stop + 1
	}

	if start < 0 {
		start = length + start
		if start < 0 {
			start = 0
		}
	}
	if end > length {
		end = length
	}
	if start >= end {
		return []string{}, nil
	}

	result := make([]string, end-start)
	copy(result, list[start:end])

	return result, nil
}

func (ms *MemoryStore) Llen(_ context.Context, key string) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	return int64(len(ms.lists[key])), nil
}

func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for key, timer := range ms.timers {
		timer.Stop()
		delete(ms.timers, key)
	}

	return nil
}

// resetTTL 重新武装某个键的过期计时器，调用方必须持有锁。
func (ms *MemoryStore) resetTTL(key string, ttlSeconds int) {
	ms.clearTTL(key)

	var timer *time.Timer

	timer = time.AfterFunc(time.Duration(ttlSeconds)*time.Second, func() {
		ms.mu.Lock()
		defer ms.mu.Unlock()

		// 计时器可能在等锁期间已被 Setex/Del 替换，此时放弃删除
		if ms.timers[key] != timer {
			return
		}

		delete(ms.data, key)
		delete(ms.timers, key)
	})

	ms.timers[key] = timer
}

// clearTTL 取消某个键的过期计时器，调用方必须持有锁。
func (ms *MemoryStore) clearTTL(key string) {
	if existing, ok := ms.timers[key]; ok {
		existing.Stop()
		delete(ms.timers, key)
	}
}
