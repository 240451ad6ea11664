package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"identidraw-be/internal/service/dto"
	"identidraw-be/internal/store"

	"go.uber.org/zap"
)

// 全局唯一的等待队列，不分片
const QUEUE_KEY = "matchmaking:queue"

type QueueEntry struct {
	Player   dto.Player `json:"player"`
	JoinedAt int64      `json:"joinedAt"`
}

type MatchResult struct {
	LobbyCode string
	Players   []dto.Player
}

// MatchmakingService 维护一个 FIFO 等待队列，凑满 matchSize 人即成局。
// Remove 和 TryMatch 采用整表重写策略：读出全部条目、删除键、
// 写回剩余条目。与并发 Add 之间存在丢失更新的竞态，
// 与原实现保持一致（见 DESIGN.md）。
type MatchmakingService struct {
	store     store.Store
	lobbies   *LobbyService
	matchSize int
}

func NewMatchmakingService(st store.Store, lobbies *LobbyService, matchSize int) *MatchmakingService {
	return &MatchmakingService{
		store:     st,
		lobbies:   lobbies,
		matchSize: matchSize,
	}
}

// Add 将玩家追加到队尾。
func (ms *MatchmakingService) Add(ctx context.Context, player dto.Player) error {
	entry := QueueEntry{
		Player:   player,
		JoinedAt: time.Now().UnixMilli(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("序列化队列条目失败: %w", err)
	}

	if err := ms.store.Rpush(ctx, QUEUE_KEY, string(data)); err != nil {
		return fmt.Errorf("写入匹配队列失败: %w", err)
	}

	return nil
}

// Remove 将玩家从队列中移除，不在队列中时为无操作。
func (ms *MatchmakingService) Remove(ctx context.Context, playerID string) error {
	entries, err := ms.getAll(ctx)
	if err != nil {
		return err
	}

	if err := ms.store.Del(ctx, QUEUE_KEY); err != nil {
		return fmt.Errorf("清空匹配队列失败: %w", err)
	}

	remaining := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Player.ID == playerID {
			continue
		}

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("序列化队列条目失败: %w", err)
		}

		remaining = append(remaining, string(data))
	}

	if len(remaining) > 0 {
		if err := ms.store.Rpush(ctx, QUEUE_KEY, remaining...); err != nil {
			return fmt.Errorf("写回匹配队列失败: %w", err)
		}
	}

	return nil
}

// TryMatch 尝试成局：队列长度达到 matchSize 时，按加入先后取最早的
// matchSize 人，创建一个匹配模式大厅（第一人为房主），其余人加入。
// 不足时返回 (nil, nil)。
func (ms *MatchmakingService) TryMatch(ctx context.Context) (*MatchResult, error) {
	entries, err := ms.getAll(ctx)
	if err != nil {
		return nil, err
	}

	if len(entries) < ms.matchSize {
		return nil, nil
	}

	matched := entries[:ms.matchSize]
	players := make([]dto.Player, 0, ms.matchSize)
	for _, e := range matched {
		players = append(players, e.Player)
	}

	// 从队列中摘除已匹配的条目
	if err := ms.store.Del(ctx, QUEUE_KEY); err != nil {
		return nil, fmt.Errorf("清空匹配队列失败: %w", err)
	}

	rest := entries[ms.matchSize:]
	if len(rest) > 0 {
		remaining := make([]string, 0, len(rest))
		for _, e := range rest {
			data, err := json.Marshal(e)
			if err != nil {
				return nil, fmt.Errorf("序列化队列条目失败: %w", err)
			}
			remaining = append(remaining, string(data))
		}

		if err := ms.store.Rpush(ctx, QUEUE_KEY, remaining...); err != nil {
			return nil, fmt.Errorf("写回匹配队列失败: %w", err)
		}
	}

	lobby, err := ms.lobbies.Create(ctx, players[0], dto.MODE_MATCHMAKING)
	if err != nil {
		return nil, err
	}

	for _, p := range players[1:] {
		if _, err := ms.lobbies.AddPlayer(ctx, lobby.Code, p); err != nil {
			return nil, err
		}
	}

	zap.S().Infof("匹配成局：大厅 %s，%d 名玩家", lobby.Code, len(players))

	return &MatchResult{
		LobbyCode: lobby.Code,
		Players:   players,
	}, nil
}

func (ms *MatchmakingService) QueueSize(ctx context.Context) (int64, error) {
	size, err := ms.store.Llen(ctx, QUEUE_KEY)
	if err != nil {
		return 0, fmt.Errorf("读取队列长度失败: %w", err)
	}

	return size, nil
}

func (ms *MatchmakingService) getAll(ctx context.Context) ([]QueueEntry, error) {
	raw, err := ms.store.Lrange(ctx, QUEUE_KEY, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("读取匹配队列失败: %w", err)
	}

	entries := make([]QueueEntry, 0, len(raw))
	for _, r := range raw {
		var entry QueueEntry

		if err := json.Unmarshal([]byte(r), &entry); err != nil {
			return nil, fmt.Errorf("解析队列条目失败: %w", err)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
