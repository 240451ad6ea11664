package game

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"identidraw-be/internal/service/dto"
	"identidraw-be/internal/store"

	"go.uber.org/zap"
)

// Engine 是对局状态的纯转换器：对局记录整体存于共享存储中，
// 每次修改都是读-改-写覆盖并刷新 TTL。
// 笔画缓冲是刻意的进程内瞬态数据，不进共享存储，
// 迟到的客户端通过显式请求回放，而不是靠状态同步。
type Engine struct {
	store      store.Store
	ttlSeconds int

	mu      sync.Mutex
	strokes map[string][]map[string]any
}

func NewEngine(st store.Store, ttlSeconds int) *Engine {
	return &Engine{
		store:      st,
		ttlSeconds: ttlSeconds,
		strokes:    make(map[string][]map[string]any),
	}
}

func gameKey(code string) string {
	return "game:" + code
}

// GuessResult 是一次有效猜测的处理结果。
type GuessResult struct {
	State   *GameState
	Attempt GuessAttempt
}

// Create 从大厅名单创建对局。抽取与人数相同的互不重复的动物，
// 随机打乱名单顺序后在打乱后的顺序上构建环形知情链
// （与加入顺序无关），对局从 countdown 开始。
func (e *Engine) Create(ctx context.Context, lobbyCode string, players []dto.Player) (*GameState, error) {
	names := RandomAnimals(len(players))

	shuffled := make([]dto.Player, len(players))
	copy(shuffled, players)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	gamePlayers := make([]GamePlayer, len(shuffled))
	for i, p := range shuffled {
		gamePlayers[i] = GamePlayer{
			ID:             p.ID,
			Username:       p.Username,
			SocketID:       p.SocketID,
			Animal:         names[i],
			KnownPlayerID:  shuffled[(i+1)%len(shuffled)].ID,
			CorrectGuesses: []string{},
		}
	}

	state := &GameState{
		LobbyCode: lobbyCode,
		Players:   gamePlayers,
		Status:    dto.STATUS_COUNTDOWN,
		StartedAt: time.Now().UnixMilli(),
	}

	if err := e.update(ctx, state); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.strokes[lobbyCode] = []map[string]any{}
	e.mu.Unlock()

	zap.S().Infof("对局 %s 创建，%d 名玩家", lobbyCode, len(gamePlayers))

	return state, nil
}

// Get 返回对局状态，不存在时返回 (nil, nil)。
func (e *Engine) Get(ctx context.Context, code string) (*GameState, error) {
	data, err := e.store.Get(ctx, gameKey(code))
	if err != nil {
		return nil, fmt.Errorf("读取对局状态失败: %w", err)
	}
	if data == "" {
		return nil, nil
	}

	var state GameState

	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("解析对局状态失败: %w", err)
	}

	return &state, nil
}

// SetPlaying 将对局从 countdown 切到 playing，对局不存在时返回 (nil, nil)。
func (e *Engine) SetPlaying(ctx context.Context, code string) (*GameState, error) {
	state, err := e.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}

	state.Status = dto.STATUS_PLAYING

	if err := e.update(ctx, state); err != nil {
		return nil, err
	}

	return state, nil
}

// ProcessGuess 处理一次猜测，无效的猜测返回 (nil, nil) 且不改动任何状态。
// 无效包括：对局不存在或不在 playing；猜测者或目标不在局内；
// 猜自己；猜自己开局就已知情的玩家；猜已被淘汰的玩家。
// 判定规则：去除首尾空白后不区分大小写的精确匹配。
func (e *Engine) ProcessGuess(ctx context.Context, code, guesserID, targetID, guess string) (*GuessResult, error) {
	state, err := e.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if state == nil || state.Status != dto.STATUS_PLAYING {
		return nil, nil
	}

	guesser := state.FindPlayer(guesserID)
	target := state.FindPlayer(targetID)
	if guesser == nil || target == nil {
		return nil, nil
	}

	if guesserID == targetID {
		return nil, nil
	}
	if guesser.KnownPlayerID == targetID {
		return nil, nil
	}
	if target.IsEliminated {
		return nil, nil
	}

	correct := strings.EqualFold(
		strings.TrimSpace(guess),
		strings.TrimSpace(target.Animal),
	)

	attempt := GuessAttempt{
		GuesserID:   guesserID,
		GuesserName: guesser.Username,
		TargetID:    targetID,
		TargetName:  target.Username,
		Guess:       guess,
		Correct:     correct,
		Timestamp:   time.Now().UnixMilli(),
	}

	if correct {
		target.IsEliminated = true
		target.GuessedBy = guesserID

		// 去重记账，重复命中不重复计入
		alreadyCredited := false
		for _, id := range guesser.CorrectGuesses {
			if id == targetID {
				alreadyCredited = true
				break
			}
		}
		if !alreadyCredited {
			guesser.CorrectGuesses = append(guesser.CorrectGuesses, targetID)
		}

		e.checkWinConditions(state)
	}

	if err := e.update(ctx, state); err != nil {
		return nil, err
	}

	return &GuessResult{
		State:   state,
		Attempt: attempt,
	}, nil
}

// checkWinConditions 按优先级判定胜负：
// 1. 只剩一名未淘汰玩家时，该玩家以 last_standing 获胜；
// 2. 某玩家的可猜对手集合（除自己和其已知情玩家外的所有人）
//    非空且全部被其猜中时，该玩家以 guessed_all 获胜。
func (e *Engine) checkWinConditions(state *GameState) {
	active := make([]*GamePlayer, 0, len(state.Players))
	for i := range state.Players {
		if !state.Players[i].IsEliminated {
			active = append(active, &state.Players[i])
		}
	}

	if len(active) == 1 {
		state.Status = dto.STATUS_FINISHED
		state.WinnerID = active[0].ID
		state.WinReason = WIN_REASON_LAST_STANDING
		return
	}

	for i := range state.Players {
		player := &state.Players[i]

		guessableCount := 0
		allGuessed := true

		for j := range state.Players {
			other := &state.Players[j]
			if other.ID == player.ID || other.ID == player.KnownPlayerID {
				continue
			}

			guessableCount++

			credited := false
			for _, id := range player.CorrectGuesses {
				if id == other.ID {
					credited = true
					break
				}
			}
			if !credited {
				allGuessed = false
				break
			}
		}

		if allGuessed && guessableCount > 0 {
			state.Status = dto.STATUS_FINISHED
			state.WinnerID = player.ID
			state.WinReason = WIN_REASON_GUESSED_ALL
			return
		}
	}
}

// AddStroke 追加一条笔画到进程内缓冲。
func (e *Engine) AddStroke(code string, stroke map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.strokes[code] = append(e.strokes[code], stroke)
}

// GetStrokes 返回某对局按顺序缓冲的全部笔画。
func (e *Engine) GetStrokes(code string) []map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()

	strokes := e.strokes[code]

	result := make([]map[string]any, len(strokes))
	copy(result, strokes)

	return result
}

// Cleanup 删除对局状态与其笔画缓冲。
func (e *Engine) Cleanup(ctx context.Context, code string) error {
	if err := e.store.Del(ctx, gameKey(code)); err != nil {
		return fmt.Errorf("删除对局状态失败: %w", err)
	}

	e.mu.Lock()
	delete(e.strokes, code)
	e.mu.Unlock()

	return nil
}

func (e *Engine) update(ctx context.Context, state *GameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("序列化对局状态失败: %w", err)
	}

	if err := e.store.Setex(ctx, gameKey(state.LobbyCode), e.ttlSeconds, string(data)); err != nil {
		return fmt.Errorf("写入对局状态失败: %w", err)
	}

	return nil
}
