package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"identidraw-be/internal/service/dto"
	"identidraw-be/internal/store"

	"go.uber.org/zap"
)

// LobbyService 管理以 6 位数字码为键的大厅记录。
// 所有修改都是对整条记录的读-改-写覆盖，每次写入刷新 TTL；
// 没有版本检查，同一大厅的并发修改可能互相覆盖（见 DESIGN.md），
// 对小名单、人手速度的操作来说是可接受的。
type LobbyService struct {
	store      store.Store
	ttlSeconds int
}

func NewLobbyService(st store.Store, ttlSeconds int) *LobbyService {
	return &LobbyService{
		store:      st,
		ttlSeconds: ttlSeconds,
	}
}

func lobbyKey(code string) string {
	return "lobby:" + code
}

func generateCode() string {
	return fmt.Sprintf("%06d", rand.IntN(900000)+100000)
}

// Create 创建一个新大厅，房主是唯一成员，状态为 waiting。
// 大厅码随机生成，与现存大厅冲突时重试。
func (ls *LobbyService) Create(ctx context.Context, host dto.Player, mode string) (*dto.Lobby, error) {
	var code string

	for {
		code = generateCode()

		count, err := ls.store.Exists(ctx, lobbyKey(code))
		if err != nil {
			return nil, fmt.Errorf("检查大厅码冲突失败: %w", err)
		}
		if count == 0 {
			break
		}
	}

	lobby := &dto.Lobby{
		Code:      code,
		HostID:    host.ID,
		Players:   []dto.Player{host},
		Mode:      mode,
		Status:    dto.STATUS_WAITING,
		CreatedAt: time.Now().UnixMilli(),
	}

	if err := ls.update(ctx, lobby); err != nil {
		return nil, err
	}

	zap.S().Infof("大厅 %s 由 %s 创建（模式 %s）", code, host.Username, mode)

	return lobby, nil
}

// Get 返回大厅记录，不存在时返回 (nil, nil)。
func (ls *LobbyService) Get(ctx context.Context, code string) (*dto.Lobby, error) {
	data, err := ls.store.Get(ctx, lobbyKey(code))
	if err != nil {
		return nil, fmt.Errorf("读取大厅失败: %w", err)
	}
	if data == "" {
		return nil, nil
	}

	var lobby dto.Lobby

	if err := json.Unmarshal([]byte(data), &lobby); err != nil {
		return nil, fmt.Errorf("解析大厅记录失败: %w", err)
	}

	return &lobby, nil
}

// AddPlayer 将玩家加入大厅。大厅不存在或不在 waiting 状态时返回 (nil, nil)；
// 玩家已在名单中时幂等，原样返回大厅。
func (ls *LobbyService) AddPlayer(ctx context.Context, code string, player dto.Player) (*dto.Lobby, error) {
	lobby, err := ls.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if lobby == nil || lobby.Status != dto.STATUS_WAITING {
		return nil, nil
	}

	if lobby.FindPlayer(player.ID) != nil {
		return lobby, nil
	}

	lobby.Players = append(lobby.Players, player)

	if err := ls.update(ctx, lobby); err != nil {
		return nil, err
	}

	zap.S().Infof("大厅 %s 接纳玩家 %s", code, player.Username)

	return lobby, nil
}

// RemovePlayer 将玩家移出大厅。名单清空时删除大厅并返回 (nil, nil)；
// 房主离开时，房主按名单现有顺序转移给第一位玩家。
func (ls *LobbyService) RemovePlayer(ctx context.Context, code string, playerID string) (*dto.Lobby, error) {
	lobby, err := ls.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if lobby == nil {
		return nil, nil
	}

	remaining := lobby.Players[:0]
	for _, p := range lobby.Players {
		if p.ID != playerID {
			remaining = append(remaining, p)
		}
	}
	lobby.Players = remaining

	if len(lobby.Players) == 0 {
		if err := ls.Delete(ctx, code); err != nil {
			return nil, err
		}

		zap.S().Infof("大厅 %s 名单已空，删除", code)

		return nil, nil
	}

	if lobby.HostID == playerID {
		lobby.HostID = lobby.Players[0].ID

		zap.S().Infof("大厅 %s 房主转移给 %s", code, lobby.Players[0].Username)
	}

	if err := ls.update(ctx, lobby); err != nil {
		return nil, err
	}

	return lobby, nil
}

// UpdateSocketID 更新重连玩家的连接句柄，大厅或玩家不存在时为无操作。
func (ls *LobbyService) UpdateSocketID(ctx context.Context, code, playerID, socketID string) error {
	lobby, err := ls.Get(ctx, code)
	if err != nil {
		return err
	}
	if lobby == nil {
		return nil
	}

	player := lobby.FindPlayer(playerID)
	if player == nil {
		return nil
	}

	player.SocketID = socketID

	return ls.update(ctx, lobby)
}

// SetStatus 更新大厅状态，大厅不存在时为无操作。
func (ls *LobbyService) SetStatus(ctx context.Context, code, status string) error {
	lobby, err := ls.Get(ctx, code)
	if err != nil {
		return err
	}
	if lobby == nil {
		return nil
	}

	lobby.Status = status

	return ls.update(ctx, lobby)
}

func (ls *LobbyService) Delete(ctx context.Context, code string) error {
	return ls.store.Del(ctx, lobbyKey(code))
}

func (ls *LobbyService) update(ctx context.Context, lobby *dto.Lobby) error {
	data, err := json.Marshal(lobby)
	if err != nil {
		return fmt.Errorf("序列化大厅记录失败: %w", err)
	}

	if err := ls.store.Setex(ctx, lobbyKey(lobby.Code), ls.ttlSeconds, string(data)); err != nil {
		return fmt.Errorf("写入大厅记录失败: %w", err)
	}

	return nil
}
