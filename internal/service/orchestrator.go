package service

import (
	"context"
	"time"

	"identidraw-be/internal/config"
	"identidraw-be/internal/service/dto"
	"identidraw-be/internal/service/game"

	"go.uber.org/zap"
)

// Orchestrator 是会话生命周期的粘合层，也是唯一拥有广播与计时决策权
// 的组件；下层的注册表、队列和引擎只是存储之上的纯状态转换器。
type Orchestrator struct {
	cfg       *config.AppConfig
	lobbies   *LobbyService
	queue     *MatchmakingService
	engine    *game.Engine
	scheduler TaskScheduler
	bc        Broadcaster
}

func NewOrchestrator(
	cfg *config.AppConfig,
	lobbies *LobbyService,
	queue *MatchmakingService,
	engine *game.Engine,
	scheduler TaskScheduler,
	bc Broadcaster,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		lobbies:   lobbies,
		queue:     queue,
		engine:    engine,
		scheduler: scheduler,
		bc:        bc,
	}
}

// CreateLobby 创建一个私房大厅，创建者即房主。
func (o *Orchestrator) CreateLobby(ctx context.Context, player dto.Player) dto.LobbyAck {
	lobby, err := o.lobbies.Create(ctx, player, dto.MODE_PRIVATE)
	if err != nil {
		zap.L().Error("创建大厅失败", zap.Error(err))
		return dto.LobbyAck{Success: false, Error: "创建大厅失败"}
	}

	o.bc.JoinRoom(player.SocketID, lobby.Code)

	return dto.LobbyAck{Success: true, Lobby: lobby}
}

// JoinLobby 按大厅码加入，成功后向全房间广播最新名单。
func (o *Orchestrator) JoinLobby(ctx context.Context, player dto.Player, code string) dto.LobbyAck {
	lobby, err := o.lobbies.AddPlayer(ctx, code, player)
	if err != nil {
		zap.L().Error("加入大厅失败", zap.String("code", code), zap.Error(err))
		return dto.LobbyAck{Success: false, Error: "加入大厅失败"}
	}
	if lobby == nil {
		return dto.LobbyAck{Success: false, Error: "大厅不存在或对局已开始"}
	}

	// 同一玩家重连时刷新连接句柄
	if existing := lobby.FindPlayer(player.ID); existing != nil && existing.SocketID != player.SocketID {
		if err := o.lobbies.UpdateSocketID(ctx, code, player.ID, player.SocketID); err != nil {
			zap.L().Warn("刷新连接句柄失败", zap.String("code", code), zap.Error(err))
		}
		existing.SocketID = player.SocketID
	}

	o.bc.JoinRoom(player.SocketID, code)
	o.bc.Broadcast(code, dto.WrapResponse(dto.RESP_LOBBY_UPDATED, lobby))

	return dto.LobbyAck{Success: true, Lobby: lobby}
}

// LeaveLobby 将玩家移出大厅，剩余成员收到名单更新。
func (o *Orchestrator) LeaveLobby(ctx context.Context, playerID, socketID, code string) {
	lobby, err := o.lobbies.RemovePlayer(ctx, code, playerID)
	if err != nil {
		zap.L().Error("离开大厅失败", zap.String("code", code), zap.Error(err))
		return
	}

	o.bc.LeaveRoom(socketID, code)

	if lobby != nil {
		o.bc.Broadcast(code, dto.WrapResponse(dto.RESP_LOBBY_UPDATED, lobby))
	}
}

// Chat 是纯转发的广播，不落任何状态。
func (o *Orchestrator) Chat(code string, player dto.Player, message string) {
	o.bc.Broadcast(code, dto.WrapResponse(dto.RESP_LOBBY_CHAT_MESSAGE, dto.ChatMessage{
		PlayerID:  player.ID,
		Username:  player.Username,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	}))
}

// StartGame 由房主发起开局：校验人数与权限后进入倒计时。
func (o *Orchestrator) StartGame(ctx context.Context, code, requesterID string) dto.Ack {
	lobby, err := o.lobbies.Get(ctx, code)
	if err != nil {
		zap.L().Error("读取大厅失败", zap.String("code", code), zap.Error(err))
		return dto.Ack{Success: false, Error: "开始游戏失败"}
	}
	if lobby == nil {
		return dto.Ack{Success: false, Error: "大厅不存在"}
	}
	if lobby.HostID != requesterID {
		return dto.Ack{Success: false, Error: "只有房主可以开始游戏"}
	}
	if len(lobby.Players) < o.cfg.MinPlayers {
		return dto.Ack{Success: false, Error: "玩家数量不足，无法开始"}
	}

	if err := o.startSession(ctx, lobby); err != nil {
		zap.L().Error("创建对局失败", zap.String("code", code), zap.Error(err))
		return dto.Ack{Success: false, Error: "开始游戏失败"}
	}

	return dto.Ack{Success: true}
}

// startSession 执行开局共同流程：大厅转入 countdown、创建对局、
// 向每个玩家单播其私密分配（绝不向房间广播秘密）、
// 广播倒计时时长，并安排倒计时结束后的 playing 切换。
func (o *Orchestrator) startSession(ctx context.Context, lobby *dto.Lobby) error {
	code := lobby.Code

	if err := o.lobbies.SetStatus(ctx, code, dto.STATUS_COUNTDOWN); err != nil {
		return err
	}

	state, err := o.engine.Create(ctx, code, lobby.Players)
	if err != nil {
		return err
	}

	publicPlayers := make([]dto.PublicPlayer, 0, len(state.Players))
	for _, p := range state.Players {
		publicPlayers = append(publicPlayers, dto.PublicPlayer{
			ID:       p.ID,
			Username: p.Username,
		})
	}

	for _, gp := range state.Players {
		known := state.FindPlayer(gp.KnownPlayerID)
		if known == nil {
			continue
		}

		o.bc.Unicast(gp.SocketID, dto.WrapResponse(dto.RESP_GAME_INIT, dto.GameInitResponse{
			YourAnimal: gp.Animal,
			KnownPlayerAnimal: dto.KnownPlayerAnimal{
				PlayerID: known.ID,
				Username: known.Username,
				Animal:   known.Animal,
			},
			Players: publicPlayers,
		}))
	}

	o.bc.Broadcast(code, dto.WrapResponse(dto.RESP_GAME_COUNTDOWN, dto.CountdownResponse{
		Seconds: o.cfg.CountdownSeconds,
	}))

	// 倒计时结束切入 playing。计时器触发时大厅/对局可能已被删除，
	// 各操作对缺失记录一律无操作。
	o.scheduler.Schedule(
		code+":countdown",
		time.Duration(o.cfg.CountdownSeconds)*time.Second,
		func() {
			ctx := context.Background()

			state, err := o.engine.SetPlaying(ctx, code)
			if err != nil {
				zap.L().Error("切换对局到 playing 失败", zap.String("code", code), zap.Error(err))
				return
			}
			if state == nil {
				return
			}

			if err := o.lobbies.SetStatus(ctx, code, dto.STATUS_PLAYING); err != nil {
				zap.L().Error("更新大厅状态失败", zap.String("code", code), zap.Error(err))
			}

			o.bc.Broadcast(code, dto.WrapResponse(dto.RESP_GAME_STARTED, nil))
		},
	)

	return nil
}

// Draw 缓存笔画并转发给房间内除绘制者外的所有人。
func (o *Orchestrator) Draw(code, playerID, socketID string, stroke map[string]any) {
	stroke["playerId"] = playerID

	o.engine.AddStroke(code, stroke)
	o.bc.BroadcastExcept(code, socketID, dto.WrapResponse(dto.RESP_GAME_DRAW, stroke))
}

// ClearCanvas 通知其他玩家某人清空了画布。
func (o *Orchestrator) ClearCanvas(code, playerID, socketID string) {
	o.bc.BroadcastExcept(code, socketID, dto.WrapResponse(dto.RESP_GAME_CLEAR_CANVAS, dto.ClearCanvasResponse{
		PlayerID: playerID,
	}))
}

// RequestStrokes 向请求者单播笔画回放。
func (o *Orchestrator) RequestStrokes(code, socketID string) {
	o.bc.Unicast(socketID, dto.WrapResponse(dto.RESP_GAME_STROKE_REPLAY, o.engine.GetStrokes(code)))
}

// Guess 处理一次猜测，并按固定顺序广播结果：
// guessResult -> （命中时）playerEliminated -> （终局时）finished。
// 终局后按大厅模式安排延迟收尾：私房重置回 waiting 并召回玩家，
// 匹配房解散并送玩家回主页。
func (o *Orchestrator) Guess(ctx context.Context, code, guesserID, targetID, guessText string) dto.GuessAck {
	result, err := o.engine.ProcessGuess(ctx, code, guesserID, targetID, guessText)
	if err != nil {
		zap.L().Error("处理猜测失败", zap.String("code", code), zap.Error(err))
		return dto.GuessAck{Success: false, Error: "处理猜测失败"}
	}
	if result == nil {
		return dto.GuessAck{Success: false, Error: "无效的猜测"}
	}

	o.bc.Broadcast(code, dto.WrapResponse(dto.RESP_GAME_GUESS_RESULT, result.Attempt))

	if result.Attempt.Correct {
		target := result.State.FindPlayer(targetID)

		eliminated := dto.PlayerEliminatedResponse{
			PlayerID:  targetID,
			GuessedBy: guesserID,
		}
		if target != nil {
			eliminated.Animal = target.Animal
		}

		o.bc.Broadcast(code, dto.WrapResponse(dto.RESP_GAME_PLAYER_ELIMINATED, eliminated))
	}

	if result.State.Status == dto.STATUS_FINISHED {
		o.finishSession(ctx, code, result.State)
	}

	return dto.GuessAck{Success: true, Correct: result.Attempt.Correct}
}

func (o *Orchestrator) finishSession(ctx context.Context, code string, state *game.GameState) {
	finalPlayers := make([]dto.FinalPlayer, 0, len(state.Players))
	for _, p := range state.Players {
		finalPlayers = append(finalPlayers, dto.FinalPlayer{
			ID:           p.ID,
			Username:     p.Username,
			Animal:       p.Animal,
			IsEliminated: p.IsEliminated,
		})
	}

	o.bc.Broadcast(code, dto.WrapResponse(dto.RESP_GAME_FINISHED, dto.GameFinishedResponse{
		WinnerID:  state.WinnerID,
		WinReason: state.WinReason,
		Players:   finalPlayers,
	}))

	zap.S().Infof("对局 %s 结束：%s 以 %s 获胜", code, state.WinnerID, state.WinReason)

	delay := time.Duration(o.cfg.ReturnDelaySeconds) * time.Second

	lobby, err := o.lobbies.Get(ctx, code)
	if err != nil {
		zap.L().Error("读取大厅失败", zap.String("code", code), zap.Error(err))
	}

	if lobby != nil && lobby.Mode == dto.MODE_PRIVATE {
		// 私房：玩家回到同一大厅再来一局
		if err := o.lobbies.SetStatus(ctx, code, dto.STATUS_WAITING); err != nil {
			zap.L().Error("重置大厅状态失败", zap.String("code", code), zap.Error(err))
		}

		o.scheduler.Schedule(code+":teardown", delay, func() {
			o.bc.Broadcast(code, dto.WrapResponse(dto.RESP_GAME_RETURN_TO_LOBBY, nil))
		})
	} else {
		// 匹配房：解散大厅，玩家回主页
		o.scheduler.Schedule(code+":teardown", delay, func() {
			o.bc.Broadcast(code, dto.WrapResponse(dto.RESP_GAME_RETURN_TO_HOME, nil))

			if err := o.lobbies.Delete(context.Background(), code); err != nil {
				zap.L().Error("删除大厅失败", zap.String("code", code), zap.Error(err))
			}
		})
	}

	// 结果广播完成后即清理对局状态
	if err := o.engine.Cleanup(ctx, code); err != nil {
		zap.L().Error("清理对局失败", zap.String("code", code), zap.Error(err))
	}
}

// JoinQueue 将玩家加入匹配队列，并立即尝试成局。
func (o *Orchestrator) JoinQueue(ctx context.Context, player dto.Player) dto.Ack {
	if err := o.queue.Add(ctx, player); err != nil {
		zap.L().Error("加入匹配队列失败", zap.Error(err))
		return dto.Ack{Success: false, Error: "加入匹配失败"}
	}

	if size, err := o.queue.QueueSize(ctx); err == nil {
		o.bc.Unicast(player.SocketID, dto.WrapResponse(dto.RESP_MATCHMAKING_QUEUE_SIZE, dto.QueueSizeResponse{
			Size: size,
		}))
	}

	match, err := o.queue.TryMatch(ctx)
	if err != nil {
		zap.L().Error("尝试匹配失败", zap.Error(err))
		return dto.Ack{Success: false, Error: "加入匹配失败"}
	}

	if match != nil {
		o.startMatchmakingGame(ctx, match)
	}

	return dto.Ack{Success: true}
}

// LeaveQueue 将玩家移出匹配队列，尽力而为。
func (o *Orchestrator) LeaveQueue(ctx context.Context, playerID string) {
	if err := o.queue.Remove(ctx, playerID); err != nil {
		zap.L().Warn("移出匹配队列失败", zap.String("player_id", playerID), zap.Error(err))
	}
}

// startMatchmakingGame 为成局的玩家开始对局：
// 将所有连接拉入房间、单播匹配结果，其余流程与房主开局一致。
func (o *Orchestrator) startMatchmakingGame(ctx context.Context, match *MatchResult) {
	code := match.LobbyCode

	for _, p := range match.Players {
		o.bc.JoinRoom(p.SocketID, code)
		o.bc.Unicast(p.SocketID, dto.WrapResponse(dto.RESP_MATCHMAKING_MATCHED, dto.MatchedResponse{
			LobbyCode: code,
		}))
	}

	lobby, err := o.lobbies.Get(ctx, code)
	if err != nil {
		zap.L().Error("读取大厅失败", zap.String("code", code), zap.Error(err))
		return
	}
	if lobby == nil {
		return
	}

	if err := o.startSession(ctx, lobby); err != nil {
		zap.L().Error("创建匹配对局失败", zap.String("code", code), zap.Error(err))
	}
}

// Disconnect 在连接断开时做尽力而为的清理：
// 退出所在的全部大厅、移出匹配队列；对缺失记录一律无操作，
// 断线不是用户可见的失败事件，从不向外传播错误。
func (o *Orchestrator) Disconnect(ctx context.Context, player dto.Player, lobbyCodes []string) {
	for _, code := range lobbyCodes {
		o.LeaveLobby(ctx, player.ID, player.SocketID, code)
	}

	o.LeaveQueue(ctx, player.ID)
}
