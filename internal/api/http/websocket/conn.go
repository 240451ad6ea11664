package websocket

import (
	"context"
	"encoding/json"
	"time"

	"identidraw-be/internal/service/dto"
	"identidraw-be/internal/state"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

// Serve 处理一条事件通道连接的完整生命周期：
// 升级、首帧认证、读写协程、断线后的尽力清理。
func Serve(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		conn, err := upgrader.Upgrade(
			ctx.ResponseWriter(),
			ctx.Request(),
			nil,
		)
		if err != nil {
			zap.L().Error("升级到WebSocket失败", zap.Error(err))
			ctx.StatusCode(iris.StatusBadRequest)
			return
		}

		defer conn.Close()

		clientIP := ctx.RemoteAddr()

		// 连接在认证前不进入任何房间；首帧必须是 auth 请求
		conn.SetReadDeadline(time.Now().Add(AUTH_TIMEOUT))

		player, ok := authenticate(appState, conn, clientIP)
		if !ok {
			return
		}

		conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		conn.SetPongHandler(heartbeatHandler(conn))

		sendCh := make(chan dto.ResponseWrapper, 64)
		appState.Hub.Register(player.SocketID, sendCh)

		enqueue(sendCh, dto.WrapResponse(dto.RESP_AUTH, dto.AuthAck{
			Success:  true,
			PlayerID: player.ID,
			Username: player.Username,
		}))

		zap.L().Info(
			"玩家连接建立",
			zap.String("client_ip", clientIP),
			zap.String("player_id", player.ID),
			zap.String("player_name", player.Username),
		)

		// 写协程的退出信号
		writeDoneCh := make(chan struct{})
		defer close(writeDoneCh)

		go writeLoop(conn, sendCh, writeDoneCh, clientIP)

		// 读循环（主协程）
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(
					err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					zap.L().Error(
						"读取消息失败",
						zap.String("client_ip", clientIP),
						zap.Error(err),
					)
				}

				break
			}

			var wrapper dto.RequestWrapper

			if err := json.Unmarshal(msg, &wrapper); err != nil {
				zap.L().Error(
					"解析消息失败",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)

				enqueue(sendCh, dto.WrapErrResponse("无效的请求格式"))

				continue
			}

			dispatch(appState, player, wrapper, sendCh)
		}

		// 读循环退出表示连接断开，做尽力而为的清理：
		// 先收集该连接所在的房间，再从大厅与匹配队列中移除
		zap.L().Info(
			"客户端连接断开，开始清理",
			zap.String("client_ip", clientIP),
			zap.String("player_id", player.ID),
		)

		rooms := appState.Hub.RoomsOf(player.SocketID)
		appState.Orc.Disconnect(context.Background(), player, rooms)
		appState.Hub.Unregister(player.SocketID)
	}
}

// authenticate 读取并校验首帧 auth 请求，成功时返回绑定了
// 稳定身份与本连接句柄的玩家。
func authenticate(appState *state.AppState, conn *websocket.Conn, clientIP string) (dto.Player, bool) {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		zap.L().Error(
			"读取首帧失败",
			zap.String("client_ip", clientIP),
			zap.Error(err),
		)
		return dto.Player{}, false
	}

	var wrapper dto.RequestWrapper

	if err := json.Unmarshal(msg, &wrapper); err != nil {
		zap.L().Error(
			"解析首帧失败",
			zap.String("client_ip", clientIP),
			zap.Error(err),
		)
		return dto.Player{}, false
	}

	req := dto.TryUnwrapAuthRequest(wrapper)
	if req == nil {
		zap.L().Error(
			"首帧不是auth请求",
			zap.String("client_ip", clientIP),
			zap.String("request_type", wrapper.ReqType),
		)

		conn.WriteJSON(dto.WrapResponse(dto.RESP_AUTH, dto.AuthAck{
			Success: false,
			Error:   "连接后必须先完成认证",
		}))

		return dto.Player{}, false
	}

	user, err := appState.UserSvc.Lookup(context.Background(), req.Token)
	if err != nil {
		zap.L().Warn(
			"连接认证失败",
			zap.String("client_ip", clientIP),
			zap.Error(err),
		)

		conn.WriteJSON(dto.WrapResponse(dto.RESP_AUTH, dto.AuthAck{
			Success: false,
			Error:   err.Error(),
		}))

		return dto.Player{}, false
	}

	return dto.Player{
		ID:       user.ID,
		Username: user.Username,
		SocketID: genSocketID(),
	}, true
}

// writeLoop 消费发送通道并维持心跳，连接或通道关闭时退出。
func writeLoop(conn *websocket.Conn, sendCh <-chan dto.ResponseWrapper, doneCh <-chan struct{}, clientIP string) {
	ticker := time.NewTicker(HEARTBEAT_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case <-doneCh:
			zap.L().Debug(
				"WebSocket写入协程退出",
				zap.String("client_ip", clientIP),
			)
			return

		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				zap.L().Error(
					"发送心跳失败",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)
				return
			}

			conn.SetWriteDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))

		case resp := <-sendCh:
			if err := conn.WriteJSON(resp); err != nil {
				zap.L().Error(
					"发送消息失败",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)
				return
			}
		}
	}
}

// dispatch 把一条已解析的入站消息路由到编排器。
// 载荷校验失败的请求在这里就被拒绝，不会进入领域逻辑。
func dispatch(appState *state.AppState, player dto.Player, wrapper dto.RequestWrapper, sendCh chan dto.ResponseWrapper) {
	ctx := context.Background()
	orc := appState.Orc

	switch wrapper.ReqType {
	case dto.REQ_LOBBY_CREATE:
		ack := orc.CreateLobby(ctx, player)
		enqueue(sendCh, dto.WrapResponse(dto.REQ_LOBBY_CREATE, ack))

	case dto.REQ_LOBBY_JOIN:
		req := dto.TryUnwrapJoinLobbyRequest(wrapper)
		if req == nil {
			enqueue(sendCh, dto.WrapResponse(dto.REQ_LOBBY_JOIN, dto.LobbyAck{
				Success: false,
				Error:   "无效的大厅码",
			}))
			return
		}

		ack := orc.JoinLobby(ctx, player, req.Code)
		enqueue(sendCh, dto.WrapResponse(dto.REQ_LOBBY_JOIN, ack))

	case dto.REQ_LOBBY_LEAVE:
		req := dto.TryUnwrapLeaveLobbyRequest(wrapper)
		if req == nil {
			return
		}

		orc.LeaveLobby(ctx, player.ID, player.SocketID, req.Code)

	case dto.REQ_LOBBY_CHAT:
		req := dto.TryUnwrapChatRequest(wrapper)
		if req == nil {
			return
		}

		orc.Chat(req.Code, player, req.Message)

	case dto.REQ_LOBBY_START_GAME:
		req := dto.TryUnwrapStartGameRequest(wrapper)
		if req == nil {
			enqueue(sendCh, dto.WrapResponse(dto.REQ_LOBBY_START_GAME, dto.Ack{
				Success: false,
				Error:   "无效的大厅码",
			}))
			return
		}

		ack := orc.StartGame(ctx, req.Code, player.ID)
		enqueue(sendCh, dto.WrapResponse(dto.REQ_LOBBY_START_GAME, ack))

	case dto.REQ_GAME_DRAW:
		req := dto.TryUnwrapDrawRequest(wrapper)
		if req == nil {
			return
		}

		var stroke map[string]any
		if err := json.Unmarshal(req.Stroke, &stroke); err != nil {
			enqueue(sendCh, dto.WrapErrResponse("无效的笔画数据"))
			return
		}

		orc.Draw(req.Code, player.ID, player.SocketID, stroke)

	case dto.REQ_GAME_CLEAR_CANVAS:
		req := dto.TryUnwrapClearCanvasRequest(wrapper)
		if req == nil {
			return
		}

		orc.ClearCanvas(req.Code, player.ID, player.SocketID)

	case dto.REQ_GAME_GUESS:
		req := dto.TryUnwrapGuessRequest(wrapper)
		if req == nil {
			enqueue(sendCh, dto.WrapResponse(dto.REQ_GAME_GUESS, dto.GuessAck{
				Success: false,
				Error:   "无效的猜测请求",
			}))
			return
		}

		ack := orc.Guess(ctx, req.Code, player.ID, req.TargetID, req.Guess)
		enqueue(sendCh, dto.WrapResponse(dto.REQ_GAME_GUESS, ack))

	case dto.REQ_GAME_REQUEST_STROKES:
		req := dto.TryUnwrapRequestStrokesRequest(wrapper)
		if req == nil {
			return
		}

		orc.RequestStrokes(req.Code, player.SocketID)

	case dto.REQ_MATCHMAKING_JOIN:
		ack := orc.JoinQueue(ctx, player)
		enqueue(sendCh, dto.WrapResponse(dto.REQ_MATCHMAKING_JOIN, ack))

	case dto.REQ_MATCHMAKING_LEAVE:
		orc.LeaveQueue(ctx, player.ID)
		enqueue(sendCh, dto.WrapResponse(dto.REQ_MATCHMAKING_LEAVE, dto.Ack{Success: true}))

	default:
		zap.L().Warn(
			"未知的请求类型",
			zap.String("request_type", wrapper.ReqType),
			zap.String("player_id", player.ID),
		)

		enqueue(sendCh, dto.WrapErrResponse("未知的请求类型"))
	}
}

// enqueue 非阻塞入队，通道满时丢弃并告警。
func enqueue(sendCh chan dto.ResponseWrapper, resp dto.ResponseWrapper) {
	select {
	case sendCh <- resp:
	default:
		zap.L().Warn(
			"发送响应失败：连接发送通道已满",
			zap.String("response_type", resp.RespType),
		)
	}
}

func genSocketID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("Failed to generate UUID: " + err.Error())
	}

	s := id.String()

	return s[len(s)-8:]
}
