package dto

import (
	"encoding/json"

	"go.uber.org/zap"
)

// 客户端发送的事件类型
const (
	REQ_AUTH = "auth"

	REQ_LOBBY_CREATE     = "lobby:create"
	REQ_LOBBY_JOIN       = "lobby:join"
	REQ_LOBBY_LEAVE      = "lobby:leave"
	REQ_LOBBY_CHAT       = "lobby:chat"
	REQ_LOBBY_START_GAME = "lobby:startGame"

	REQ_GAME_DRAW            = "game:draw"
	REQ_GAME_CLEAR_CANVAS    = "game:clearCanvas"
	REQ_GAME_GUESS           = "game:guess"
	REQ_GAME_REQUEST_STROKES = "game:requestStrokes"

	REQ_MATCHMAKING_JOIN  = "matchmaking:join"
	REQ_MATCHMAKING_LEAVE = "matchmaking:leave"
)

// 服务器发送的事件类型
const (
	RESP_ERROR = "error"

	RESP_AUTH = "auth"

	RESP_LOBBY_UPDATED      = "lobby:updated"
	RESP_LOBBY_CHAT_MESSAGE = "lobby:chatMessage"

	RESP_GAME_INIT              = "game:init"
	RESP_GAME_COUNTDOWN         = "game:countdown"
	RESP_GAME_STARTED           = "game:started"
	RESP_GAME_DRAW              = "game:draw"
	RESP_GAME_CLEAR_CANVAS      = "game:clearCanvas"
	RESP_GAME_GUESS_RESULT      = "game:guessResult"
	RESP_GAME_PLAYER_ELIMINATED = "game:playerEliminated"
	RESP_GAME_FINISHED          = "game:finished"
	RESP_GAME_STROKE_REPLAY     = "game:strokeReplay"
	RESP_GAME_RETURN_TO_LOBBY   = "game:returnToLobby"
	RESP_GAME_RETURN_TO_HOME    = "game:returnToHome"

	RESP_MATCHMAKING_QUEUE_SIZE = "matchmaking:queueSize"
	RESP_MATCHMAKING_MATCHED    = "matchmaking:matched"
)

// RequestWrapper 是入站消息的带标签联合体。
// 未知或格式错误的载荷在连接边界就被拒绝，不会进入领域逻辑。
type RequestWrapper struct {
	ReqType string          `json:"request_type"`
	Data    json.RawMessage `json:"data"`
}

type ResponseWrapper struct {
	RespType string `json:"response_type"`
	Data     any    `json:"data,omitempty"`
	ErrMsg   string `json:"error_message,omitempty"`
}

func WrapResponse(respType string, data any) ResponseWrapper {
	return ResponseWrapper{
		RespType: respType,
		Data:     data,
	}
}

func WrapErrResponse(errMsg string) ResponseWrapper {
	return ResponseWrapper{
		RespType: RESP_ERROR,
		ErrMsg:   errMsg,
	}
}

// 请求载荷

type AuthRequest struct {
	Token string `json:"token"`
}

type JoinLobbyRequest struct {
	Code string `json:"code"`
}

type LeaveLobbyRequest struct {
	Code string `json:"code"`
}

type ChatRequest struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StartGameRequest struct {
	Code string `json:"code"`
}

type DrawRequest struct {
	Code string `json:"code"`
	// 笔画内容对服务器是不透明的 JSON，原样转发，仅补上 playerId
	Stroke json.RawMessage `json:"stroke"`
}

type ClearCanvasRequest struct {
	Code string `json:"code"`
}

type GuessRequest struct {
	Code     string `json:"code"`
	TargetID string `json:"targetId"`
	Guess    string `json:"guess"`
}

type RequestStrokesRequest struct {
	Code string `json:"code"`
}

// 响应载荷

type Ack struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type LobbyAck struct {
	Success bool   `json:"success"`
	Lobby   *Lobby `json:"lobby,omitempty"`
	Error   string `json:"error,omitempty"`
}

type GuessAck struct {
	Success bool   `json:"success"`
	Correct bool   `json:"correct"`
	Error   string `json:"error,omitempty"`
}

type AuthAck struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`
}

type PublicPlayer struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type KnownPlayerAnimal struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	Animal   string `json:"animal"`
}

// GameInitResponse 只发给单个玩家，绝不向整个房间广播秘密
type GameInitResponse struct {
	YourAnimal        string            `json:"yourAnimal"`
	KnownPlayerAnimal KnownPlayerAnimal `json:"knownPlayerAnimal"`
	Players           []PublicPlayer    `json:"players"`
}

type CountdownResponse struct {
	Seconds int `json:"seconds"`
}

type PlayerEliminatedResponse struct {
	PlayerID  string `json:"playerId"`
	Animal    string `json:"animal"`
	GuessedBy string `json:"guessedBy"`
}

type FinalPlayer struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Animal       string `json:"animal"`
	IsEliminated bool   `json:"isEliminated"`
}

type GameFinishedResponse struct {
	WinnerID  string        `json:"winnerId"`
	WinReason string        `json:"winReason"`
	Players   []FinalPlayer `json:"players"`
}

type QueueSizeResponse struct {
	Size int64 `json:"size"`
}

type MatchedResponse struct {
	LobbyCode string `json:"lobbyCode"`
}

type ClearCanvasResponse struct {
	PlayerID string `json:"playerId"`
}

func unmarshalPayload[T any](wrapper RequestWrapper, reqType string) *T {
	if wrapper.ReqType != reqType {
		return nil
	}

	var payload T

	// 无载荷事件（如 lobby:create）允许 data 缺失
	if len(wrapper.Data) == 0 {
		return &payload
	}

	if err := json.Unmarshal(wrapper.Data, &payload); err != nil {
		zap.L().Error(
			"解析请求载荷失败",
			zap.String("request_type", wrapper.ReqType),
			zap.Error(err),
		)
		return nil
	}

	return &payload
}

func TryUnwrapAuthRequest(wrapper RequestWrapper) *AuthRequest {
	req := unmarshalPayload[AuthRequest](wrapper, REQ_AUTH)
	if req == nil || req.Token == "" {
		return nil
	}

	return req
}

func TryUnwrapJoinLobbyRequest(wrapper RequestWrapper) *JoinLobbyRequest {
	req := unmarshalPayload[JoinLobbyRequest](wrapper, REQ_LOBBY_JOIN)
	if req == nil || !IsValidLobbyCode(req.Code) {
		return nil
	}

	return req
}

func TryUnwrapLeaveLobbyRequest(wrapper RequestWrapper) *LeaveLobbyRequest {
	req := unmarshalPayload[LeaveLobbyRequest](wrapper, REQ_LOBBY_LEAVE)
	if req == nil || !IsValidLobbyCode(req.Code) {
		return nil
	}

	return req
}

func TryUnwrapChatRequest(wrapper RequestWrapper) *ChatRequest {
	req := unmarshalPayload[ChatRequest](wrapper, REQ_LOBBY_CHAT)
	if req == nil || !IsValidLobbyCode(req.Code) || req.Message == "" {
		return nil
	}

	return req
}

func TryUnwrapStartGameRequest(wrapper RequestWrapper) *StartGameRequest {
	req := unmarshalPayload[StartGameRequest](wrapper, REQ_LOBBY_START_GAME)
	if req == nil || !IsValidLobbyCode(req.Code) {
		return nil
	}

	return req
}

func TryUnwrapDrawRequest(wrapper RequestWrapper) *DrawRequest {
	req := unmarshalPayload[DrawRequest](wrapper, REQ_GAME_DRAW)
	if req == nil || !IsValidLobbyCode(req.Code) || len(req.Stroke) == 0 {
		return nil
	}

	return req
}

func TryUnwrapClearCanvasRequest(wrapper RequestWrapper) *ClearCanvasRequest {
	req := unmarshalPayload[ClearCanvasRequest](wrapper, REQ_GAME_CLEAR_CANVAS)
	if req == nil || !IsValidLobbyCode(req.Code) {
		return nil
	}

	return req
}

func TryUnwrapGuessRequest(wrapper RequestWrapper) *GuessRequest {
	req := unmarshalPayload[GuessRequest](wrapper, REQ_GAME_GUESS)
	if req == nil || !IsValidLobbyCode(req.Code) || req.TargetID == "" || req.Guess == "" {
		return nil
	}

	return req
}

func TryUnwrapRequestStrokesRequest(wrapper RequestWrapper) *RequestStrokesRequest {
	req := unmarshalPayload[RequestStrokesRequest](wrapper, REQ_GAME_REQUEST_STROKES)
	if req == nil || !IsValidLobbyCode(req.Code) {
		return nil
	}

	return req
}

// IsValidLobbyCode 校验大厅码是否为 6 位数字串。
func IsValidLobbyCode(code string) bool {
	if len(code) != 6 {
		return false
	}

	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}
