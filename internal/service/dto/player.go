package dto

// Player 是通过身份校验后进入大厅的玩家信息。
// ID 来自身份提供方，跨连接稳定；SocketID 是每次连接的临时句柄，重连时更新。
type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	SocketID string `json:"socketId"`
}

type ChatMessage struct {
	PlayerID  string `json:"playerId"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
