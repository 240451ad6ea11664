package dto

// 大厅模式
const (
	MODE_PRIVATE     = "private"
	MODE_MATCHMAKING = "matchmaking"
)

// 大厅状态，严格单向：waiting -> countdown -> playing -> finished
// 私房对局结束后会重置回 waiting
const (
	STATUS_WAITING   = "waiting"
	STATUS_COUNTDOWN = "countdown"
	STATUS_PLAYING   = "playing"
	STATUS_FINISHED  = "finished"
)

// Lobby 是赛前等待房间，以 6 位数字码标识。
// 不变量：HostID 始终指向 Players 中的某个玩家；名单清空时大厅被删除。
type Lobby struct {
	Code      string   `json:"code"`
	HostID    string   `json:"hostId"`
	Players   []Player `json:"players"`
	Mode      string   `json:"mode"`
	Status    string   `json:"status"`
	CreatedAt int64    `json:"createdAt"`
}

// FindPlayer 按 ID 在名单中查找玩家，找不到返回 nil。
func (l *Lobby) FindPlayer(playerID string) *Player {
	for i := range l.Players {
		if l.Players[i].ID == playerID {
			return &l.Players[i]
		}
	}

	return nil
}
