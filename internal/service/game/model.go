package game

// 获胜原因
const (
	WIN_REASON_LAST_STANDING = "last_standing"
	WIN_REASON_GUESSED_ALL   = "guessed_all"
)

// GamePlayer 是对局内的玩家状态。
// 不变量：KnownPlayerID 关系在全体玩家上构成一个长度为 n 的有向环
// （玩家 i 知道玩家 (i+1) mod n 的动物），因此每个玩家恰好知道
// 一个他人的秘密，也恰好被一个他人知道。
type GamePlayer struct {
	ID             string   `json:"id"`
	Username       string   `json:"username"`
	SocketID       string   `json:"socketId"`
	Animal         string   `json:"animal"`
	KnownPlayerID  string   `json:"knownPlayerId"`
	GuessedBy      string   `json:"guessedBy,omitempty"`
	CorrectGuesses []string `json:"correctGuesses"`
	IsEliminated   bool     `json:"isEliminated"`
}

// GameState 是一场对局的完整状态，状态机严格单向：
// countdown -> playing -> finished，finished 为终态。
type GameState struct {
	LobbyCode string       `json:"lobbyCode"`
	Players   []GamePlayer `json:"players"`
	Status    string       `json:"status"`
	WinnerID  string       `json:"winnerId,omitempty"`
	WinReason string       `json:"winReason,omitempty"`
	StartedAt int64        `json:"startedAt"`
}

func (gs *GameState) FindPlayer(playerID string) *GamePlayer {
	for i := range gs.Players {
		if gs.Players[i].ID == playerID {
			return &gs.Players[i]
		}
	}

	return nil
}

// GuessAttempt 是一次猜测的不可变记录，用于广播与聊天展示。
type GuessAttempt struct {
	GuesserID   string `json:"guesserId"`
	GuesserName string `json:"guesserName"`
	TargetID    string `json:"targetId"`
	TargetName  string `json:"targetName"`
	Guess       string `json:"guess"`
	Correct     bool   `json:"correct"`
	Timestamp   int64  `json:"timestamp"`
}
