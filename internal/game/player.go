package game

// Player is one seat in a room. Owned exclusively by its Room; never shared.
type Player struct {
	ID           string
	Nickname     string
	Avatar       int
	Score        int
	Host         bool
	Judge        bool
	Voted        bool
	Disconnected bool
	Hand         []Card

	// removal purges the seat after the reconnect grace window.
	removal *Timer
}

func (p *Player) takeCard(cardID string) (Card, bool) {
	for i, c := range p.Hand {
		if c.ID == cardID {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return c, true
		}
	}
	return Card{}, false
}

// PlayerInfo is the broadcast-safe view of a Player (no hand).
type PlayerInfo struct {
	ID           string `json:"id"`
	Nickname     string `json:"nickname"`
	Avatar       int    `json:"avatar"`
	Score        int    `json:"score"`
	Host         bool   `json:"host"`
	Judge        bool   `json:"judge"`
	Voted        bool   `json:"voted"`
	Disconnected bool   `json:"disconnected"`
}

func (p *Player) info() PlayerInfo {
	return PlayerInfo{
		ID:           p.ID,
		Nickname:     p.Nickname,
		Avatar:       p.Avatar,
		Score:        p.Score,
		Host:         p.Host,
		Judge:        p.Judge,
		Voted:        p.Voted,
		Disconnected: p.Disconnected,
	}
}

// Vote is one submitted response card for the current round.
type Vote struct {
	PlayerID string `json:"playerId"`
	Card     Card   `json:"card"`
	Visible  bool   `json:"visible"`
	Winner   bool   `json:"winner"`
}
