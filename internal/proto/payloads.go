package proto

import (
	"time"

	"github.com/adjsky/evil-cards-sub000/internal/game"
)

// Server payloads.

type ErrorPayload struct {
	Kind    game.Kind `json:"kind"`
	Message string    `json:"message"`
}

// SessionPayload answers createsession and joinsession with the caller's
// player id and a personalized room snapshot.
type SessionPayload struct {
	PlayerID string            `json:"playerId"`
	Room     game.RoomSnapshot `json:"room"`
}

type PlayerJoinPayload struct {
	Player  game.PlayerInfo   `json:"player"`
	Players []game.PlayerInfo `json:"players"`
}

type PlayerLeavePayload struct {
	PlayerID string            `json:"playerId"`
	Players  []game.PlayerInfo `json:"players"`
}

type ConfigurationPayload struct {
	Configuration game.Configuration `json:"configuration"`
}

type GameStartPayload struct {
	Players  []game.PlayerInfo `json:"players"`
	Deadline time.Time         `json:"deadline"`
}

// VotingStartPayload is personalized: Hand carries the recipient's own cards.
type VotingStartPayload struct {
	Prompt   game.Card         `json:"prompt"`
	JudgeID  string            `json:"judgeId"`
	Players  []game.PlayerInfo `json:"players"`
	Hand     []game.Card       `json:"hand"`
	Deadline time.Time         `json:"deadline"`
}

type VotePayload struct {
	PlayerID string `json:"playerId"`
	Count    int    `json:"count"`
}

type ChoosingStartPayload struct {
	Votes []game.Vote `json:"votes"`
}

type ChoosePayload struct {
	PlayerID string    `json:"playerId"`
	Card     game.Card `json:"card"`
}

type WinnerCardViewPayload struct {
	PlayerID string            `json:"playerId"`
	Card     game.Card         `json:"card"`
	Players  []game.PlayerInfo `json:"players"`
	Deadline time.Time         `json:"deadline"`
}

type GameEndPayload struct {
	WinnerID string            `json:"winnerId,omitempty"`
	Players  []game.PlayerInfo `json:"players"`
}

// DiscardPayload carries the fresh hand only on the owner's copy.
type DiscardPayload struct {
	PlayerID string      `json:"playerId"`
	Score    int         `json:"score"`
	Hand     []game.Card `json:"hand,omitempty"`
}

type ChatPayload struct {
	ID       string `json:"id"`
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Message  string `json:"message"`
}
