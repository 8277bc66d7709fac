package game

import "time"

// Event is the closed set of things a Room announces to its subscriber.
// Events carry everything the consumer needs so it never has to call back
// into the room from the event path.
type Event interface{ isRoomEvent() }

type PlayerJoined struct {
	Player  PlayerInfo
	Players []PlayerInfo
}

type PlayerLeft struct {
	PlayerID string
	Players  []PlayerInfo
}

type PlayerKicked struct {
	PlayerID string
	Players  []PlayerInfo
}

// RoomEmpty follows the PlayerLeft that disconnected the last player. The
// room stays alive for the grace window in case someone reconnects.
type RoomEmpty struct{}

type ConfigurationChanged struct {
	Configuration Configuration
}

type GameStarted struct {
	Players  []PlayerInfo
	Deadline time.Time
}

type VotingStarted struct {
	Prompt   Card
	JudgeID  string
	Players  []PlayerInfo
	Hands    map[string][]Card
	Deadline time.Time
}

type VoteCast struct {
	PlayerID string
	Count    int
}

type ChoosingStarted struct {
	Votes []Vote
}

type VoteRevealed struct {
	PlayerID string
	Card     Card
}

type ChoosingWinnerStarted struct {
	Votes []Vote
}

type WinnerChosen struct {
	PlayerID string
	Card     Card
	Players  []PlayerInfo
	Deadline time.Time
}

type GameEnded struct {
	WinnerID string
	Players  []PlayerInfo
}

type CardsDiscarded struct {
	PlayerID string
	Score    int
	Hand     []Card
}

type ChatMessage struct {
	ID       string
	PlayerID string
	Nickname string
	Message  string
}

func (PlayerJoined) isRoomEvent()          {}
func (PlayerLeft) isRoomEvent()            {}
func (PlayerKicked) isRoomEvent()          {}
func (RoomEmpty) isRoomEvent()             {}
func (ConfigurationChanged) isRoomEvent()  {}
func (GameStarted) isRoomEvent()           {}
func (VotingStarted) isRoomEvent()         {}
func (VoteCast) isRoomEvent()              {}
func (ChoosingStarted) isRoomEvent()       {}
func (VoteRevealed) isRoomEvent()          {}
func (ChoosingWinnerStarted) isRoomEvent() {}
func (WinnerChosen) isRoomEvent()          {}
func (GameEnded) isRoomEvent()             {}
func (CardsDiscarded) isRoomEvent()        {}
func (ChatMessage) isRoomEvent()           {}
