// Package proto defines the JSON wire protocol: an envelope tagged with a
// message type plus one payload struct per type. Decode returns the payload
// as a value of its concrete type, so the dispatch site is a type switch
// over a closed set rather than a string switch scattered with field checks.
package proto

import (
	"encoding/json"
	"errors"

	"github.com/adjsky/evil-cards-sub000/internal/game"
)

type Type string

// Client → server.
const (
	TypeCreateSession       Type = "createsession"
	TypeJoinSession         Type = "joinsession"
	TypeStartGame           Type = "startgame"
	TypeVote                Type = "vote"
	TypeChoose              Type = "choose"
	TypeChooseWinner        Type = "choosewinner"
	TypeDiscardCards        Type = "discardcards"
	TypeKickPlayer          Type = "kickplayer"
	TypeUpdateConfiguration Type = "updateconfiguration"
	TypeChat                Type = "chat"
	TypePong                Type = "pong"
)

// Server → client.
const (
	TypeCreate              Type = "create"
	TypeJoin                Type = "join"
	TypeError               Type = "error"
	TypePing                Type = "ping"
	TypePlayerJoin          Type = "playerjoin"
	TypePlayerLeave         Type = "playerleave"
	TypeKicked              Type = "kicked"
	TypeConfigurationChange Type = "configurationchange"
	TypeGameStart           Type = "gamestart"
	TypeVotingStart         Type = "votingstart"
	TypeChoosingStart       Type = "choosingstart"
	TypeChoosingWinnerStart Type = "choosingwinnerstart"
	TypeWinnerCardView      Type = "winnercardview"
	TypeGameEnd             Type = "gameend"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

type Envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client payloads.

type CreateSession struct {
	Nickname      string `json:"nickname"`
	Avatar        int    `json:"avatar"`
	ClientVersion int    `json:"clientVersion"`
}

type JoinSession struct {
	Nickname      string `json:"nickname"`
	Avatar        int    `json:"avatar"`
	RoomID        string `json:"roomId"`
	ClientVersion int    `json:"clientVersion"`
}

type StartGame struct{}

type CastVote struct {
	CardID string `json:"cardId"`
}

type Choose struct {
	PlayerID string `json:"playerId"`
}

type ChooseWinner struct {
	PlayerID string `json:"playerId"`
}

type DiscardCards struct{}

type KickPlayer struct {
	PlayerID string `json:"playerId"`
}

type UpdateConfiguration struct {
	Configuration game.Configuration `json:"configuration"`
}

type Chat struct {
	Message string `json:"message"`
}

type Pong struct{}

// Decode parses a raw inbound frame into its typed payload.
func Decode(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrMalformed
	}

	decode := func(into any) (any, error) {
		if len(env.Data) == 0 {
			return into, nil
		}
		if err := json.Unmarshal(env.Data, into); err != nil {
			return nil, ErrMalformed
		}
		return into, nil
	}

	switch env.Type {
	case TypeCreateSession:
		m := CreateSession{}
		if _, err := decode(&m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeJoinSession:
		m := JoinSession{}
		if _, err := decode(&m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeStartGame:
		return StartGame{}, nil
	case TypeVote:
		m := CastVote{}
		if _, err := decode(&m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeChoose:
		m := Choose{}
		if _, err := decode(&m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeChooseWinner:
		m := ChooseWinner{}
		if _, err := decode(&m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeDiscardCards:
		return DiscardCards{}, nil
	case TypeKickPlayer:
		m := KickPlayer{}
		if _, err := decode(&m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeUpdateConfiguration:
		m := UpdateConfiguration{}
		if _, err := decode(&m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeChat:
		m := Chat{}
		if _, err := decode(&m); err != nil {
			return nil, err
		}
		return m, nil
	case TypePong:
		return Pong{}, nil
	default:
		return nil, ErrUnknownType
	}
}

// Encode wraps a payload in the envelope for the wire.
func Encode(t Type, data any) []byte {
	var raw json.RawMessage
	if data != nil {
		raw, _ = json.Marshal(data)
	}
	out, _ := json.Marshal(Envelope{Type: t, Data: raw})
	return out
}
