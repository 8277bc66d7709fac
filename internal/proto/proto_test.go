package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adjsky/evil-cards-sub000/internal/game"
)

func TestDecode_TypedPayloads(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"joinsession","data":{"nickname":"alex","avatar":2,"roomId":"ABC123","clientVersion":1}}`))
	require.NoError(t, err)
	join, ok := msg.(JoinSession)
	require.True(t, ok)
	assert.Equal(t, "alex", join.Nickname)
	assert.Equal(t, "ABC123", join.RoomID)
	assert.Equal(t, 1, join.ClientVersion)

	msg, err = Decode([]byte(`{"type":"vote","data":{"cardId":"r4"}}`))
	require.NoError(t, err)
	vote, ok := msg.(CastVote)
	require.True(t, ok)
	assert.Equal(t, "r4", vote.CardID)

	msg, err = Decode([]byte(`{"type":"startgame"}`))
	require.NoError(t, err)
	_, ok = msg.(StartGame)
	assert.True(t, ok)

	msg, err = Decode([]byte(`{"type":"pong"}`))
	require.NoError(t, err)
	_, ok = msg.(Pong)
	assert.True(t, ok)
}

func TestDecode_Rejections(t *testing.T) {
	_, err := Decode([]byte(`{"type":"selfdestruct"}`))
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = Decode([]byte(`not json at all`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Decode([]byte(`{"type":"vote","data":"not an object"}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncode_Roundtrip(t *testing.T) {
	raw := Encode(TypeError, ErrorPayload{Kind: game.KindNicknameTaken, Message: "taken"})

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, TypeError, env.Type)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, game.KindNicknameTaken, payload.Kind)
}

func TestEncode_NoData(t *testing.T) {
	raw := Encode(TypePing, nil)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, TypePing, env.Type)
	assert.Empty(t, env.Data)
}
