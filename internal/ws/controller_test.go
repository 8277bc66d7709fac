package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adjsky/evil-cards-sub000/internal/game"
	"github.com/adjsky/evil-cards-sub000/internal/proto"
	"github.com/adjsky/evil-cards-sub000/internal/registry"
)

func testProvider() game.DeckProvider {
	deck := game.Deck{}
	for i := 0; i < 10; i++ {
		deck.Prompts = append(deck.Prompts, game.Card{ID: fmt.Sprintf("p%d", i)})
	}
	for i := 0; i < 40; i++ {
		deck.Responses = append(deck.Responses, game.Card{ID: fmt.Sprintf("r%d", i)})
	}
	return game.StaticProvider{"normal": deck}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := registry.New(testProvider(), zap.NewNop())
	// No directory: mirroring is disabled, gameplay is unaffected.
	c := NewController(reg, nil, "localhost", zap.NewNop())
	srv := httptest.NewServer(Routes(c))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := strings.Replace(srv.URL, "http", "ws", 1) + "/ws"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "bye") })
	return conn
}

func sendMsg(t *testing.T, conn *websocket.Conn, typ proto.Type, data any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, proto.Encode(typ, data)))
}

// recvType reads frames until one of the wanted type arrives, skipping
// heartbeats and unrelated broadcasts so tests never depend on exact
// interleaving.
func recvType(t *testing.T, conn *websocket.Conn, want proto.Type) proto.Envelope {
	t.Helper()
	// Long enough to cover the fixed game-start delay.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, raw, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %q", want)
		var env proto.Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		if env.Type == want {
			return env
		}
	}
}

func createRoom(t *testing.T, conn *websocket.Conn, nickname string) proto.SessionPayload {
	t.Helper()
	sendMsg(t, conn, proto.TypeCreateSession, proto.CreateSession{
		Nickname: nickname, Avatar: 1, ClientVersion: 1,
	})
	env := recvType(t, conn, proto.TypeCreate)
	var payload proto.SessionPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	return payload
}

func joinRoom(t *testing.T, conn *websocket.Conn, roomID, nickname string) proto.SessionPayload {
	t.Helper()
	sendMsg(t, conn, proto.TypeJoinSession, proto.JoinSession{
		Nickname: nickname, Avatar: 2, RoomID: roomID, ClientVersion: 1,
	})
	env := recvType(t, conn, proto.TypeJoin)
	var payload proto.SessionPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	return payload
}

func recvError(t *testing.T, conn *websocket.Conn) proto.ErrorPayload {
	t.Helper()
	env := recvType(t, conn, proto.TypeError)
	var payload proto.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	return payload
}

func TestCreateAndJoinSession(t *testing.T) {
	srv := newTestServer(t)

	host := dial(t, srv)
	created := createRoom(t, host, "alex")
	require.NotEmpty(t, created.PlayerID)
	require.NotEmpty(t, created.Room.ID)
	assert.Equal(t, game.PhaseWaiting, created.Room.Phase)
	require.Len(t, created.Room.Players, 1)
	assert.True(t, created.Room.Players[0].Host)

	guest := dial(t, srv)
	joined := joinRoom(t, guest, created.Room.ID, "blair")
	assert.Len(t, joined.Room.Players, 2)

	// The host hears about the newcomer. Joiners never receive their own
	// join broadcast; the reply snapshot already covers them, so the first
	// playerjoin each connection sees is always somebody else's.
	env := recvType(t, host, proto.TypePlayerJoin)
	var broadcast proto.PlayerJoinPayload
	require.NoError(t, json.Unmarshal(env.Data, &broadcast))
	assert.Equal(t, "blair", broadcast.Player.Nickname)
	assert.Len(t, broadcast.Players, 2)

	third := dial(t, srv)
	joinRoom(t, third, created.Room.ID, "casey")

	env = recvType(t, guest, proto.TypePlayerJoin)
	var second proto.PlayerJoinPayload
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.Equal(t, "casey", second.Player.Nickname)
	assert.Len(t, second.Players, 3)
}

func TestJoin_ErrorsGoOnlyToOffender(t *testing.T) {
	srv := newTestServer(t)

	host := dial(t, srv)
	created := createRoom(t, host, "alex")

	dup := dial(t, srv)
	sendMsg(t, dup, proto.TypeJoinSession, proto.JoinSession{
		Nickname: "alex", Avatar: 0, RoomID: created.Room.ID, ClientVersion: 1,
	})
	assert.Equal(t, game.KindNicknameTaken, recvError(t, dup).Kind)

	stranger := dial(t, srv)
	sendMsg(t, stranger, proto.TypeJoinSession, proto.JoinSession{
		Nickname: "casey", Avatar: 0, RoomID: "NOSUCH", ClientVersion: 1,
	})
	assert.Equal(t, game.KindSessionNotFound, recvError(t, stranger).Kind)

	old := dial(t, srv)
	sendMsg(t, old, proto.TypeJoinSession, proto.JoinSession{
		Nickname: "drew", Avatar: 0, RoomID: created.Room.ID, ClientVersion: 99,
	})
	assert.Equal(t, game.KindVersionMismatch, recvError(t, old).Kind)
}

func TestStartGame_NotEnoughPlayers(t *testing.T) {
	srv := newTestServer(t)

	host := dial(t, srv)
	created := createRoom(t, host, "alex")
	guest := dial(t, srv)
	joinRoom(t, guest, created.Room.ID, "blair")

	sendMsg(t, host, proto.TypeStartGame, nil)
	assert.Equal(t, game.KindNotEnoughPlayers, recvError(t, host).Kind)
}

func TestFullGameStartOverWire(t *testing.T) {
	srv := newTestServer(t)

	host := dial(t, srv)
	created := createRoom(t, host, "alex")
	for _, nickname := range []string{"blair", "casey"} {
		guest := dial(t, srv)
		joinRoom(t, guest, created.Room.ID, nickname)
	}

	sendMsg(t, host, proto.TypeStartGame, nil)
	recvType(t, host, proto.TypeGameStart)

	// The fixed start delay elapses and voting opens with a private hand.
	env := recvType(t, host, proto.TypeVotingStart)
	var voting proto.VotingStartPayload
	require.NoError(t, json.Unmarshal(env.Data, &voting))
	assert.Len(t, voting.Hand, game.HandSize)
	assert.NotEmpty(t, voting.JudgeID)
	assert.NotEmpty(t, voting.Prompt.ID)
	assert.True(t, time.Until(voting.Deadline) > 0, "deadline is absolute and in the future")
}

func TestKickPlayer(t *testing.T) {
	srv := newTestServer(t)

	host := dial(t, srv)
	created := createRoom(t, host, "alex")
	guest := dial(t, srv)
	joined := joinRoom(t, guest, created.Room.ID, "blair")
	recvType(t, host, proto.TypePlayerJoin)

	sendMsg(t, guest, proto.TypeKickPlayer, proto.KickPlayer{PlayerID: created.PlayerID})
	assert.Equal(t, game.KindNotHost, recvError(t, guest).Kind)

	sendMsg(t, host, proto.TypeKickPlayer, proto.KickPlayer{PlayerID: joined.PlayerID})
	recvType(t, guest, proto.TypeKicked)

	env := recvType(t, host, proto.TypePlayerLeave)
	var leave proto.PlayerLeavePayload
	require.NoError(t, json.Unmarshal(env.Data, &leave))
	assert.Equal(t, joined.PlayerID, leave.PlayerID)
	assert.Len(t, leave.Players, 1)
}

func TestMalformedMessage(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("not json")))
	assert.Equal(t, game.KindInternal, recvError(t, conn).Kind)

	// The connection stays usable afterwards.
	createRoom(t, conn, "alex")
}

func TestChatBroadcast(t *testing.T) {
	srv := newTestServer(t)

	host := dial(t, srv)
	created := createRoom(t, host, "alex")
	guest := dial(t, srv)
	joinRoom(t, guest, created.Room.ID, "blair")

	sendMsg(t, guest, proto.TypeChat, proto.Chat{Message: "hello there"})

	env := recvType(t, host, proto.TypeChat)
	var chat proto.ChatPayload
	require.NoError(t, json.Unmarshal(env.Data, &chat))
	assert.Equal(t, "blair", chat.Nickname)
	assert.Equal(t, "hello there", chat.Message)
}
