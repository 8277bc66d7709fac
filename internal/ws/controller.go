// Package ws binds websocket connections to rooms: it validates and
// dispatches inbound protocol messages, fans room events out as broadcasts,
// and mirrors public-room facts into the session directory.
package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/adjsky/evil-cards-sub000/internal/directory"
	"github.com/adjsky/evil-cards-sub000/internal/game"
	"github.com/adjsky/evil-cards-sub000/internal/proto"
	"github.com/adjsky/evil-cards-sub000/internal/registry"
)

const (
	pingInterval   = 5 * time.Second
	writeTimeout   = 5 * time.Second
	mirrorTimeout  = 3 * time.Second
	sendBuffer     = 32
	maxMissedPongs = 2
	maxNickname    = 20
	kickCloseGrace = 250 * time.Millisecond
)

// destroyDelay is how long an empty room lingers before destruction, giving
// its last player a window to reconnect. Shortened by tests.
var destroyDelay = 30 * time.Second

// client is one websocket connection, bound to at most one (room, player)
// pair. room and playerID are written only by the connection's own read
// goroutine; the broadcast path goes through the Controller's maps instead.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	missed atomic.Int32

	room     *game.Room
	playerID string
}

// Controller is the only component that touches sockets. One per process.
// Connection bookkeeping lives here as instance fields, never as package
// state, so multiple servers can coexist in one test binary.
type Controller struct {
	registry *registry.Registry
	dir      *directory.Directory // nil disables mirroring
	host     string               // public address written to directory records
	log      *zap.Logger

	mu     sync.Mutex
	conns  map[string]*client            // player id → connection
	rooms  map[string]map[string]*client // room id → player id → connection
	graves map[string]*game.Timer        // room id → pending destruction
}

func NewController(reg *registry.Registry, dir *directory.Directory, host string, log *zap.Logger) *Controller {
	return &Controller{
		registry: reg,
		dir:      dir,
		host:     host,
		log:      log,
		conns:    make(map[string]*client),
		rooms:    make(map[string]map[string]*client),
		graves:   make(map[string]*game.Timer),
	}
}

// Handler upgrades and serves one connection until it drops.
func (c *Controller) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			return
		}

		cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go cl.writePump(ctx)
		go c.heartbeat(ctx, cl)

		c.readLoop(ctx, cl)
		c.teardown(cl)
	}
}

func (c *Controller) readLoop(ctx context.Context, cl *client) {
	for {
		_, data, err := cl.conn.Read(ctx)
		if err != nil {
			return
		}
		c.dispatch(cl, data)
	}
}

// teardown runs once the read loop exits, for any reason including a kick.
func (c *Controller) teardown(cl *client) {
	if cl.room != nil {
		c.unbind(cl)
		cl.room.Leave(cl.playerID)
		c.mirror(cl.room)
	}
	cl.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (c *Controller) dispatch(cl *client, data []byte) {
	msg, err := proto.Decode(data)
	if err != nil {
		// Malformed input never touches room state.
		c.send(cl, proto.Encode(proto.TypeError, proto.ErrorPayload{
			Kind:    game.KindInternal,
			Message: err.Error(),
		}))
		return
	}

	switch m := msg.(type) {
	case proto.CreateSession:
		c.handleCreate(cl, m)
	case proto.JoinSession:
		c.handleJoin(cl, m)
	case proto.StartGame:
		c.withRoom(cl, func(room *game.Room, playerID string) error {
			return room.StartGame(playerID)
		})
	case proto.CastVote:
		c.withRoom(cl, func(room *game.Room, playerID string) error {
			return room.Vote(playerID, m.CardID)
		})
	case proto.Choose:
		c.withRoom(cl, func(room *game.Room, playerID string) error {
			return room.Choose(playerID, m.PlayerID)
		})
	case proto.ChooseWinner:
		c.withRoom(cl, func(room *game.Room, playerID string) error {
			return room.ChooseWinner(playerID, m.PlayerID)
		})
	case proto.DiscardCards:
		c.withRoom(cl, func(room *game.Room, playerID string) error {
			return room.DiscardCards(playerID)
		})
	case proto.KickPlayer:
		c.withRoom(cl, func(room *game.Room, playerID string) error {
			return room.Kick(playerID, m.PlayerID)
		})
	case proto.UpdateConfiguration:
		c.withRoom(cl, func(room *game.Room, playerID string) error {
			return room.UpdateConfiguration(playerID, m.Configuration)
		})
	case proto.Chat:
		c.withRoom(cl, func(room *game.Room, playerID string) error {
			return room.Chat(playerID, m.Message)
		})
	case proto.Pong:
		cl.missed.Store(0)
	}
}

// withRoom runs op against the client's bound room, turning failures into an
// error reply to this connection only.
func (c *Controller) withRoom(cl *client, op func(room *game.Room, playerID string) error) {
	if cl.room == nil {
		c.sendError(cl, game.ErrSessionNotFound)
		return
	}
	if err := op(cl.room, cl.playerID); err != nil {
		c.sendError(cl, err)
	}
}

func (c *Controller) handleCreate(cl *client, m proto.CreateSession) {
	if cl.room != nil {
		c.sendError(cl, game.ErrNotAllowed)
		return
	}
	if !validNickname(m.Nickname) {
		c.sendError(cl, game.ErrNotAllowed)
		return
	}
	room, err := c.registry.Create(m.ClientVersion)
	if err != nil {
		c.log.Error("room create failed", zap.Error(err))
		c.sendError(cl, game.ErrInternal)
		return
	}
	go c.consumeEvents(room)

	player, err := room.Join(m.Nickname, m.Avatar, m.ClientVersion)
	if err != nil {
		c.registry.Remove(room.ID())
		c.sendError(cl, err)
		return
	}
	c.bind(cl, room, player.ID)
	c.send(cl, proto.Encode(proto.TypeCreate, proto.SessionPayload{
		PlayerID: player.ID,
		Room:     room.Snapshot(player.ID),
	}))
	c.mirror(room)
}

func (c *Controller) handleJoin(cl *client, m proto.JoinSession) {
	if cl.room != nil {
		c.sendError(cl, game.ErrNotAllowed)
		return
	}
	if !validNickname(m.Nickname) {
		c.sendError(cl, game.ErrNotAllowed)
		return
	}
	room, ok := c.registry.Get(m.RoomID)
	if !ok {
		c.sendError(cl, game.ErrSessionNotFound)
		return
	}
	player, err := room.Join(m.Nickname, m.Avatar, m.ClientVersion)
	if err != nil {
		c.sendError(cl, err)
		return
	}
	c.bind(cl, room, player.ID)
	c.send(cl, proto.Encode(proto.TypeJoin, proto.SessionPayload{
		PlayerID: player.ID,
		Room:     room.Snapshot(player.ID),
	}))
	c.mirror(room)
}

func (c *Controller) bind(cl *client, room *game.Room, playerID string) {
	cl.room = room
	cl.playerID = playerID

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[playerID] = cl
	members, ok := c.rooms[room.ID()]
	if !ok {
		members = make(map[string]*client)
		c.rooms[room.ID()] = members
	}
	members[playerID] = cl
	if grave, ok := c.graves[room.ID()]; ok {
		grave.Stop()
		delete(c.graves, room.ID())
	}
}

func (c *Controller) unbind(cl *client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, cl.playerID)
	if members, ok := c.rooms[cl.room.ID()]; ok {
		delete(members, cl.playerID)
		if len(members) == 0 {
			delete(c.rooms, cl.room.ID())
		}
	}
}

func (c *Controller) sendError(cl *client, err error) {
	var ge *game.Error
	if !errors.As(err, &ge) {
		c.log.Error("unclassified gameplay error", zap.Error(err))
		ge = game.ErrInternal
	}
	c.send(cl, proto.Encode(proto.TypeError, proto.ErrorPayload{
		Kind:    ge.Kind,
		Message: ge.Message,
	}))
}

// send queues a frame; a client whose queue is full is dropped rather than
// allowed to stall everyone else.
func (c *Controller) send(cl *client, payload []byte) {
	select {
	case cl.send <- payload:
	default:
		cl.conn.Close(websocket.StatusPolicyViolation, "too slow")
	}
}

// sendTo targets one player id if it is connected to this process.
func (c *Controller) sendTo(playerID string, payload []byte) {
	c.mu.Lock()
	cl, ok := c.conns[playerID]
	c.mu.Unlock()
	if ok {
		c.send(cl, payload)
	}
}

// broadcast fans a frame out to every connected member of a room.
// Disconnected seats have no entry here, so they are never targeted.
func (c *Controller) broadcast(roomID string, payload []byte) {
	c.mu.Lock()
	members := make([]*client, 0, len(c.rooms[roomID]))
	for _, cl := range c.rooms[roomID] {
		members = append(members, cl)
	}
	c.mu.Unlock()
	for _, cl := range members {
		c.send(cl, payload)
	}
}

func (cl *client) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-cl.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := cl.conn.Write(wctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// heartbeat probes the client on a fixed interval. Two consecutive
// unanswered probes mean a half-open connection; close it so the seat frees
// up through the normal leave path.
func (c *Controller) heartbeat(ctx context.Context, cl *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	ping := proto.Encode(proto.TypePing, nil)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if cl.missed.Load() >= maxMissedPongs {
				cl.conn.Close(websocket.StatusPolicyViolation, "heartbeat timeout")
				return
			}
			cl.missed.Add(1)
			c.send(cl, ping)
		}
	}
}

// Drain best-effort deletes every directory record this process owns. Called
// on shutdown; abandoned rooms are not handed off.
func (c *Controller) Drain(ctx context.Context) {
	if c.dir == nil {
		return
	}
	for _, room := range c.registry.All() {
		if err := c.dir.Delete(ctx, room.ID()); err != nil {
			c.log.Warn("drain: directory delete failed",
				zap.String("room", room.ID()), zap.Error(err))
		}
	}
}

func validNickname(nickname string) bool {
	return nickname != "" && len(nickname) <= maxNickname
}
