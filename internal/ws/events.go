package ws

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/adjsky/evil-cards-sub000/internal/directory"
	"github.com/adjsky/evil-cards-sub000/internal/game"
	"github.com/adjsky/evil-cards-sub000/internal/proto"
)

// consumeEvents drains a room's event stream for its whole lifetime, turning
// each event into protocol broadcasts. Runs on its own goroutine per room;
// exits when the room closes its channel.
func (c *Controller) consumeEvents(room *game.Room) {
	roomID := room.ID()
	for ev := range room.Events() {
		switch ev := ev.(type) {
		case game.PlayerJoined:
			// The joiner's create/join reply already carries the full
			// snapshot; everyone else hears about them here.
			c.broadcastExcept(roomID, ev.Player.ID, proto.Encode(proto.TypePlayerJoin, proto.PlayerJoinPayload{
				Player:  ev.Player,
				Players: ev.Players,
			}))
			c.mirror(room)

		case game.PlayerLeft:
			c.broadcast(roomID, proto.Encode(proto.TypePlayerLeave, proto.PlayerLeavePayload{
				PlayerID: ev.PlayerID,
				Players:  ev.Players,
			}))
			c.mirror(room)

		case game.PlayerKicked:
			c.sendTo(ev.PlayerID, proto.Encode(proto.TypeKicked, nil))
			// Let the write pump flush the notice before the close lands.
			kickedID := ev.PlayerID
			time.AfterFunc(kickCloseGrace, func() { c.closePlayer(kickedID) })
			c.broadcast(roomID, proto.Encode(proto.TypePlayerLeave, proto.PlayerLeavePayload{
				PlayerID: ev.PlayerID,
				Players:  ev.Players,
			}))
			c.mirror(room)

		case game.RoomEmpty:
			c.scheduleDestroy(roomID)

		case game.ConfigurationChanged:
			c.broadcast(roomID, proto.Encode(proto.TypeConfigurationChange, proto.ConfigurationPayload{
				Configuration: ev.Configuration,
			}))
			c.mirror(room)

		case game.GameStarted:
			c.broadcast(roomID, proto.Encode(proto.TypeGameStart, proto.GameStartPayload{
				Players:  ev.Players,
				Deadline: ev.Deadline,
			}))
			c.mirror(room)

		case game.VotingStarted:
			// Personalized: each member only sees their own hand.
			for playerID, hand := range ev.Hands {
				c.sendTo(playerID, proto.Encode(proto.TypeVotingStart, proto.VotingStartPayload{
					Prompt:   ev.Prompt,
					JudgeID:  ev.JudgeID,
					Players:  ev.Players,
					Hand:     hand,
					Deadline: ev.Deadline,
				}))
			}

		case game.VoteCast:
			c.broadcast(roomID, proto.Encode(proto.TypeVote, proto.VotePayload{
				PlayerID: ev.PlayerID,
				Count:    ev.Count,
			}))

		case game.ChoosingStarted:
			c.broadcast(roomID, proto.Encode(proto.TypeChoosingStart, proto.ChoosingStartPayload{
				Votes: maskVotes(ev.Votes),
			}))

		case game.VoteRevealed:
			c.broadcast(roomID, proto.Encode(proto.TypeChoose, proto.ChoosePayload{
				PlayerID: ev.PlayerID,
				Card:     ev.Card,
			}))

		case game.ChoosingWinnerStarted:
			c.broadcast(roomID, proto.Encode(proto.TypeChoosingWinnerStart, proto.ChoosingStartPayload{
				Votes: ev.Votes,
			}))

		case game.WinnerChosen:
			c.broadcast(roomID, proto.Encode(proto.TypeWinnerCardView, proto.WinnerCardViewPayload{
				PlayerID: ev.PlayerID,
				Card:     ev.Card,
				Players:  ev.Players,
				Deadline: ev.Deadline,
			}))

		case game.GameEnded:
			c.broadcast(roomID, proto.Encode(proto.TypeGameEnd, proto.GameEndPayload{
				WinnerID: ev.WinnerID,
				Players:  ev.Players,
			}))
			c.mirror(room)

		case game.CardsDiscarded:
			c.sendTo(ev.PlayerID, proto.Encode(proto.TypeDiscardCards, proto.DiscardPayload{
				PlayerID: ev.PlayerID,
				Score:    ev.Score,
				Hand:     ev.Hand,
			}))
			c.broadcastExcept(roomID, ev.PlayerID, proto.Encode(proto.TypeDiscardCards, proto.DiscardPayload{
				PlayerID: ev.PlayerID,
				Score:    ev.Score,
			}))

		case game.ChatMessage:
			c.broadcast(roomID, proto.Encode(proto.TypeChat, proto.ChatPayload{
				ID:       ev.ID,
				PlayerID: ev.PlayerID,
				Nickname: ev.Nickname,
				Message:  ev.Message,
			}))
		}
	}
}

func maskVotes(votes []game.Vote) []game.Vote {
	out := make([]game.Vote, len(votes))
	for i, v := range votes {
		if !v.Visible {
			v.Card = game.Card{}
		}
		out[i] = v
	}
	return out
}

func (c *Controller) broadcastExcept(roomID, exceptID string, payload []byte) {
	c.mu.Lock()
	members := make([]*client, 0, len(c.rooms[roomID]))
	for playerID, cl := range c.rooms[roomID] {
		if playerID != exceptID {
			members = append(members, cl)
		}
	}
	c.mu.Unlock()
	for _, cl := range members {
		c.send(cl, payload)
	}
}

// closePlayer force-closes a player's connection. The connection's own
// handler goroutine runs the usual teardown afterwards.
func (c *Controller) closePlayer(playerID string) {
	c.mu.Lock()
	cl, ok := c.conns[playerID]
	c.mu.Unlock()
	if ok {
		cl.conn.Close(websocket.StatusNormalClosure, "kicked")
	}
}

// mirror projects the room's public facts into the session directory,
// asynchronously: directory trouble degrades discoverability, never gameplay.
// Runs entirely off the event-consumer goroutine so the consumer never waits
// on the room lock and the room's event buffer keeps draining.
func (c *Controller) mirror(room *game.Room) {
	if c.dir == nil {
		return
	}
	roomID := room.ID()
	go func() {
		info, public := room.PublicInfo()
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		var err error
		if public {
			err = c.dir.Put(ctx, directory.Record{
				ID:           info.ID,
				Server:       c.host,
				Players:      info.Players,
				Playing:      info.Playing,
				Speed:        info.VotingDurationSeconds,
				Adult:        info.AdultOnly,
				HostNickname: info.HostNickname,
				HostAvatar:   info.HostAvatar,
			})
		} else {
			err = c.dir.Delete(ctx, roomID)
		}
		if err != nil {
			c.log.Warn("directory mirror failed", zap.String("room", roomID), zap.Error(err))
		}
	}()
}

// scheduleDestroy arms the grace window for an emptied room.
func (c *Controller) scheduleDestroy(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if grave, ok := c.graves[roomID]; ok {
		grave.Stop()
	}
	deadline := time.Now().Add(destroyDelay)
	c.graves[roomID] = game.NewTimer(deadline, func() { c.destroyRoom(roomID) })
}

func (c *Controller) destroyRoom(roomID string) {
	room, ok := c.registry.Get(roomID)
	if ok && !room.Empty() {
		// Someone reconnected while the timer was in flight.
		return
	}
	c.mu.Lock()
	delete(c.graves, roomID)
	c.mu.Unlock()

	c.registry.Remove(roomID)
	if c.dir != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := c.dir.Delete(ctx, roomID); err != nil {
			c.log.Warn("directory delete failed", zap.String("room", roomID), zap.Error(err))
		}
	}
	c.log.Info("room destroyed", zap.String("room", roomID))
}
