// Package registry owns the per-process map of live rooms. There is at most
// one authoritative Room per id process-wide; the session directory elsewhere
// is only a read replica of the public ones.
package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/adjsky/evil-cards-sub000/internal/game"
)

type Registry struct {
	mu       sync.Mutex
	rooms    map[string]*game.Room
	provider game.DeckProvider
	log      *zap.Logger
}

func New(provider game.DeckProvider, log *zap.Logger) *Registry {
	return &Registry{
		rooms:    make(map[string]*game.Room),
		provider: provider,
		log:      log,
	}
}

// Create builds a fresh room under a newly generated code. version is the
// creating client's version and gates every later join.
func (r *Registry) Create(version int) (*game.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		code, err := game.GenerateCode()
		if err != nil {
			return nil, err
		}
		if _, taken := r.rooms[code]; taken {
			r.log.Debug("room code collision, regenerating", zap.String("code", code))
			continue
		}
		room := game.NewRoom(code, version, r.provider, r.log)
		r.rooms[code] = room
		return room, nil
	}
}

func (r *Registry) Get(id string) (*game.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[id]
	return room, ok
}

// Remove closes the room and drops it from the map. No-op for unknown ids.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	room, ok := r.rooms[id]
	delete(r.rooms, id)
	r.mu.Unlock()
	if ok {
		room.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// All snapshots the current room set, for shutdown cleanup.
func (r *Registry) All() []*game.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*game.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	return out
}

// Close tears down every room.
func (r *Registry) Close() {
	for _, room := range r.All() {
		r.Remove(room.ID())
	}
}
