// Package router is the stateless front door: it tells clients which game
// server to connect to, and streams the public room list to browsers.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/adjsky/evil-cards-sub000/internal/directory"
	"github.com/adjsky/evil-cards-sub000/internal/fleet"
)

type Router struct {
	dir *directory.Directory
	sel *fleet.Selector
	log *zap.Logger

	mu          sync.Mutex
	subscribers map[chan []byte]struct{}
}

func New(dir *directory.Directory, sel *fleet.Selector, log *zap.Logger) *Router {
	return &Router{
		dir:         dir,
		sel:         sel,
		log:         log,
		subscribers: make(map[chan []byte]struct{}),
	}
}

func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", rt.route)
	r.Get("/rooms", rt.listRooms)
	r.Get("/ws", rt.subscribeRooms)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

// route answers "which server": a point lookup when roomId is given, the next
// round-robin instance otherwise. A stale directory degrades to 404 here and
// a polite room-not-found on the target server, never to corruption.
func (rt *Router) route(w http.ResponseWriter, r *http.Request) {
	if roomID := r.URL.Query().Get("roomId"); roomID != "" {
		rec, err := rt.dir.Get(r.Context(), roomID)
		if errors.Is(err, directory.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "room not found"})
			return
		}
		if err != nil {
			rt.log.Error("directory lookup failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "directory unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"host": rec.Server})
		return
	}

	inst, err := rt.sel.Next()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "no server available"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"host": inst.Host})
}

func (rt *Router) listRooms(w http.ResponseWriter, r *http.Request) {
	records, err := rt.dir.List(r.Context())
	if err != nil {
		rt.log.Error("directory scan failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "directory unavailable"})
		return
	}
	if records == nil {
		records = []directory.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// subscribeRooms streams the public room list: once on connect, then on every
// directory change until the client goes away.
func (rt *Router) subscribeRooms(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	out := make(chan []byte, 8)
	rt.addSubscriber(out)
	defer rt.removeSubscriber(out)

	if payload, err := rt.snapshot(r.Context()); err == nil {
		_ = conn.Write(r.Context(), websocket.MessageText, payload)
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case payload := <-out:
			if err := conn.Write(r.Context(), websocket.MessageText, payload); err != nil {
				return
			}
		}
	}
}

// Run relays directory change notifications to every subscriber until ctx is
// cancelled.
func (rt *Router) Run(ctx context.Context) {
	changes := rt.dir.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			payload, err := rt.snapshot(ctx)
			if err != nil {
				rt.log.Warn("room list refresh failed", zap.Error(err))
				continue
			}
			rt.mu.Lock()
			for sub := range rt.subscribers {
				select {
				case sub <- payload:
				default:
					// Slow subscriber keeps only the freshest list.
				}
			}
			rt.mu.Unlock()
		}
	}
}

func (rt *Router) snapshot(ctx context.Context) ([]byte, error) {
	records, err := rt.dir.List(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []directory.Record{}
	}
	return json.Marshal(records)
}

func (rt *Router) addSubscriber(ch chan []byte) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.subscribers[ch] = struct{}{}
}

func (rt *Router) removeSubscriber(ch chan []byte) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	delete(rt.subscribers, ch)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
