package ws

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func Routes(c *Controller) http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", c.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}
