package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"

	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
)

func NewRouter(h *Handler, verifier httpmw.TokenVerifier, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httpmw.RequestLogger)

	// WS endpoint; token is verified in the handshake, not here.
	r.Get("/ws", wsServer.HandleWS)

	// REST surface requires a valid access token.
	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.AuthMiddleware(verifier))
		pr.Use(middlewareChi.Timeout(30 * time.Second))

		pr.Route("/rooms/{room}", func(rr chi.Router) {
			rr.Get("/members", h.GetMembers)
			rr.Get("/messages", h.GetHistory)
		})
		pr.Get("/messages/{id}/reactions", h.GetReactions)
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
