/*
Package handler provides the HTTP handlers and routing setup for the chat server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"chatsync/internal/pkg/auth/jwt"
	"chatsync/internal/pkg/limiter"
	"chatsync/internal/pkg/logx"
	"chatsync/internal/pkg/resp"
)

const (
	ConnectRate  = 0.5
	ConnectBurst = 10
	HistoryRate  = 5
	HistoryBurst = 20
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and per-route middleware.
// The limiters' cleanup goroutines stop when ctx is done.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	connectLimiter, historyLimiter := newLimiters(ctx)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			// Non-browser clients send no Origin header.
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		logx.Debug("Health check endpoint hit")

		data := map[string]string{
			"status":  "ok",
			"service": "chatsync",
		}
		resp.RespondSuccess(w, r, data)
	})

	listMessages := historyLimiter.Middleware(HandleListMessages(deps.Store, deps.Config.HistoryMaxLimit))
	identity := jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret)

	r.Route("/api", func(api chi.Router) {
		api.Use(identity)

		api.Method(http.MethodGet, "/messages", listMessages)
		api.Get("/files/{id}", HandleDownloadFile(deps.Store, deps.Blobs))
	})

	r.With(identity).Method(http.MethodGet, "/messages", listMessages)

	r.Get("/ws", HandleWebSocket(deps.Hub, wsUpgrader, connectLimiter))

	return r
}

// newLimiters builds the connect and history limiters and stops both once ctx ends.
func newLimiters(ctx context.Context) (connect, history *limiter.IPRateLimiter) {
	connect = limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)
	history = limiter.NewIPRateLimiter(rate.Limit(HistoryRate), HistoryBurst)

	context.AfterFunc(ctx, func() {
		connect.Stop()
		history.Stop()
	})

	return connect, history
}
