/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting,
upgrading the HTTP connection to WebSocket, and handing the connection to the hub.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"chatsync/internal/app/chat"
	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/limiter"
	"chatsync/internal/pkg/logx"
	"chatsync/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// The connection joins the chat later, through the join event.
func HandleWebSocket(hub *chat.Hub, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", logx.AnonymizeIP(ip))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		logx.Debug("WebSocket connection established", "ip", logx.AnonymizeIP(ip))

		hub.Serve(conn)
	}
}
