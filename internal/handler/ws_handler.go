/*
Package handler provides the HTTP handlers and routing setup for the realtime service.

This file contains the HandleWebSocket function, which is responsible for rate limiting,
authenticating the handshake, upgrading the HTTP connection to WebSocket, and initiating
the session lifecycle.
*/
package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"studysync/internal/app/chat"
	"studysync/internal/pkg/errs"
	"studysync/internal/pkg/limiter"
	"studysync/internal/pkg/logx"
	"studysync/internal/pkg/resp"
)

// handshakeToken extracts the bearer token from the query string or the
// Authorization header. Browser WebSocket clients cannot set headers, so the
// query form is the primary one.
func handshakeToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		identity, customErr := chat.Authenticate(r.Context(), deps.Directory, deps.Config.JWTSecret, handshakeToken(r))
		if customErr != nil {
			logx.Warn("WebSocket connection rejected: Authentication failed.", "code", customErr.Code)
			resp.RespondError(w, r, customErr)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		session := chat.NewSession(deps.Runtime, conn, identity)

		go session.WritePump()

		logx.Info("WebSocket connection established",
			"connection_id", session.ID(),
			"user_id", identity.UserID,
		)

		session.ReadPump()
	}
}
