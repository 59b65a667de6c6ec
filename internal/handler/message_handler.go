/*
Package handler provides the HTTP handlers and routing setup for the realtime service.

This file contains the handler serving a room's recent message backlog over REST,
applying the same membership authorization as a realtime join.
*/
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"studysync/internal/app/chat"
	"studysync/internal/pkg/auth/jwt"
	"studysync/internal/pkg/errs"
	"studysync/internal/pkg/resp"
)

// HandleRoomHistory creates an HTTP HandlerFunc returning the recent message
// backlog of a room, oldest first. Membership is checked the same way a
// realtime join is.
func HandleRoomHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		room, customErr := chat.ParseWireID(chi.URLParam(r, "room"))
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := deps.Runtime.Gate.Authorize(r.Context(), room, payload.UserID); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		limit := deps.Config.HistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > deps.Config.HistoryLimit {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			limit = parsed
		}

		history, customErr := deps.Runtime.Pipeline.History(r.Context(), room, limit)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, history)
	}
}
