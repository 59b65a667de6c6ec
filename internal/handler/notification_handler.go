/*
Package handler provides the HTTP handlers and routing setup for the realtime service.

This file contains the handlers for listing the caller's notifications and for the
recipient-scoped read-state transitions (single and bulk).
*/
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"studysync/internal/pkg/auth/jwt"
	"studysync/internal/pkg/errs"
	"studysync/internal/pkg/resp"
)

// HandleListNotifications creates an HTTP HandlerFunc returning a page of the
// caller's notifications, newest first.
func HandleListNotifications(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		offset := 0
		if raw := r.URL.Query().Get("offset"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			offset = parsed
		}

		notifications, customErr := deps.Runtime.Notifier.List(r.Context(), payload.UserID, deps.Config.NotificationsPage, offset)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, notifications)
	}
}

// HandleMarkNotificationRead creates an HTTP HandlerFunc marking one of the
// caller's notifications as read.
func HandleMarkNotificationRead(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		id := chi.URLParam(r, "id")
		if id == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if customErr := deps.Runtime.Notifier.MarkRead(r.Context(), id, payload.UserID); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleMarkAllNotificationsRead creates an HTTP HandlerFunc marking every
// unread notification of the caller as read.
func HandleMarkAllNotificationsRead(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if customErr := deps.Runtime.Notifier.MarkAllRead(r.Context(), payload.UserID); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
