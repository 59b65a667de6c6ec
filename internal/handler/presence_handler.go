/*
Package handler provides the HTTP handlers and routing setup for the realtime service.

This file contains the handler returning the latest-known presence record of every user.
*/
package handler

import (
	"net/http"

	"studysync/internal/pkg/auth/jwt"
	"studysync/internal/pkg/errs"
	"studysync/internal/pkg/resp"
)

// HandleListPresence creates an HTTP HandlerFunc returning the latest-known
// presence record of every user the service has seen.
func HandleListPresence(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jwt.GetPayloadFromContext(r) == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		resp.RespondSuccess(w, r, deps.Runtime.Presence.All())
	}
}
