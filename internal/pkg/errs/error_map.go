/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses, realtime error events, and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room and Messaging Errors
	ErrRoomKindInvalid:    {Code: ErrRoomKindInvalid, Message: "Invalid room kind.", Status: http.StatusBadRequest},
	ErrAccessDenied:       {Code: ErrAccessDenied, Message: "You are not a member of this room.", Status: http.StatusForbidden},
	ErrNotInRoom:          {Code: ErrNotInRoom, Message: "Join a room first.", Status: http.StatusConflict},
	ErrContentTooLarge:    {Code: ErrContentTooLarge, Message: "Message is too long.", Status: http.StatusBadRequest},
	ErrContentEmpty:       {Code: ErrContentEmpty, Message: "Message is empty.", Status: http.StatusBadRequest},
	ErrMessageKindInvalid: {Code: ErrMessageKindInvalid, Message: "Unsupported message kind.", Status: http.StatusBadRequest},
	ErrPersistFailed:      {Code: ErrPersistFailed, Message: "Message could not be saved. Please try again.", Status: http.StatusInternalServerError},
	ErrFileKeyInvalid:     {Code: ErrFileKeyInvalid, Message: "Invalid file reference.", Status: http.StatusBadRequest},
	ErrFileTypeInvalid:    {Code: ErrFileTypeInvalid, Message: "This file type is not allowed.", Status: http.StatusBadRequest},
	ErrFileSizeTooLarge:   {Code: ErrFileSizeTooLarge, Message: "File is too large.", Status: http.StatusBadRequest},
	ErrFileStorageFailed:  {Code: ErrFileStorageFailed, Message: "File storage is unavailable. Please try again.", Status: http.StatusBadGateway},

	// 3xxx: Identity and Permission Errors
	ErrMissingCredential: {Code: ErrMissingCredential, Message: "Authentication credential is required.", Status: http.StatusUnauthorized},
	ErrUnknownUser:       {Code: ErrUnknownUser, Message: "Account not found.", Status: http.StatusUnauthorized},
	ErrStatusInvalid:     {Code: ErrStatusInvalid, Message: "Invalid presence status.", Status: http.StatusBadRequest},
	ErrForbidden:         {Code: ErrForbidden, Message: "You cannot modify this notification.", Status: http.StatusForbidden},
	ErrUnauthorized:      {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrNotFound:          {Code: ErrNotFound, Message: "Not found.", Status: http.StatusNotFound},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
