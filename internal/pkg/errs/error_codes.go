/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
within the server and in the `error` events delivered to realtime clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Room and Messaging Errors
const (
	// ErrRoomKindInvalid indicates that the room kind is not "group" or "course".
	ErrRoomKindInvalid = 2101

	// ErrAccessDenied indicates that the membership store refused a room join.
	ErrAccessDenied = 2102

	// ErrNotInRoom indicates a message or typing operation from a connection with no active room.
	ErrNotInRoom = 2103

	// ErrContentTooLarge indicates that the message content exceeded the configured maximum length.
	ErrContentTooLarge = 2201

	// ErrContentEmpty indicates that the message content was empty.
	ErrContentEmpty = 2202

	// ErrMessageKindInvalid indicates an unsupported message kind.
	ErrMessageKindInvalid = 2203

	// ErrPersistFailed indicates that a durable write failed and the operation was aborted.
	ErrPersistFailed = 2204

	// ErrFileKeyInvalid indicates a shared-file key outside the room's namespace.
	ErrFileKeyInvalid = 2301

	// ErrFileTypeInvalid indicates a shared file with a disallowed name or MIME type.
	ErrFileTypeInvalid = 2302

	// ErrFileSizeTooLarge indicates a shared file above the size limit.
	ErrFileSizeTooLarge = 2303

	// ErrFileStorageFailed indicates an object storage operation failure.
	ErrFileStorageFailed = 2304
)

// 3xxx: Identity and Permission Errors
const (
	// ErrMissingCredential indicates a handshake without a credential token.
	ErrMissingCredential = 3001

	// ErrUnknownUser indicates that the handshake user id did not resolve in the user store.
	ErrUnknownUser = 3002

	// ErrStatusInvalid indicates a presence status outside the enumerated set.
	ErrStatusInvalid = 3003

	// ErrForbidden indicates an attempt to mutate another user's notification.
	ErrForbidden = 3004

	// ErrUnauthorized indicates a REST request without a valid identity token.
	ErrUnauthorized = 3005

	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = 3006
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
