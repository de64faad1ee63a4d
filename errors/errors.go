package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Connection-time failures. A refused connection is never retried server-side.
	ErrInvalidCredential = fmt.Errorf("invalid or expired credential")

	// Room derivation failures.
	ErrSelfPair      = fmt.Errorf("a room requires two distinct identities")
	ErrEmptyIdentity = fmt.Errorf("identity must not be empty")
	ErrRoomForbidden = fmt.Errorf("identity is not a participant of this room")

	// Dispatch pipeline failures.
	ErrEmptyContent   = fmt.Errorf("message content is empty")
	ErrContentTooLong = fmt.Errorf("message content exceeds the maximum length")
	ErrNotConnected   = fmt.Errorf("identities are not connected")

	// The durable store failed or is unreachable. The message is not considered
	// sent and the client may resubmit.
	ErrStoreUnavailable = fmt.Errorf("durable store unavailable")

	// Account failures.
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")
)

// Wire codes carried by messageError events and HTTP error bodies.
const (
	CodeAuth          = "AUTH_ERROR"
	CodeInvalidPair   = "INVALID_PAIR"
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotAuthorized = "NOT_AUTHORIZED"
	CodePersistence   = "PERSISTENCE_ERROR"
	CodeInternal      = "INTERNAL_ERROR"
)

// WireCode maps a pipeline error to its machine-readable code.
// Unknown errors are reported as internal so store internals never leak to clients.
func WireCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredential),
		errors.Is(err, ErrInvalidCredentials):
		return CodeAuth
	case errors.Is(err, ErrSelfPair),
		errors.Is(err, ErrEmptyIdentity):
		return CodeInvalidPair
	case errors.Is(err, ErrEmptyContent),
		errors.Is(err, ErrContentTooLong),
		errors.Is(err, ErrInvalidPassword):
		return CodeValidation
	case errors.Is(err, ErrNotConnected),
		errors.Is(err, ErrRoomForbidden):
		return CodeNotAuthorized
	case errors.Is(err, ErrStoreUnavailable):
		return CodePersistence
	default:
		return CodeInternal
	}
}

// HTTPStatus maps a pipeline error to the status used by the read-path API.
func HTTPStatus(err error) int {
	switch WireCode(err) {
	case CodeAuth:
		return http.StatusUnauthorized
	case CodeInvalidPair, CodeValidation:
		return http.StatusBadRequest
	case CodeNotAuthorized:
		return http.StatusForbidden
	case CodePersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
