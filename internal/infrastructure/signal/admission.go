package signal

import (
	"context"
	"errors"
	"strings"

	"roomchat/internal/core/domain"
	"roomchat/internal/core/ports"
	"roomchat/pkg/validation"

	"github.com/gorilla/websocket"
)

// AdmissionState tracks a connection from upgrade to close.
type AdmissionState int

const (
	StatePending AdmissionState = iota
	StateAuthenticated
	StateJoined
	StateClosed
	StateRejected
)

func (s AdmissionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthenticated:
		return "authenticated"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Rejection describes why a connection attempt was refused.
type Rejection struct {
	Code   int
	Reason string
	Err    error
}

func (r *Rejection) Error() string { return r.Reason }
func (r *Rejection) Unwrap() error { return r.Err }

// MetricLabel is a low-cardinality name for the rejection cause.
func (r *Rejection) MetricLabel() string {
	switch {
	case errors.Is(r.Err, domain.ErrMissingToken):
		return "missing_token"
	case errors.Is(r.Err, domain.ErrExpiredToken):
		return "expired_token"
	case errors.Is(r.Err, domain.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(r.Err, domain.ErrUnknownSubject):
		return "unknown_subject"
	case errors.Is(r.Err, domain.ErrIdentityMismatch):
		return "identity_mismatch"
	case r.Code == websocket.CloseTryAgainLater:
		return "capacity"
	case r.Code == websocket.CloseGoingAway:
		return "shutting_down"
	case r.Code == websocket.CloseInternalServerErr:
		return "verifier_error"
	default:
		return "invalid_request"
	}
}

func policyViolation(err error) *Rejection {
	return &Rejection{Code: websocket.ClosePolicyViolation, Reason: err.Error(), Err: err}
}

// admit runs the admission checks for a connection request and returns the
// state it ends in. A nil Rejection means the request may join the room.
func admit(ctx context.Context, verifier ports.TokenVerifier, room domain.RoomName, username, token string) (AdmissionState, *Rejection) {
	if err := validation.ValidateRoomName(string(room)); err != nil {
		return StateRejected, &Rejection{Code: websocket.ClosePolicyViolation, Reason: "invalid room name", Err: err}
	}
	if token == "" {
		return StateRejected, policyViolation(domain.ErrMissingToken)
	}

	subject, err := verifier.Verify(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidToken),
			errors.Is(err, domain.ErrExpiredToken),
			errors.Is(err, domain.ErrUnknownSubject):
			return StateRejected, policyViolation(err)
		default:
			return StateRejected, &Rejection{Code: websocket.CloseInternalServerErr, Reason: "could not verify token", Err: err}
		}
	}

	if subject != username {
		return StateRejected, policyViolation(domain.ErrIdentityMismatch)
	}
	return StateAuthenticated, nil
}

// tokenFromRequest prefers the token query parameter and falls back to a
// bearer Authorization header.
func tokenFromRequest(query, authHeader string) string {
	if query != "" {
		return query
	}
	if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
