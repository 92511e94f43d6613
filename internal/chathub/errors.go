package chathub

import apperrors "fadechat/backend/pkg/errors"

// Matchmaking and delivery failures surfaced to the invoking connection.
// These are compared with errors.Is; each carries a stable code for the wire.
var (
	ErrUnauthenticated    = apperrors.New(apperrors.CodeUnauthenticated, "user not authenticated")
	ErrNoCandidates       = apperrors.New(apperrors.CodeNoCandidates, "no active users available at the moment")
	ErrPartnerUnavailable = apperrors.New(apperrors.CodePartnerUnavailable, "selected user is no longer available")
	ErrProfileNotFound    = apperrors.New(apperrors.CodeProfileNotFound, "user profile not found")
)
