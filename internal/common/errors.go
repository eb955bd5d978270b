// Package common defines shared constants and sentinel errors used across
// the contact book server layers. Callers should use errors.Is to match
// these values; only the HTTP layer translates them into status codes.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound         = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrValidation = errors.New("validation error")

	// Login errors. Unknown email and wrong password stay distinguishable.
	ErrInvalidEmail      = errors.New("invalid email")
	ErrEmailNotConfirmed = errors.New("email not confirmed")
	ErrInvalidPassword   = errors.New("invalid password")

	// Token errors. Signature, expiry and scope failures all map to ErrInvalidToken.
	ErrInvalidToken             = errors.New("invalid token")
	ErrInvalidRefreshToken      = errors.New("invalid refresh token")
	ErrInvalidConfirmationToken = errors.New("invalid token for email verification")
	ErrVerification             = errors.New("verification error")

	// Collaborator errors.
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrImageHost   = errors.New("image host error")

	// Request body over the size limit.
	ErrPayloadTooLarge = errors.New("payload too large")
)
