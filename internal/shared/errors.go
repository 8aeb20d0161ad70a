package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidToken covers malformed, expired, wrongly signed or foreign-issuer tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnauthorized indicates bad credentials, an inactive account or a missing principal.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict indicates a duplicate username or email.
	ErrConflict = errors.New("conflict")
	// ErrBadRequest indicates missing fields or malformed references.
	ErrBadRequest = errors.New("bad request")
	// ErrForbidden indicates an authenticated caller lacking an authority.
	ErrForbidden = errors.New("forbidden")
)
