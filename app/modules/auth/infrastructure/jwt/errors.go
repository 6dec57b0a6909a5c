package authjwt

import "errors"

var (
	// ErrInvalidToken is returned when the token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")

	// ErrInvalidSignature is returned when the token signature is invalid.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrMissingIdentity is returned when a token would carry no subject.
	ErrMissingIdentity = errors.New("token subject is empty")

	// ErrInvalidRole is returned for roles outside authdomain.Role.
	ErrInvalidRole = errors.New("invalid role")
)
