package middleware

import "errors"

var (
	errMissingToken = errors.New("missing or invalid token")
	errForbidden    = errors.New("insufficient permissions")
)
