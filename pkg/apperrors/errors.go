package apperrors

import "errors"

var (
	ErrNotFound                   = errors.New("not found")
	ErrConflict                   = errors.New("conflict")
	ErrResourceNotFound           = errors.New("no declared resource matches the request")
	ErrDatasourceUnavailable      = errors.New("datasource unavailable")
	ErrInvalidResourceDeclaration = errors.New("invalid resource declaration")
	ErrCredentialsRequired        = errors.New("datasource is secured: credentials required")
	ErrCredentialsKeyMismatch     = errors.New("datasource credentials were encrypted with a different key")
)
