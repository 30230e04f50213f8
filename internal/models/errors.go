package models

import "errors"

// Error taxonomy shared by the compression core. Callers match with
// errors.Is; every layer wraps with its op prefix and %w so the
// sentinel survives to the HTTP mapping.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrDecode            = errors.New("image decode failed")
	ErrStore             = errors.New("store failure")
)
