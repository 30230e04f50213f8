package compress

import "strings"

// DefaultAllowedTypes is the upload-facing allow-list. It is wider than
// what the engine can encode: tiff and bmp pass validation but fail
// compression with ErrUnsupportedFormat.
var DefaultAllowedTypes = []string{
	"image/jpeg", "image/jpg", "image/png", "image/webp", "image/tiff", "image/bmp",
}

// Validator answers whether a declared content type is worth sending to
// the compression pipeline at all.
type Validator struct {
	allowed map[string]struct{}
}

// NewValidator builds a validator over the given content types; an empty
// list means DefaultAllowedTypes.
func NewValidator(allowedTypes []string) *Validator {
	if len(allowedTypes) == 0 {
		allowedTypes = DefaultAllowedTypes
	}
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[strings.ToLower(t)] = struct{}{}
	}
	return &Validator{allowed: allowed}
}

// Compressible reports whether contentType is on the allow-list.
// Matching is case-insensitive; an empty string is never compressible.
func (v *Validator) Compressible(contentType string) bool {
	if contentType == "" {
		return false
	}
	_, ok := v.allowed[strings.ToLower(contentType)]
	return ok
}
