// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Image constants
const (
	// DefaultMaxImageSize is the longest side, in pixels, uploads are scaled
	// down to before detection
	DefaultMaxImageSize = 1280

	// MaxUploadSize is the largest accepted upload in bytes
	MaxUploadSize = 20 << 20
)

// Similarity search constants
const (
	// DefaultSimilarLimit is the default number of nearest catalog entries returned
	DefaultSimilarLimit = 5

	// MaxSimilarLimit caps the number of nearest catalog entries per request
	MaxSimilarLimit = 20
)
