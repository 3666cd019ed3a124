package asset

import "errors"

// Sentinel errors
var (
	ErrManifest          = errors.New("invalid asset manifest")
	ErrFetch             = errors.New("asset fetch failed")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrDecode            = errors.New("asset decode failed")
	ErrEmptyAsset        = errors.New("asset contains no audio")
)
