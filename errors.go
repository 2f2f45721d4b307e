package icondir

import "errors"

var (
	// ErrIconNotFound is returned when a descriptor does not match any icon
	// group of its file.
	ErrIconNotFound = errors.New("icondir: icon not found")

	errNotEnoughData = errors.New("not enough data for a fuzzy hash")
	errBlockTooSmall = errors.New("fuzzy hash block too small")
)
