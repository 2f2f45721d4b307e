package pe

import "errors"

var (
	// ErrInvalidResources is returned when the resource directory points outside
	// of the resource section.
	ErrInvalidResources = errors.New("pe: invalid resource data")
	// ErrStringNotFound is returned when a string table has no entry for an id.
	ErrStringNotFound = errors.New("pe: string not found")
)
