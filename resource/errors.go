package resource

import "errors"

var (
	// ErrInvalidArgument is returned for empty identifiers and descriptors.
	ErrInvalidArgument = errors.New("resource: invalid argument")
	// ErrInvalidDescriptor is wrapped by every ParseDescriptor failure.
	ErrInvalidDescriptor = errors.New("resource: invalid descriptor")
	// ErrInvalidBlock is returned for malformed shortcut data blocks.
	ErrInvalidBlock = errors.New("resource: invalid icon environment block")
)
