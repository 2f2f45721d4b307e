package ico

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when a required argument is nil or empty.
	ErrInvalidArgument = errors.New("ico: invalid argument")
	// ErrTruncated is returned when the container ends in the middle of a
	// header, a directory entry or an image payload.
	ErrTruncated = errors.New("ico: truncated container")
	// ErrClosed is returned by any read on a container that has been closed.
	ErrClosed = errors.New("ico: container is closed")
	// ErrUnknownFormat is returned by ImageDecoder for payloads that are
	// neither PNG nor DIB.
	ErrUnknownFormat = errors.New("ico: unknown image format")
	// ErrUnsupportedFormat is returned by ImageDecoder for DIB layouts it
	// cannot decode.
	ErrUnsupportedFormat = errors.New("ico: unsupported image format")
)

// Code classifies a decode failure, the way a native decoder reports a
// last-error value.
type Code int

const (
	CodeUnknown Code = iota
	CodeUnknownFormat
	CodeUnsupported
	CodeCorrupt
)

func (c Code) String() string {
	switch c {
	case CodeUnknownFormat:
		return "unknown format"
	case CodeUnsupported:
		return "unsupported"
	case CodeCorrupt:
		return "corrupt"
	default:
		return "unknown"
	}
}

// DecodeError is returned when an image payload could not be turned into an
// icon. The container stays usable after a DecodeError.
type DecodeError struct {
	Index int
	Entry DirectoryEntry
	Code  Code
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ico: decoding entry %d (%dx%d, %dbpp): %s: %v",
		e.Index, e.Entry.Width, e.Entry.Height, e.Entry.BitsPerPixel, e.Code, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func codeFor(err error) Code {
	switch {
	case errors.Is(err, ErrUnknownFormat):
		return CodeUnknownFormat
	case errors.Is(err, ErrUnsupportedFormat):
		return CodeUnsupported
	case err != nil:
		return CodeCorrupt
	default:
		return CodeUnknown
	}
}
