// Package resource parses the "file,id" strings Windows uses to point at an
// icon inside an executable, e.g. "@%SystemRoot%\system32\shell32.dll,-21".
package resource

import (
	"strconv"
	"strings"

	"github.com/go-errors/errors"
)

// IdentifierKind tells how the number in a descriptor selects an icon.
type IdentifierKind int

const (
	// KindUnknown is the zero value.
	KindUnknown IdentifierKind = iota
	// KindIndex selects the n-th icon group of the file.
	KindIndex
	// KindResourceID selects the icon group whose resource id is the
	// absolute value of the identifier.
	KindResourceID
)

func (k IdentifierKind) String() string {
	switch k {
	case KindIndex:
		return "index"
	case KindResourceID:
		return "resource id"
	default:
		return "unknown"
	}
}

// Identify classifies an identifier. Anything below -1 is a negated
// resource id, everything else is an index.
func Identify(id int32) IdentifierKind {
	if id < -1 {
		return KindResourceID
	}
	return KindIndex
}

// ParseIdentifier parses an identifier with an optional leading '#'.
func ParseIdentifier(name string) (int32, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.Wrap(ErrInvalidArgument, 1)
	}
	name = strings.TrimPrefix(name, "#")
	id, err := strconv.ParseInt(name, 10, 32)
	if err != nil {
		return 0, errors.Wrap(err, 1)
	}
	return int32(id), nil
}
