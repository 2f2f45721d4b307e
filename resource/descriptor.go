package resource

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"

	"github.com/go-errors/errors"
)

var (
	windowsEnvTokenPattern = regexp.MustCompile(`%[A-Za-z_][A-Za-z0-9_]*%`)
	posixEnvTokenPattern   = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*\}|\$[A-Za-z_][A-Za-z0-9_]*`)
)

// Descriptor points at an icon inside a file.
type Descriptor struct {
	File       string `json:"file"`
	ID         uint32 `json:"id"`
	Identifier int32  `json:"identifier"`
}

// Kind reports whether the descriptor addresses an index or a resource id.
func (d Descriptor) Kind() IdentifierKind {
	return Identify(d.Identifier)
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s,%d", d.File, d.Identifier)
}

// Split separates a "file,id" string into its file part, with quotes and
// the leading '@' removed, and its identifier.
func Split(value string) (string, int32, error) {
	if strings.TrimSpace(value) == "" {
		return "", 0, errors.Wrap(ErrInvalidArgument, 1)
	}
	parts := strings.Split(value, ",")
	if len(parts) < 2 {
		return "", 0, errors.Errorf("missing identifier in %q", value)
	}
	id, err := ParseIdentifier(parts[1])
	if err != nil {
		return "", 0, err
	}
	file := strings.TrimLeft(strings.Trim(parts[0], `"`), "@")
	return file, id, nil
}

// ParseDescriptor parses strings such as "@%SystemRoot%\system32\shell32.dll,-21".
// Environment references in the file are expanded and ID holds the absolute
// value of the identifier.
func ParseDescriptor(value string) (Descriptor, error) {
	file, id, err := Split(value)
	if err != nil {
		return Descriptor{}, errors.WrapPrefix(ErrInvalidDescriptor, fmt.Sprintf("cannot parse %q (%v)", value, err), 0)
	}
	if strings.TrimSpace(file) == "" {
		return Descriptor{}, errors.WrapPrefix(ErrInvalidDescriptor, fmt.Sprintf("empty file in %q", value), 0)
	}
	return Descriptor{
		File:       expandEnv(file),
		ID:         absolute(id),
		Identifier: id,
	}, nil
}

// TryParseDescriptor is ParseDescriptor without the error.
func TryParseDescriptor(value string) (Descriptor, bool) {
	descriptor, err := ParseDescriptor(value)
	if err != nil {
		return Descriptor{}, false
	}
	return descriptor, true
}

func absolute(id int32) uint32 {
	if id < 0 {
		return uint32(-int64(id))
	}
	return uint32(id)
}

func expandEnv(value string) string {
	expanded := windowsEnvTokenPattern.ReplaceAllStringFunc(value, func(token string) string {
		if found, ok := os.LookupEnv(token[1 : len(token)-1]); ok {
			return found
		}
		return token
	})
	// '$' is a legal path character on windows
	if runtime.GOOS == "windows" {
		return expanded
	}
	return posixEnvTokenPattern.ReplaceAllStringFunc(expanded, func(token string) string {
		key := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(token, "$"), "{"), "}")
		if found, ok := os.LookupEnv(key); ok {
			return found
		}
		return token
	})
}
