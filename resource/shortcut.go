package resource

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"

	"github.com/go-errors/errors"
)

const (
	iconEnvironmentSize      = 0x00000314
	iconEnvironmentSignature = 0xa0000007
)

func readString(data []byte) string {
	if end := bytes.IndexByte(data, 0); end >= 0 {
		data = data[:end]
	}
	return string(data)
}

func readUnicode(data []byte) string {
	encoded := []uint16{}
	for offset := 0; offset+2 <= len(data); offset += 2 {
		value := binary.LittleEndian.Uint16(data[offset : offset+2])
		if value == 0 {
			break
		}
		encoded = append(encoded, value)
	}
	return string(utf16.Decode(encoded))
}

// FromIconEnvironment builds a descriptor from the IconEnvironmentDataBlock
// of a shell link and the link's icon index. The unicode path is preferred
// over the ANSI one, environment references in it are expanded.
func FromIconEnvironment(block []byte, iconIndex int32) (Descriptor, error) {
	if len(block) < iconEnvironmentSize {
		return Descriptor{}, errors.WrapPrefix(ErrInvalidBlock, "short block", 0)
	}
	size := binary.LittleEndian.Uint32(block[0:4])
	signature := binary.LittleEndian.Uint32(block[4:8])
	if size != iconEnvironmentSize || signature != iconEnvironmentSignature {
		return Descriptor{}, errors.WrapPrefix(ErrInvalidBlock, "unexpected size or signature", 0)
	}

	path := readUnicode(block[268:788])
	if path == "" {
		path = readString(block[8:268])
	}
	if path == "" {
		return Descriptor{}, errors.WrapPrefix(ErrInvalidBlock, "no icon path", 0)
	}
	return Descriptor{
		File:       expandEnv(path),
		ID:         absolute(iconIndex),
		Identifier: iconIndex,
	}, nil
}
