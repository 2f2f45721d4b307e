package pe

import (
	"encoding/binary"
	"fmt"

	"github.com/go-errors/errors"
)

// stringsPerBlock is the number of strings stored in one RT_STRING resource.
const stringsPerBlock = 16

// decodeStringBlock splits an RT_STRING resource into its sixteen entries.
// Each entry is a uint16 character count followed by that many UTF-16 code
// units. A block cut short leaves the remaining entries empty.
func decodeStringBlock(data []byte) []string {
	entries := make([]string, stringsPerBlock)
	offset := 0
	for i := range entries {
		if len(data) < offset+2 {
			break
		}
		length := int(binary.LittleEndian.Uint16(data[offset : offset+2]))
		offset += 2
		end := offset + 2*length
		if end > len(data) {
			end = len(data)
		}
		entries[i] = readUnicode(data[offset:end])
		offset = end
	}
	return entries
}

// LookupString returns string id from the executable's string tables, the
// way LoadString resolves it. The first language carrying the block wins.
func (i *Info) LookupString(id uint32) (string, error) {
	block := id/stringsPerBlock + 1
	for _, resource := range i.Resources {
		if resource.typeID != rtString || resource.named || resource.ID != block {
			continue
		}
		if value := decodeStringBlock(resource.data)[id%stringsPerBlock]; value != "" {
			return value, nil
		}
	}
	return "", errors.WrapPrefix(ErrStringNotFound, fmt.Sprintf("id %d", id), 0)
}
