package pe

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/andrewstucki/icondir/ico"
)

const (
	groupHeaderSize = 6
	groupEntrySize  = 14
)

// IconGroup is an RT_GROUP_ICON resource rebuilt into a standalone icon
// container from the RT_ICON resources it references.
type IconGroup struct {
	Name     string `json:"name"`
	ID       uint32 `json:"id,omitempty"`
	Language string `json:"language"`
	Icons    int    `json:"icons"`

	Data []byte `json:"-"`
}

// Open returns a container reading the group's assembled icon data.
func (g IconGroup) Open(opts ...ico.Option) (*ico.Container, error) {
	return ico.NewContainer(bytes.NewReader(g.Data), opts...)
}

// the 14 byte group entry shares its first 12 bytes with the icon
// directory entry, the trailing 2 bytes are the RT_ICON id instead
// of a file offset
func readGroupEntry(data []byte) (ico.DirectoryEntry, uint16) {
	return ico.DirectoryEntry{
		Width:        data[0],
		Height:       data[1],
		ColorCount:   data[2],
		Reserved:     data[3],
		Planes:       int16(binary.LittleEndian.Uint16(data[4:6])),
		BitsPerPixel: int16(binary.LittleEndian.Uint16(data[6:8])),
		Size:         int32(binary.LittleEndian.Uint32(data[8:12])),
	}, binary.LittleEndian.Uint16(data[12:14])
}

func iconGroups(resources []Resource) []IconGroup {
	icons := make(map[uint32][]byte)
	for _, resource := range resources {
		if resource.typeID != rtIcon || resource.named {
			continue
		}
		// first language wins
		if _, ok := icons[resource.ID]; !ok {
			icons[resource.ID] = resource.data
		}
	}

	groups := []IconGroup{}
	for _, resource := range resources {
		if resource.typeID != rtGroupIcon {
			continue
		}
		data, count := assembleGroup(resource.data, icons)
		if data == nil {
			continue
		}
		groups = append(groups, IconGroup{
			Name:     resource.Name,
			ID:       resource.ID,
			Language: resource.Language,
			Icons:    count,
			Data:     data,
		})
	}
	return groups
}

// assembleGroup writes an icon container holding every image the group
// directory references that is actually present in the binary.
func assembleGroup(group []byte, icons map[uint32][]byte) ([]byte, int) {
	if len(group) < groupHeaderSize {
		return nil, 0
	}
	header := ico.Header{
		Reserved: int16(binary.LittleEndian.Uint16(group[0:2])),
		Type:     int16(binary.LittleEndian.Uint16(group[2:4])),
	}
	count := int(binary.LittleEndian.Uint16(group[4:6]))
	if available := (len(group) - groupHeaderSize) / groupEntrySize; count > available {
		count = available
	}

	entries := make([]ico.DirectoryEntry, 0, count)
	payloads := make([][]byte, 0, count)
	for i := 0; i < count && len(entries) < math.MaxInt16; i++ {
		entry, id := readGroupEntry(group[groupHeaderSize+i*groupEntrySize:])
		payload, ok := icons[uint32(id)]
		if !ok {
			continue
		}
		entry.Size = int32(len(payload))
		entries = append(entries, entry)
		payloads = append(payloads, payload)
	}

	header.Count = int16(len(entries))
	offset := ico.HeaderSize + ico.EntrySize*len(entries)
	out := ico.AppendHeader(make([]byte, 0, offset), header)
	for i := range entries {
		entries[i].Offset = int32(offset)
		offset += len(payloads[i])
		out = ico.AppendEntry(out, entries[i])
	}
	for _, payload := range payloads {
		out = append(out, payload...)
	}
	return out, len(entries)
}
