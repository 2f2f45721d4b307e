package ico

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-errors/errors"
)

const (
	// HeaderSize is the on-disk size of Header.
	HeaderSize = 6
	// EntrySize is the on-disk size of DirectoryEntry.
	EntrySize = 16

	// TypeIcon is the resource type stored in the header of icon containers.
	TypeIcon int16 = 1
	// TypeCursor is the resource type stored in the header of cursor containers.
	TypeCursor int16 = 2
)

// Header is the fixed 6 byte ICONDIR header found at the start of a container.
type Header struct {
	Reserved int16 `json:"reserved"`
	Type     int16 `json:"type"`
	Count    int16 `json:"count"`
}

// DirectoryEntry describes one image variant of a container. Width and
// Height are stored as found, so 0 stands for 256.
type DirectoryEntry struct {
	Width        byte  `json:"width"`
	Height       byte  `json:"height"`
	ColorCount   byte  `json:"colorCount"`
	Reserved     byte  `json:"reserved"`
	Planes       int16 `json:"planes"`
	BitsPerPixel int16 `json:"bitsPerPixel"`
	Size         int32 `json:"size"`
	Offset       int32 `json:"offset"`
}

// the reserved and type fields are deliberately not checked, anything that
// has the right shape is accepted
func readHeader(r io.Reader) (Header, error) {
	var data [HeaderSize]byte
	if _, err := io.ReadFull(r, data[:]); err != nil {
		return Header{}, truncated(err, "header")
	}
	return Header{
		Reserved: int16(binary.LittleEndian.Uint16(data[0:2])),
		Type:     int16(binary.LittleEndian.Uint16(data[2:4])),
		Count:    int16(binary.LittleEndian.Uint16(data[4:6])),
	}, nil
}

func readEntry(r io.Reader) (DirectoryEntry, error) {
	var data [EntrySize]byte
	if _, err := io.ReadFull(r, data[:]); err != nil {
		return DirectoryEntry{}, err
	}
	return DirectoryEntry{
		Width:        data[0],
		Height:       data[1],
		ColorCount:   data[2],
		Reserved:     data[3],
		Planes:       int16(binary.LittleEndian.Uint16(data[4:6])),
		BitsPerPixel: int16(binary.LittleEndian.Uint16(data[6:8])),
		Size:         int32(binary.LittleEndian.Uint32(data[8:12])),
		Offset:       int32(binary.LittleEndian.Uint32(data[12:16])),
	}, nil
}

// readDirectory reads exactly header.Count entries.
func readDirectory(r io.Reader, header Header) ([]DirectoryEntry, error) {
	count := int(header.Count)
	if count <= 0 {
		return nil, nil
	}
	entries := make([]DirectoryEntry, 0, count)
	for i := 0; i < count; i++ {
		entry, err := readEntry(r)
		if err != nil {
			return nil, truncated(err, fmt.Sprintf("directory entry %d", i))
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// short reads turn into ErrTruncated, anything else is passed through
func truncated(err error, section string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.WrapPrefix(ErrTruncated, section, 1)
	}
	return errors.WrapPrefix(err, section, 1)
}

// AppendHeader appends the little endian encoding of h to b.
func AppendHeader(b []byte, h Header) []byte {
	b = binary.LittleEndian.AppendUint16(b, uint16(h.Reserved))
	b = binary.LittleEndian.AppendUint16(b, uint16(h.Type))
	return binary.LittleEndian.AppendUint16(b, uint16(h.Count))
}

// AppendEntry appends the 16 byte on-disk encoding of e to b.
func AppendEntry(b []byte, e DirectoryEntry) []byte {
	b = append(b, e.Width, e.Height, e.ColorCount, e.Reserved)
	b = binary.LittleEndian.AppendUint16(b, uint16(e.Planes))
	b = binary.LittleEndian.AppendUint16(b, uint16(e.BitsPerPixel))
	b = binary.LittleEndian.AppendUint32(b, uint32(e.Size))
	return binary.LittleEndian.AppendUint32(b, uint32(e.Offset))
}
