// Package fixture builds icon containers, resource sections and executables
// in memory for tests.
package fixture

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"unicode/utf16"
)

// Resource type ids used by the builders.
const (
	TypeIcon      uint32 = 3
	TypeString    uint32 = 6
	TypeGroupIcon uint32 = 14
	TypeManifest  uint32 = 24

	// LanguageEnglish is the language every leaf is stored under.
	LanguageEnglish = 0x0409
	// VirtualAddress is where Executable maps the resource section.
	VirtualAddress = 0x1000

	rawOffset = 0x200
)

// PNG encodes a size x size square filled with c.
func PNG(size int, c color.NRGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Icon lays out an icon container with one entry per payload. sizes gives
// the width and height recorded in each entry.
func Icon(containerType uint16, sizes []int, payloads [][]byte) []byte {
	buf := make([]byte, 6, 6+16*len(payloads))
	binary.LittleEndian.PutUint16(buf[2:4], containerType)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(payloads)))
	offset := 6 + 16*len(payloads)
	for i, payload := range payloads {
		entry := make([]byte, 16)
		entry[0], entry[1] = byte(sizes[i]), byte(sizes[i])
		binary.LittleEndian.PutUint16(entry[4:6], 1)
		binary.LittleEndian.PutUint16(entry[6:8], 32)
		binary.LittleEndian.PutUint32(entry[8:12], uint32(len(payload)))
		binary.LittleEndian.PutUint32(entry[12:16], uint32(offset))
		offset += len(payload)
		buf = append(buf, entry...)
	}
	for _, payload := range payloads {
		buf = append(buf, payload...)
	}
	return buf
}

// GroupDirectory builds an RT_GROUP_ICON payload. declared is written as the
// entry count, one 14 byte entry is written per id.
func GroupDirectory(declared int, sizes []byte, ids []uint16) []byte {
	buf := make([]byte, 6)
	binary.LittleEndian.PutUint16(buf[2:4], 1)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(declared))
	for i, id := range ids {
		entry := make([]byte, 14)
		entry[0], entry[1] = sizes[i], sizes[i]
		binary.LittleEndian.PutUint16(entry[4:6], 1)
		binary.LittleEndian.PutUint16(entry[6:8], 32)
		binary.LittleEndian.PutUint32(entry[8:12], 0xdead)
		binary.LittleEndian.PutUint16(entry[12:14], id)
		buf = append(buf, entry...)
	}
	return buf
}

// StringBlock lays out one RT_STRING resource. entries maps a position in
// the block, 0 to 15, to its string; the other positions stay empty.
func StringBlock(entries map[int]string) []byte {
	buf := []byte{}
	for i := 0; i < 16; i++ {
		units := utf16.Encode([]rune(entries[i]))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(units)))
		for _, unit := range units {
			buf = binary.LittleEndian.AppendUint16(buf, unit)
		}
	}
	return buf
}

// Leaf is one resource of a resource section.
type Leaf struct {
	Type uint32
	ID   uint32
	Data []byte
}

// ResourceSection lays out a type, name, language tree. All tables come
// first, then the data entries and finally the data.
func ResourceSection(virtualAddress uint32, leaves []Leaf) []byte {
	types := []uint32{}
	byType := map[uint32][]Leaf{}
	for _, l := range leaves {
		if _, ok := byType[l.Type]; !ok {
			types = append(types, l.Type)
		}
		byType[l.Type] = append(byType[l.Type], l)
	}
	ordered := []Leaf{}
	for _, typeID := range types {
		ordered = append(ordered, byType[typeID]...)
	}

	table := func(entries int) int { return 16 + 8*entries }
	offset := table(len(types))
	typeOffsets := map[uint32]int{}
	for _, typeID := range types {
		typeOffsets[typeID] = offset
		offset += table(len(byType[typeID]))
	}
	nameOffsets := make([]int, len(ordered))
	for i := range ordered {
		nameOffsets[i] = offset
		offset += table(1)
	}
	entryOffsets := make([]int, len(ordered))
	for i := range ordered {
		entryOffsets[i] = offset
		offset += 16
	}
	dataOffsets := make([]int, len(ordered))
	for i, l := range ordered {
		dataOffsets[i] = offset
		offset += len(l.Data)
	}

	buf := make([]byte, offset)
	writeTable := func(at int, ids []uint32, targets []uint32) {
		binary.LittleEndian.PutUint16(buf[at+14:], uint16(len(ids)))
		for i := range ids {
			binary.LittleEndian.PutUint32(buf[at+16+8*i:], ids[i])
			binary.LittleEndian.PutUint32(buf[at+20+8*i:], targets[i])
		}
	}

	rootTargets := []uint32{}
	for _, typeID := range types {
		rootTargets = append(rootTargets, 0x80000000|uint32(typeOffsets[typeID]))
	}
	writeTable(0, types, rootTargets)

	index := 0
	for _, typeID := range types {
		ids, targets := []uint32{}, []uint32{}
		for range byType[typeID] {
			ids = append(ids, ordered[index].ID)
			targets = append(targets, 0x80000000|uint32(nameOffsets[index]))
			index++
		}
		writeTable(typeOffsets[typeID], ids, targets)
	}

	for i, l := range ordered {
		writeTable(nameOffsets[i], []uint32{LanguageEnglish}, []uint32{uint32(entryOffsets[i])})
		binary.LittleEndian.PutUint32(buf[entryOffsets[i]:], virtualAddress+uint32(dataOffsets[i]))
		binary.LittleEndian.PutUint32(buf[entryOffsets[i]+4:], uint32(len(l.Data)))
		copy(buf[dataOffsets[i]:], l.Data)
	}
	return buf
}

// Executable wraps a resource section built for VirtualAddress in a minimal
// PE32 image. A nil section leaves the resource data directory empty.
func Executable(rsrc []byte) []byte {
	var buf bytes.Buffer
	dos := make([]byte, 64)
	copy(dos, "MZ")
	binary.LittleEndian.PutUint32(dos[0x3c:], 64)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")

	optional := pe.OptionalHeader32{
		Magic:               0x10b,
		AddressOfEntryPoint: 0x1234,
		ImageBase:           0x400000,
		SectionAlignment:    0x1000,
		FileAlignment:       0x200,
		SizeOfImage:         0x2000 + uint32(len(rsrc)),
		SizeOfHeaders:       rawOffset,
		NumberOfRvaAndSizes: 16,
	}
	optional.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_RESOURCE] = pe.DataDirectory{
		VirtualAddress: VirtualAddress,
		Size:           uint32(len(rsrc)),
	}
	section := pe.SectionHeader32{
		VirtualSize:      uint32(len(rsrc)),
		VirtualAddress:   VirtualAddress,
		SizeOfRawData:    uint32(len(rsrc)),
		PointerToRawData: rawOffset,
		Characteristics:  0x40000040,
	}
	copy(section.Name[:], ".rsrc")

	must(binary.Write(&buf, binary.LittleEndian, pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_I386,
		NumberOfSections:     1,
		TimeDateStamp:        1600000000,
		SizeOfOptionalHeader: uint16(binary.Size(optional)),
		Characteristics:      0x0102,
	}))
	must(binary.Write(&buf, binary.LittleEndian, optional))
	must(binary.Write(&buf, binary.LittleEndian, section))
	buf.Write(make([]byte, rawOffset-buf.Len()))
	buf.Write(rsrc)
	return buf.Bytes()
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
