package pe

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"github.com/h2non/filetype"
	sha256 "github.com/minio/sha256-simd"
)

const (
	rtCursor       uint32 = 1
	rtBitmap       uint32 = 2
	rtIcon         uint32 = 3
	rtMenu         uint32 = 4
	rtDialog       uint32 = 5
	rtString       uint32 = 6
	rtFontdir      uint32 = 7
	rtFont         uint32 = 8
	rtAccelerator  uint32 = 9
	rtRcdata       uint32 = 10
	rtMessagetable uint32 = 11
	rtGroupCursor  uint32 = 12
	rtGroupIcon    uint32 = 14
	rtVersion      uint32 = 16
	rtDlginclude   uint32 = 17
	rtPlugplay     uint32 = 19
	rtVxd          uint32 = 20
	rtAnicursor    uint32 = 21
	rtAniicon      uint32 = 22
	rtHTML         uint32 = 23
	rtManifest     uint32 = 24
)

// maxDepth is type, name and language
const maxDepth = 3

var nameMap = map[uint32]string{
	rtCursor:       "RT_CURSOR",
	rtBitmap:       "RT_BITMAP",
	rtIcon:         "RT_ICON",
	rtMenu:         "RT_MENU",
	rtDialog:       "RT_DIALOG",
	rtString:       "RT_STRING",
	rtFontdir:      "RT_FONTDIR",
	rtFont:         "RT_FONT",
	rtAccelerator:  "RT_ACCELERATOR",
	rtRcdata:       "RT_RCDATA",
	rtMessagetable: "RT_MESSAGETABLE",
	rtGroupCursor:  "RT_GROUP_CURSOR",
	rtGroupIcon:    "RT_GROUP_ICON",
	rtVersion:      "RT_VERSION",
	rtDlginclude:   "RT_DLGINCLUDE",
	rtPlugplay:     "RT_PLUGPLAY",
	rtVxd:          "RT_VXD",
	rtAnicursor:    "RT_ANICURSOR",
	rtAniicon:      "RT_ANIICON",
	rtHTML:         "RT_HTML",
	rtManifest:     "RT_MANIFEST",
}

func idName(id uint32) string {
	if found, ok := nameMap[id]; ok {
		return found
	}
	return strconv.Itoa(int(id))
}

func isRVA(value uint32) bool {
	return (value & 0x80000000) > 0
}

func rvaOffset(value uint32) int {
	return int(value & 0x7fffffff)
}

// this checks if value is an rva, and if so calculates the real offset
// and then does a bounds check on the slice that is returned
func followOffset(global []byte, value uint32, requiredSize int) ([]byte, error) {
	offset := int(value)
	if isRVA(value) {
		offset = rvaOffset(value)
	}
	if offset < 0 || len(global) < offset+requiredSize {
		return nil, ErrInvalidResources
	}
	return global[offset:], nil
}

// resourcePath accumulates the ids seen on the way down to a leaf.
type resourcePath struct {
	typeID   uint32
	typeName string
	nameID   uint32
	name     string
	named    bool
}

// a lot of the checks we do here are fairly permissive, we want to
// return as much of the parsable information as we can, so don't bother
// sanity checking things like the number of entries matching what's specified
// instead we just make sure to bounds check what we're reading and int the
// case of potential over-read, return an error
func parseDirectory(virtualAddress uint32, data []byte) ([]Resource, error) {
	return parseEntries(virtualAddress, 0, resourcePath{}, data, data)
}

func parseName(global, base []byte, typeLevel bool) (string, bool, error) {
	id := binary.LittleEndian.Uint32(base[0:4])
	if isRVA(id) {
		nameData, err := followOffset(global, id, 2)
		if err != nil {
			return "", false, err
		}
		nameEnd := int(binary.LittleEndian.Uint16(nameData[0:2]))*2 + 2
		if len(nameData) < nameEnd {
			return "", false, ErrInvalidResources
		}
		return readUnicode(nameData[2:nameEnd]), true, nil
	}
	if typeLevel {
		return idName(id), false, nil
	}
	return strconv.Itoa(int(id)), false, nil
}

func parseEntry(virtualAddress uint32, depth int, path resourcePath, global, base []byte) ([]Resource, error) {
	offset := binary.LittleEndian.Uint32(base[4:8])
	if isRVA(offset) {
		// we have a nested directory
		next, err := followOffset(global, offset, 0)
		if err != nil {
			return nil, err
		}
		return parseEntries(virtualAddress, depth+1, path, global, next)
	}
	// we have a leaf resource
	language := uint16(binary.LittleEndian.Uint32(base[0:4]))
	entry, err := followOffset(global, offset, 8)
	if err != nil {
		return nil, err
	}
	entryOffset := binary.LittleEndian.Uint32(entry[0:4])
	entrySize := int(binary.LittleEndian.Uint32(entry[4:8]))
	if entryOffset < virtualAddress {
		return nil, ErrInvalidResources
	}
	data, err := followOffset(global, entryOffset-virtualAddress, entrySize)
	if err != nil {
		return nil, err
	}
	resourceData := data[0:entrySize]
	hash := sha256.Sum256(resourceData)
	resourceMime := "Data"
	if kind, err := filetype.Match(resourceData); err == nil && kind.MIME.Value != "" {
		resourceMime = kind.MIME.Value
	}
	return []Resource{
		{
			Type:     path.typeName,
			Name:     path.name,
			Language: languageName(language),
			MIME:     resourceMime,
			SHA256:   hex.EncodeToString(hash[:]),
			ID:       path.nameID,
			Size:     entrySize,
			typeID:   path.typeID,
			named:    path.named,
			data:     resourceData,
		},
	}, nil
}

// A leaf's Type, Name, and Language IDs are determined by the path
// that is taken through directory tables to reach the leaf. The first
// table determines Type ID, the second table (pointed to by the directory
// entry in the first table) determines Name ID, and the third table
// determines Language ID.
func parseEntries(virtualAddress uint32, depth int, path resourcePath, global, base []byte) ([]Resource, error) {
	if depth >= maxDepth || len(base) < 16 {
		return nil, ErrInvalidResources
	}
	resources := []Resource{}
	namedEntries := binary.LittleEndian.Uint16(base[12:14])
	idEntries := binary.LittleEndian.Uint16(base[14:16])
	numEntries := int(namedEntries) + int(idEntries)
	entriesData := base[16:]
	if len(entriesData) < numEntries*8 {
		return nil, ErrInvalidResources
	}

	for i := 0; i < numEntries; i++ {
		entryData := entriesData[8*i:]
		leafPath := path

		switch depth {
		case 0:
			name, _, err := parseName(global, entryData, true)
			if err != nil {
				return nil, err
			}
			leafPath.typeName = name
			leafPath.typeID = binary.LittleEndian.Uint32(entryData[0:4])
		case 1:
			name, named, err := parseName(global, entryData, false)
			if err != nil {
				return nil, err
			}
			leafPath.name = name
			leafPath.named = named
			if !named {
				leafPath.nameID = binary.LittleEndian.Uint32(entryData[0:4])
			}
		}

		entryResources, err := parseEntry(virtualAddress, depth, leafPath, global, entryData)
		if err != nil {
			return nil, err
		}
		resources = append(resources, entryResources...)
	}
	return resources, nil
}
