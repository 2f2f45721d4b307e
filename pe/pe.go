package pe

import (
	"debug/pe"
	"io"
	"time"

	"github.com/go-errors/errors"
)

// Header contains information found in a PE header.
type Header struct {
	CompilationTimestamp time.Time `json:"compilationTimestamp"`
	Entrypoint           uint32    `json:"entrypoint"`
	TargetMachine        string    `json:"targetMachine"`
	ContainedSections    int       `json:"containedSections"`
}

// Resource represents a resource entry embedded in a PE file.
type Resource struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	ID       uint32 `json:"id,omitempty"`
	Language string `json:"language"`
	SHA256   string `json:"sha256"`
	MIME     string `json:"mime"`
	Size     int    `json:"size"`

	typeID uint32
	named  bool
	data   []byte
}

// Data returns the raw bytes of the resource.
func (r Resource) Data() []byte {
	return r.data
}

// Info contains the resources and icon groups of a PE file.
type Info struct {
	Header                       Header         `json:"header,omitempty"`
	ContainedResourcesByType     map[string]int `json:"containedResourcesByType,omitempty"`
	ContainedResourcesByLanguage map[string]int `json:"containedResourcesByLanguage,omitempty"`
	Resources                    []Resource     `json:"resources,omitempty"`
	IconGroups                   []IconGroup    `json:"iconGroups,omitempty"`
}

func resourceDirectory(f *pe.File) pe.DataDirectory {
	var emptyDirectory pe.DataDirectory
	switch header := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if header.NumberOfRvaAndSizes < pe.IMAGE_DIRECTORY_ENTRY_RESOURCE+1 {
			return emptyDirectory
		}
		return header.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_RESOURCE]
	case *pe.OptionalHeader64:
		if header.NumberOfRvaAndSizes < pe.IMAGE_DIRECTORY_ENTRY_RESOURCE+1 {
			return emptyDirectory
		}
		return header.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_RESOURCE]
	}
	return emptyDirectory
}

// resourceData returns the bytes starting at the resource directory along with
// the directory's virtual address, all data entry offsets are relative to it.
func resourceData(f *pe.File) ([]byte, uint32, error) {
	resources := resourceDirectory(f)
	if resources.Size == 0 {
		return nil, 0, nil
	}
	for _, section := range f.Sections {
		size := section.VirtualSize
		if section.Size > size {
			size = section.Size
		}
		if section.VirtualAddress > resources.VirtualAddress || resources.VirtualAddress >= section.VirtualAddress+size {
			continue
		}
		data, err := section.Data()
		if err != nil {
			return nil, 0, errors.WrapPrefix(err, "reading section "+section.Name, 0)
		}
		start := int(resources.VirtualAddress - section.VirtualAddress)
		if start >= len(data) {
			return nil, 0, nil
		}
		return data[start:], resources.VirtualAddress, nil
	}
	return nil, 0, nil
}

// Parse parses the PE and returns its resources and icon groups or errors.
func Parse(r io.ReaderAt) (*Info, error) {
	peFile, err := pe.NewFile(r)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	var architecture string
	var entrypoint uint32
	switch header := peFile.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		architecture = "x32"
		entrypoint = header.AddressOfEntryPoint

	case *pe.OptionalHeader64:
		architecture = "x64"
		entrypoint = header.AddressOfEntryPoint

	default:
		architecture = "unknown"
	}

	info := &Info{
		Header: Header{
			CompilationTimestamp: time.Unix(int64(peFile.FileHeader.TimeDateStamp), 0).UTC(),
			Entrypoint:           entrypoint,
			TargetMachine:        architecture,
			ContainedSections:    len(peFile.Sections),
		},
		ContainedResourcesByType:     make(map[string]int),
		ContainedResourcesByLanguage: make(map[string]int),
	}

	data, virtualAddress, err := resourceData(peFile)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return info, nil
	}

	resources, err := parseDirectory(virtualAddress, data)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	info.Resources = resources
	for _, resource := range resources {
		countValue(info.ContainedResourcesByType, resource.Type)
		countValue(info.ContainedResourcesByLanguage, resource.Language)
	}
	info.IconGroups = iconGroups(resources)
	return info, nil
}
