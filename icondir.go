// Package icondir fingerprints icon containers and the icon groups embedded
// in executables, and extracts their images.
package icondir

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/go-errors/errors"
	"github.com/h2non/filetype"
	sha256 "github.com/minio/sha256-simd"

	"github.com/andrewstucki/icondir/ico"
	"github.com/andrewstucki/icondir/pe"
)

// size for mime detection
const headerSize = 8192

const (
	mimeIcon       = "image/vnd.microsoft.icon"
	mimeCursor     = "image/x-win-cursor"
	mimeExecutable = "application/vnd.microsoft.portable-executable"
)

var addedTypes = map[string]struct {
	mime    string
	matcher func([]byte) bool
}{
	"ico": {mimeIcon, iconMatcher(ico.TypeIcon)},
	"cur": {mimeCursor, iconMatcher(ico.TypeCursor)},
}

func init() {
	for extension, added := range addedTypes {
		filetype.AddMatcher(filetype.NewType(extension, added.mime), added.matcher)
	}
}

func iconMatcher(containerType int16) func([]byte) bool {
	return func(buf []byte) bool {
		return len(buf) > ico.HeaderSize &&
			buf[0] == 0x00 && buf[1] == 0x00 &&
			buf[2] == byte(containerType) && buf[3] == 0x00 &&
			(buf[4] != 0x00 || buf[5] != 0x00)
	}
}

// Image summarizes one image variant of a container without decoding it.
type Image struct {
	Index int `json:"index"`
	ico.DirectoryEntry
	Format string `json:"format"`
	SHA256 string `json:"sha256"`
	SSDEEP string `json:"ssdeep,omitempty"`
}

// Container summarizes a standalone icon file or one icon group of an
// executable.
type Container struct {
	Name   string     `json:"name,omitempty"`
	Header ico.Header `json:"header"`
	Images []Image    `json:"images"`
}

// Info contains fingerprinting information.
type Info struct {
	MIME       string      `json:"mime"`
	SSDEEP     string      `json:"ssdeep,omitempty"`
	MD5        string      `json:"md5"`
	SHA1       string      `json:"sha1"`
	SHA256     string      `json:"sha256"`
	Size       int         `json:"size"`
	Containers []Container `json:"containers,omitempty"`
	PE         *pe.Info    `json:"pe,omitempty"`
}

// Reader is the interface that must be satisfied for parsing a stream of data.
type Reader interface {
	io.ReadSeeker
	io.ReaderAt
}

func mimeFallback(r Reader) (string, error) {
	chunk := make([]byte, 256)
	for {
		n, err := r.Read(chunk)
		if err != nil {
			if err == io.EOF {
				return "text/plain", nil
			}
			return "", errors.Wrap(err, 0)
		}
		buffer := chunk[:n]
		for len(buffer) > 0 {
			if r, size := utf8.DecodeRune(buffer); r != utf8.RuneError {
				buffer = buffer[size:]
				continue
			}
			return "application/octet-stream", nil
		}
	}
}

func rewind(r io.Seeker) error {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, 1)
	}
	return nil
}

func detect(r Reader) (string, error) {
	header := make([]byte, headerSize)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", errors.Wrap(err, 0)
	}
	if err := rewind(r); err != nil {
		return "", err
	}

	kind, err := filetype.Match(header[:n])
	if err != nil {
		return "", errors.Wrap(err, 0)
	}
	switch {
	case kind.Extension == "ico":
		return mimeIcon, nil
	case kind.MIME.Value != "":
		return kind.MIME.Value, nil
	}

	fallback, err := mimeFallback(r)
	if err != nil {
		return "", err
	}
	return fallback, rewind(r)
}

// Parse determines the file type for the data and then enriches the information
// based off of the file type contained. Icon files are described directly,
// executables through the icon groups found in their resources.
func Parse(r Reader, size int) (*Info, error) {
	mime, err := detect(r)
	if err != nil {
		return nil, err
	}

	var fuzzy string
	if size >= minFuzzySize {
		fuzzy, err = fuzzyHash(r, size)
		if err != nil && !errors.Is(err, errBlockTooSmall) {
			return nil, err
		}
		if err := rewind(r); err != nil {
			return nil, err
		}
	}

	md5hash := md5.New()
	sha1hash := sha1.New()
	sha256hash := sha256.New()
	hasher := io.MultiWriter(md5hash, sha1hash, sha256hash)
	if _, err := io.Copy(hasher, r); err != nil {
		return nil, errors.Wrap(err, 0)
	}

	info := &Info{
		MIME:   mime,
		Size:   size,
		MD5:    hex.EncodeToString(md5hash.Sum(nil)),
		SHA1:   hex.EncodeToString(sha1hash.Sum(nil)),
		SHA256: hex.EncodeToString(sha256hash.Sum(nil)),
		SSDEEP: fuzzy,
	}

	switch mime {
	case mimeIcon, mimeCursor:
		c, err := ico.NewContainer(r)
		if err != nil {
			slog.Debug("unable to read icon container", "error", err)
			break
		}
		defer c.Close()
		described, err := describe("", c)
		if err != nil {
			slog.Debug("unable to describe icon container", "error", err)
			break
		}
		info.Containers = []Container{described}
	case mimeExecutable:
		peInfo, err := pe.Parse(r)
		if err != nil {
			slog.Debug("unable to parse executable", "error", err)
			break
		}
		info.PE = peInfo
		info.Containers = describeGroups(peInfo.IconGroups)
	}

	return info, nil
}

func describeGroups(groups []pe.IconGroup) []Container {
	containers := []Container{}
	for _, group := range groups {
		c, err := group.Open()
		if err != nil {
			slog.Debug("unable to open icon group", "group", group.Name, "error", err)
			continue
		}
		described, err := describe(group.Name, c)
		c.Close()
		if err != nil {
			slog.Debug("unable to describe icon group", "group", group.Name, "error", err)
			continue
		}
		containers = append(containers, described)
	}
	return containers
}

func describe(name string, c *ico.Container) (Container, error) {
	described := Container{
		Name:   name,
		Header: c.Header(),
		Images: make([]Image, 0, c.Len()),
	}
	for i, entry := range c.Entries() {
		payload, err := c.Payload(i)
		if err != nil {
			return Container{}, err
		}
		hash := sha256.Sum256(payload)
		image := Image{
			Index:          i,
			DirectoryEntry: entry,
			Format:         ico.PayloadFormat(payload),
			SHA256:         hex.EncodeToString(hash[:]),
		}
		if len(payload) >= minFuzzySize {
			if fuzzy, err := fuzzyHash(bytes.NewReader(payload), len(payload)); err == nil {
				image.SSDEEP = fuzzy
			}
		}
		described.Images = append(described.Images, image)
	}
	return described, nil
}
