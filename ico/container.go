// Package ico reads icon containers: standalone .ico files as well as the
// same layout assembled in memory from executable resources.
//
// A container is a 6 byte header followed by a directory of 16 byte entries,
// each pointing at the raw payload (PNG or DIB) of one image variant. The
// directory is read eagerly when the container is opened, payloads are read
// and decoded on demand.
package ico

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/go-errors/errors"
)

const iconExtension = ".ico"

type sourceKind int

const (
	borrowedStream sourceKind = iota
	ownedFile
)

// source is where the container bytes come from. Only an owned file is
// closed together with the container.
type source struct {
	kind sourceKind
	r    io.ReadSeeker
	file *os.File
	size int64
}

func (s *source) close() error {
	switch s.kind {
	case ownedFile:
		return s.file.Close()
	case borrowedStream:
		return nil
	default:
		return nil
	}
}

// Option configures a Container.
type Option func(*Container)

// WithDecoder replaces the default ImageDecoder.
func WithDecoder(decoder Decoder) Option {
	return func(c *Container) {
		if decoder != nil {
			c.decoder = decoder
		}
	}
}

// WithLogger sets the logger used for diagnostics, slog.Default() otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSize decodes every image at width x height instead of the size its
// directory entry records. A zero dimension keeps the payload's native
// extent along that axis, so WithSize(0, 0) skips scaling altogether.
func WithSize(width, height int) Option {
	return func(c *Container) {
		if width < 0 || height < 0 {
			return
		}
		c.size = &[2]int{width, height}
	}
}

// Container gives access to the images of one icon container. It is not
// safe for concurrent use.
type Container struct {
	source  source
	header  Header
	entries []DirectoryEntry
	decoder Decoder
	logger  *slog.Logger
	size    *[2]int
	closed  bool
}

// Open opens the container stored in the file at path. The file is owned by
// the returned container and closed with it. If parsing fails the file is
// closed before Open returns.
func Open(path string, opts ...Option) (*Container, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.WrapPrefix(ErrInvalidArgument, "empty path", 0)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	c, err := newContainer(source{kind: ownedFile, r: f, file: f}, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

// NewContainer parses the container read from r, starting at offset 0. r is
// borrowed: closing the container does not close it, and it must stay
// usable for as long as icons are decoded.
func NewContainer(r io.ReadSeeker, opts ...Option) (*Container, error) {
	if isNil(r) {
		return nil, errors.WrapPrefix(ErrInvalidArgument, "nil reader", 0)
	}
	return newContainer(source{kind: borrowedStream, r: r}, opts)
}

// isNil also catches typed nils such as a (*bytes.Reader)(nil) stored in the
// interface.
func isNil(r io.ReadSeeker) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// TryOpen is Open for callers that only care whether path holds a readable
// container.
func TryOpen(path string, opts ...Option) (c *Container, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("icon container open panicked", "path", path, "panic", r)
			c, ok = nil, false
		}
	}()
	c, err := Open(path, opts...)
	if err != nil {
		slog.Debug("not an icon container", "path", path, "error", err)
		return nil, false
	}
	return c, true
}

// TryNewContainer is NewContainer reporting failure as false.
// A reader that panics mid-parse is reported the same way.
func TryNewContainer(r io.ReadSeeker, opts ...Option) (c *Container, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			slog.Debug("icon container parse panicked", "panic", p)
			c, ok = nil, false
		}
	}()
	c, err := NewContainer(r, opts...)
	if err != nil {
		slog.Debug("not an icon container", "error", err)
		return nil, false
	}
	return c, true
}

func newContainer(src source, opts []Option) (*Container, error) {
	c := &Container{
		source:  src,
		decoder: ImageDecoder{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	size, err := src.r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	c.source.size = size
	if _, err := src.r.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, 0)
	}

	header, err := readHeader(src.r)
	if err != nil {
		return nil, err
	}
	if header.Reserved != 0 || header.Type != TypeIcon {
		c.logger.Warn("unexpected icon container header", "reserved", header.Reserved, "type", header.Type)
	}
	entries, err := readDirectory(src.r, header)
	if err != nil {
		return nil, err
	}
	c.header = header
	c.entries = entries
	c.logger.Debug("opened icon container", "entries", len(entries), "size", size)
	return c, nil
}

// Header returns the container header as read.
func (c *Container) Header() Header {
	return c.header
}

// Entries returns a copy of the directory in stream order.
func (c *Container) Entries() []DirectoryEntry {
	entries := make([]DirectoryEntry, len(c.entries))
	copy(entries, c.entries)
	return entries
}

// Len returns the number of directory entries.
func (c *Container) Len() int {
	return len(c.entries)
}

// HasEntries reports whether the directory lists at least one image. It never
// fails; a closed container has no entries.
func (c *Container) HasEntries() bool {
	return len(c.entries) > 0
}

// Icons returns a lazy sequence over the decoded images, in directory order.
// Every call starts a fresh pass. Whether the container is closed is checked
// once, when iteration starts. A read or decode error is yielded once and
// ends the sequence.
func (c *Container) Icons() iter.Seq2[*Icon, error] {
	return func(yield func(*Icon, error) bool) {
		if c.closed {
			yield(nil, ErrClosed)
			return
		}
		for i, entry := range c.entries {
			icon, err := c.extract(i, entry)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(icon, nil) {
				return
			}
		}
	}
}

// DecodeAll decodes every image up front. ctx is checked before each entry.
// On any failure, cancellation included, the icons decoded so far are closed
// and none are returned.
func (c *Container) DecodeAll(ctx context.Context) ([]*Icon, error) {
	if c.closed {
		return nil, ErrClosed
	}
	icons := make([]*Icon, 0, len(c.entries))
	for i, entry := range c.entries {
		if err := ctx.Err(); err != nil {
			c.logger.Debug("icon decoding canceled", "decoded", len(icons), "entries", len(c.entries))
			closeIcons(icons)
			return nil, errors.Wrap(err, 0)
		}
		icon, err := c.extract(i, entry)
		if err != nil {
			closeIcons(icons)
			return nil, err
		}
		icons = append(icons, icon)
	}
	return icons, nil
}

// Payload returns the raw, undecoded bytes of the image at index.
func (c *Container) Payload(index int) ([]byte, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if index < 0 || index >= len(c.entries) {
		return nil, errors.WrapPrefix(ErrInvalidArgument, fmt.Sprintf("index %d out of range", index), 0)
	}
	return c.readPayload(index, c.entries[index])
}

// readPayload moves the shared read cursor.
func (c *Container) readPayload(index int, entry DirectoryEntry) ([]byte, error) {
	if entry.Offset < 0 || entry.Size < 0 {
		return nil, errors.Wrap(&DecodeError{
			Index: index,
			Entry: entry,
			Code:  CodeCorrupt,
			Err:   fmt.Errorf("negative payload bounds (offset %d, size %d)", entry.Offset, entry.Size),
		}, 0)
	}
	section := fmt.Sprintf("payload of entry %d", index)
	if int64(entry.Offset)+int64(entry.Size) > c.source.size {
		return nil, errors.WrapPrefix(ErrTruncated, section, 0)
	}
	if _, err := c.source.r.Seek(int64(entry.Offset), io.SeekStart); err != nil {
		return nil, errors.Wrap(err, 0)
	}
	data := make([]byte, entry.Size)
	if _, err := io.ReadFull(c.source.r, data); err != nil {
		return nil, truncated(err, section)
	}
	return data, nil
}

func (c *Container) extract(index int, entry DirectoryEntry) (*Icon, error) {
	data, err := c.readPayload(index, entry)
	if err != nil {
		return nil, err
	}

	width, height := int(entry.Width), int(entry.Height)
	if c.size != nil {
		width, height = c.size[0], c.size[1]
	}
	img, err := c.decoder.Decode(data, width, height)
	if err == nil && img == nil {
		err = errors.Errorf("decoder returned no image")
	}
	if err != nil {
		return nil, errors.Wrap(&DecodeError{Index: index, Entry: entry, Code: codeFor(err), Err: err}, 0)
	}
	return &Icon{Index: index, Entry: entry, img: cloneImage(img)}, nil
}

// Close releases the container. An owned file is closed, a borrowed reader is
// left alone. Closing twice is not an error.
func (c *Container) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.entries = nil
	if err := c.source.close(); err != nil {
		return errors.Wrap(err, 0)
	}
	return nil
}

// LooksLikeIconFile reports whether path ends in ".ico", ignoring case. It
// does not touch the file system.
func LooksLikeIconFile(path string) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, errors.WrapPrefix(ErrInvalidArgument, "empty path", 0)
	}
	return strings.HasSuffix(strings.ToLower(path), iconExtension), nil
}
