package icondir

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/go-errors/errors"
	"github.com/h2non/filetype"

	"github.com/andrewstucki/icondir/ico"
	"github.com/andrewstucki/icondir/pe"
	"github.com/andrewstucki/icondir/resource"
)

type options struct {
	logger  *slog.Logger
	decoder ico.Decoder
	size    []ico.Option
}

// Option configures extraction.
type Option func(*options)

// WithLogger sets the logger handed to every container, slog.Default()
// otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDecoder replaces the decoder used for image payloads.
func WithDecoder(decoder ico.Decoder) Option {
	return func(o *options) {
		o.decoder = decoder
	}
}

// WithSize decodes every image at width x height rather than the size its
// directory entry records. Zero keeps the native size along that axis.
func WithSize(width, height int) Option {
	return func(o *options) {
		o.size = []ico.Option{ico.WithSize(width, height)}
	}
}

func newOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

func (o options) container() []ico.Option {
	containerOptions := []ico.Option{ico.WithLogger(o.logger)}
	if o.decoder != nil {
		containerOptions = append(containerOptions, ico.WithDecoder(o.decoder))
	}
	return append(containerOptions, o.size...)
}

func isIconFile(path string) (bool, error) {
	if ok, err := ico.LooksLikeIconFile(path); err != nil || ok {
		return ok, err
	}
	kind, err := filetype.MatchFile(path)
	if err != nil {
		return false, errors.Wrap(err, 0)
	}
	return kind.Extension == "ico" || kind.Extension == "cur", nil
}

func decodeContainer(ctx context.Context, c *ico.Container) ([]*ico.Icon, error) {
	defer c.Close()
	return c.DecodeAll(ctx)
}

func releaseIcons(icons []*ico.Icon) {
	for _, icon := range icons {
		icon.Close()
	}
}

func parseExecutable(path string) (*pe.Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	defer f.Close()
	return pe.Parse(f)
}

func executableGroups(path string) ([]pe.IconGroup, error) {
	info, err := parseExecutable(path)
	if err != nil {
		return nil, err
	}
	return info.IconGroups, nil
}

// ExtractIcons decodes every image of the icon file or executable at path.
// For executables the images of all icon groups are returned, group after
// group. On failure, cancellation included, nothing is returned and every
// icon decoded so far is released.
func ExtractIcons(ctx context.Context, path string, opts ...Option) ([]*ico.Icon, error) {
	o := newOptions(opts)
	iconFile, err := isIconFile(path)
	if err != nil {
		return nil, err
	}
	if iconFile {
		c, err := ico.Open(path, o.container()...)
		if err != nil {
			return nil, err
		}
		return decodeContainer(ctx, c)
	}

	groups, err := executableGroups(path)
	if err != nil {
		return nil, err
	}
	icons := []*ico.Icon{}
	for _, group := range groups {
		c, err := group.Open(o.container()...)
		if err != nil {
			releaseIcons(icons)
			return nil, err
		}
		decoded, err := decodeContainer(ctx, c)
		if err != nil {
			releaseIcons(icons)
			return nil, err
		}
		icons = append(icons, decoded...)
	}
	o.logger.Debug("extracted icons", "path", path, "groups", len(groups), "icons", len(icons))
	return icons, nil
}

func selectGroup(groups []pe.IconGroup, descriptor resource.Descriptor) (pe.IconGroup, error) {
	switch descriptor.Kind() {
	case resource.KindResourceID:
		for _, group := range groups {
			if group.ID == descriptor.ID {
				return group, nil
			}
		}
	case resource.KindIndex:
		if index := int(descriptor.Identifier); index >= 0 && index < len(groups) {
			return groups[index], nil
		}
	}
	return pe.IconGroup{}, errors.WrapPrefix(ErrIconNotFound, descriptor.String(), 1)
}

// ExtractResource decodes the icon group a descriptor such as
// "@%SystemRoot%\system32\shell32.dll,-21" points at. Negative identifiers
// below -1 select a group by resource id, anything else by its position.
// An icon file only has the group at index 0.
func ExtractResource(ctx context.Context, descriptor resource.Descriptor, opts ...Option) ([]*ico.Icon, error) {
	o := newOptions(opts)
	iconFile, err := isIconFile(descriptor.File)
	if err != nil {
		return nil, err
	}
	if iconFile {
		if descriptor.Kind() != resource.KindIndex || descriptor.Identifier != 0 {
			return nil, errors.WrapPrefix(ErrIconNotFound, descriptor.String(), 0)
		}
		c, err := ico.Open(descriptor.File, o.container()...)
		if err != nil {
			return nil, err
		}
		return decodeContainer(ctx, c)
	}

	groups, err := executableGroups(descriptor.File)
	if err != nil {
		return nil, err
	}
	group, err := selectGroup(groups, descriptor)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("resolved icon resource", "descriptor", descriptor.String(), "group", group.Name)
	c, err := group.Open(o.container()...)
	if err != nil {
		return nil, err
	}
	return decodeContainer(ctx, c)
}

// ExtractString loads the string a descriptor such as
// "@%SystemRoot%\system32\shell32.dll,-8964" names from the executable's
// string tables. The descriptor's ID is the string id, whatever its sign.
func ExtractString(descriptor resource.Descriptor) (string, error) {
	if strings.TrimSpace(descriptor.File) == "" {
		return "", errors.WrapPrefix(resource.ErrInvalidArgument, "empty file", 0)
	}
	info, err := parseExecutable(descriptor.File)
	if err != nil {
		return "", err
	}
	return info.LookupString(descriptor.ID)
}
