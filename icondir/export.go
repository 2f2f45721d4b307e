package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
	"github.com/go-errors/errors"

	"github.com/andrewstucki/icondir/ico"
)

func exportName(source string, index int, icon *ico.Icon) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	bounds := icon.Bounds()
	return fmt.Sprintf("%s_%02d_%dx%d.png", base, index, bounds.Dx(), bounds.Dy())
}

// exportIcons writes every icon as a PNG into dir and returns the written
// paths.
func exportIcons(dir, source string, icons []*ico.Icon) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, 0)
	}
	written := make([]string, 0, len(icons))
	for i, icon := range icons {
		img := icon.Image()
		if img == nil {
			return written, errors.WrapPrefix(ico.ErrClosed, fmt.Sprintf("icon %d", i), 0)
		}
		path := filepath.Join(dir, exportName(source, i, icon))
		if err := gg.NewContextForImage(img).SavePNG(path); err != nil {
			return written, errors.WrapPrefix(err, "writing "+path, 0)
		}
		written = append(written, path)
	}
	return written, nil
}
