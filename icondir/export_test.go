package main

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewstucki/icondir/ico"
	"github.com/andrewstucki/icondir/internal/fixture"
)

func TestExportIcons(t *testing.T) {
	c, err := ico.NewContainer(bytes.NewReader(fixture.Icon(1, []int{16, 32}, [][]byte{
		fixture.PNG(16, color.NRGBA{R: 0xff, A: 0xff}),
		fixture.PNG(32, color.NRGBA{B: 0xff, A: 0xff}),
	})))
	require.NoError(t, err)
	icons, err := c.DecodeAll(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	dir := filepath.Join(t.TempDir(), "out")
	written, err := exportIcons(dir, "/somewhere/app.ico", icons)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "app_00_16x16.png"),
		filepath.Join(dir, "app_01_32x32.png"),
	}, written)

	f, err := os.Open(written[1])
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	require.Equal(t, 32, img.Bounds().Dx())
	r, g, b, a := img.At(4, 4).RGBA()
	require.Equal(t, []uint32{0, 0, 0xffff, 0xffff}, []uint32{r, g, b, a})

	icons[0].Close()
	_, err = exportIcons(dir, "app.ico", icons)
	require.Error(t, err)
}
