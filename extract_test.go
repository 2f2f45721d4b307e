package icondir

import (
	"context"
	"image"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewstucki/icondir/ico"
	"github.com/andrewstucki/icondir/internal/fixture"
	"github.com/andrewstucki/icondir/pe"
	"github.com/andrewstucki/icondir/resource"
)

func sizes(icons []*ico.Icon) []int {
	found := make([]int, len(icons))
	for i, icon := range icons {
		found[i] = icon.Bounds().Dx()
	}
	return found
}

func TestExtractIcons(t *testing.T) {
	data, _ := iconFile()
	for name, path := range map[string]string{
		"icon":          writeFile(t, ".ico", data),
		"icon contents": writeFile(t, ".bin", data),
		"executable":    writeFile(t, ".exe", executable()),
	} {
		t.Run(name, func(t *testing.T) {
			icons, err := ExtractIcons(context.Background(), path)
			require.NoError(t, err)
			defer releaseIcons(icons)

			if name == "executable" {
				require.Equal(t, []int{16, 32, 48}, sizes(icons))
				require.Equal(t, blue, icons[2].Image().At(0, 0))
				return
			}
			require.Equal(t, []int{16, 32}, sizes(icons))
			require.Equal(t, red, icons[0].Image().At(0, 0))
		})
	}
}

func TestExtractIconsOptions(t *testing.T) {
	decoded := 0
	decoder := ico.DecoderFunc(func(data []byte, width, height int) (image.Image, error) {
		decoded++
		return ico.ImageDecoder{}.Decode(data, width, height)
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	icons, err := ExtractIcons(context.Background(), writeFile(t, ".exe", executable()), WithDecoder(decoder), WithLogger(logger))
	require.NoError(t, err)
	defer releaseIcons(icons)
	require.Len(t, icons, 3)
	require.Equal(t, 3, decoded)
}

func TestExtractIconsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	icons, err := ExtractIcons(ctx, writeFile(t, ".exe", executable()))
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, icons)
}

func TestExtractIconsErrors(t *testing.T) {
	_, err := ExtractIcons(context.Background(), "")
	require.ErrorIs(t, err, ico.ErrInvalidArgument)

	_, err = ExtractIcons(context.Background(), writeFile(t, ".txt", []byte("not an executable")))
	require.Error(t, err)
}

func TestExtractResource(t *testing.T) {
	path := writeFile(t, ".dll", executable())
	for value, expected := range map[string][]int{
		path + ",-102": {48},
		path + ",-101": {16, 32},
		path + ",0":    {16, 32},
		path + ",#1":   {48},
	} {
		descriptor, err := resource.ParseDescriptor(value)
		require.NoError(t, err)

		icons, err := ExtractResource(context.Background(), descriptor)
		require.NoError(t, err, value)
		require.Equal(t, expected, sizes(icons), value)
		releaseIcons(icons)
	}

	for _, value := range []string{path + ",-7", path + ",5", path + ",-1"} {
		descriptor, err := resource.ParseDescriptor(value)
		require.NoError(t, err)

		_, err = ExtractResource(context.Background(), descriptor)
		require.ErrorIs(t, err, ErrIconNotFound, value)
	}
}

func TestExtractWithSize(t *testing.T) {
	path := writeFile(t, ".dll", executable())
	descriptor, err := resource.ParseDescriptor(path + ",-101")
	require.NoError(t, err)

	icons, err := ExtractResource(context.Background(), descriptor, WithSize(24, 24))
	require.NoError(t, err)
	defer releaseIcons(icons)
	require.Equal(t, []int{24, 24}, sizes(icons))
	require.Equal(t, image.Rect(0, 0, 24, 24), icons[1].Bounds())

	all, err := ExtractIcons(context.Background(), path, WithSize(0, 0))
	require.NoError(t, err)
	defer releaseIcons(all)
	require.Equal(t, []int{16, 32, 48}, sizes(all))
}

func TestExtractResourceFromIconFile(t *testing.T) {
	data, _ := iconFile()
	path := writeFile(t, ".ico", data)

	descriptor, err := resource.ParseDescriptor(`"` + path + `",0`)
	require.NoError(t, err)
	icons, err := ExtractResource(context.Background(), descriptor)
	require.NoError(t, err)
	require.Equal(t, []int{16, 32}, sizes(icons))
	releaseIcons(icons)

	descriptor, err = resource.ParseDescriptor(path + ",-2")
	require.NoError(t, err)
	_, err = ExtractResource(context.Background(), descriptor)
	require.ErrorIs(t, err, ErrIconNotFound)
}

func TestExtractString(t *testing.T) {
	leaves := []fixture.Leaf{
		{Type: fixture.TypeString, ID: 2, Data: fixture.StringBlock(map[int]string{5: "Recycle Bin"})},
		{Type: fixture.TypeString, ID: 561, Data: fixture.StringBlock(map[int]string{4: "This PC"})},
	}
	path := writeFile(t, ".dll", fixture.Executable(fixture.ResourceSection(fixture.VirtualAddress, leaves)))

	for value, expected := range map[string]string{
		"@" + path + ",-21":    "Recycle Bin",
		path + ",21":           "Recycle Bin",
		`"` + path + `",-8964`: "This PC",
	} {
		descriptor, err := resource.ParseDescriptor(value)
		require.NoError(t, err)

		found, err := ExtractString(descriptor)
		require.NoError(t, err, value)
		require.Equal(t, expected, found, value)
	}

	descriptor, err := resource.ParseDescriptor(path + ",-22")
	require.NoError(t, err)
	_, err = ExtractString(descriptor)
	require.ErrorIs(t, err, pe.ErrStringNotFound)

	_, err = ExtractString(resource.Descriptor{})
	require.ErrorIs(t, err, resource.ErrInvalidArgument)

	_, err = ExtractString(resource.Descriptor{File: writeFile(t, ".txt", []byte("plain text, no executable here"))})
	require.Error(t, err)
}
