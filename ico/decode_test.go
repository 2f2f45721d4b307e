package ico

import (
	"image"
	"image/color"
	"testing"

	"github.com/andrewstucki/icondir/internal/fixture"
	"github.com/stretchr/testify/require"
)

func decodeNRGBA(t *testing.T, data []byte, width, height int) *image.NRGBA {
	t.Helper()
	img, err := ImageDecoder{}.Decode(data, width, height)
	require.NoError(t, err)
	return cloneImage(img)
}

func TestDecodePNG(t *testing.T) {
	data := fixture.PNG(32, color.NRGBA{R: 10, G: 20, B: 30, A: 0xff})
	require.Equal(t, "png", PayloadFormat(data))

	img := decodeNRGBA(t, data, 0, 0)
	require.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())
	require.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 0xff}, img.NRGBAAt(5, 5))
}

func TestDecodeScalesToRequestedSize(t *testing.T) {
	data := fixture.PNG(32, color.NRGBA{R: 200, A: 0xff})
	img := decodeNRGBA(t, data, 16, 16)
	require.Equal(t, image.Rect(0, 0, 16, 16), img.Bounds())
	require.InDelta(t, 200, int(img.NRGBAAt(8, 8).R), 1)
}

func TestDecodeDIB32(t *testing.T) {
	data := dibPayload(4, 4, 32, nil, func(x, y int) []byte {
		// BGRA, alpha grows with y
		return []byte{0x10, 0x20, byte(x * 10), byte(y * 60)}
	}, nil)
	require.Equal(t, "dib", PayloadFormat(data))

	img := decodeNRGBA(t, data, 0, 0)
	require.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())
	require.Equal(t, color.NRGBA{R: 30, G: 0x20, B: 0x10, A: 180}, img.NRGBAAt(3, 3))
	require.Equal(t, uint8(0), img.NRGBAAt(0, 0).A)
}

func TestDecodeDIB32WithoutAlphaUsesMask(t *testing.T) {
	data := dibPayload(4, 4, 32, nil, func(x, y int) []byte {
		return []byte{0xff, 0, 0, 0}
	}, func(x, y int) bool {
		return x == 0 && y == 0
	})
	img := decodeNRGBA(t, data, 0, 0)
	require.Equal(t, uint8(0), img.NRGBAAt(0, 0).A)
	require.Equal(t, color.NRGBA{B: 0xff, A: 0xff}, img.NRGBAAt(1, 0))
}

func TestDecodeDIB24WithMask(t *testing.T) {
	data := dibPayload(5, 3, 24, nil, func(x, y int) []byte {
		return []byte{0x00, 0x80, 0xff}
	}, func(x, y int) bool {
		return y == 2
	})
	img := decodeNRGBA(t, data, 0, 0)
	require.Equal(t, image.Rect(0, 0, 5, 3), img.Bounds())
	require.Equal(t, color.NRGBA{R: 0xff, G: 0x80, B: 0x00, A: 0xff}, img.NRGBAAt(4, 0))
	require.Equal(t, uint8(0), img.NRGBAAt(4, 2).A)
}

func TestDecodeDIB8(t *testing.T) {
	palette := []color.NRGBA{
		{R: 0xff, A: 0xff},
		{G: 0xff, A: 0xff},
	}
	data := dibPayload(4, 2, 8, palette, func(x, y int) []byte {
		return []byte{byte(x % 2)}
	}, nil)
	img := decodeNRGBA(t, data, 0, 0)
	require.Equal(t, color.NRGBA{R: 0xff, A: 0xff}, img.NRGBAAt(0, 1))
	require.Equal(t, color.NRGBA{G: 0xff, A: 0xff}, img.NRGBAAt(1, 1))
}

func TestDecodeUnsupportedDepth(t *testing.T) {
	data := dibPayload(8, 8, 4, []color.NRGBA{{A: 0xff}}, func(x, y int) []byte {
		return []byte{0}
	}, nil)
	_, err := ImageDecoder{}.Decode(data, 0, 0)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	require.Equal(t, CodeUnsupported, codeFor(err))
}

func TestDecodeUnknownFormat(t *testing.T) {
	_, err := ImageDecoder{}.Decode([]byte("GIF89a"), 0, 0)
	require.ErrorIs(t, err, ErrUnknownFormat)
	require.Equal(t, "", PayloadFormat([]byte("GIF89a")))
}

func TestDecodeCorruptDIB(t *testing.T) {
	data := dibPayload(4, 4, 32, nil, func(x, y int) []byte {
		return []byte{1, 2, 3, 4}
	}, nil)
	_, err := ImageDecoder{}.Decode(data[:60], 0, 0)
	require.Error(t, err)
	require.Equal(t, CodeCorrupt, codeFor(err))
}
