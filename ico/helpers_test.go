package ico

import (
	"encoding/binary"
	"image/color"
	"testing"

	"github.com/andrewstucki/icondir/internal/fixture"
)

// dibPayload lays out a BITMAPINFOHEADER, palette, bottom-up color rows and
// the AND mask the way they are stored inside icon containers.
func dibPayload(width, height, bpp int, palette []color.NRGBA, pixel func(x, y int) []byte, transparent func(x, y int) bool) []byte {
	stride := ((width*bpp + 31) / 32) * 4
	maskStride := ((width + 31) / 32) * 4

	buf := make([]byte, 40)
	binary.LittleEndian.PutUint32(buf[0:4], 40)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(width))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(height*2))
	binary.LittleEndian.PutUint16(buf[12:14], 1)
	binary.LittleEndian.PutUint16(buf[14:16], uint16(bpp))
	binary.LittleEndian.PutUint32(buf[32:36], uint32(len(palette)))
	for _, c := range palette {
		buf = append(buf, c.B, c.G, c.R, 0)
	}
	for row := 0; row < height; row++ {
		y := height - 1 - row
		line := make([]byte, stride)
		for x := 0; x < width; x++ {
			copy(line[x*bpp/8:], pixel(x, y))
		}
		buf = append(buf, line...)
	}
	for row := 0; row < height; row++ {
		y := height - 1 - row
		line := make([]byte, maskStride)
		for x := 0; x < width; x++ {
			if transparent != nil && transparent(x, y) {
				line[x/8] |= 0x80 >> uint(x%8)
			}
		}
		buf = append(buf, line...)
	}
	return buf
}

type variant struct {
	size    int
	payload []byte
}

// buildContainer writes the header, the directory and the payloads. With
// reversed set the payloads are stored back to front so the offsets are not
// in directory order.
func buildContainer(variants []variant, reversed bool) []byte {
	header := Header{Type: TypeIcon, Count: int16(len(variants))}
	offset := HeaderSize + EntrySize*len(variants)

	offsets := make([]int, len(variants))
	order := make([]int, len(variants))
	for i := range variants {
		order[i] = i
		if reversed {
			order[i] = len(variants) - 1 - i
		}
	}
	for _, i := range order {
		offsets[i] = offset
		offset += len(variants[i].payload)
	}

	data := AppendHeader(nil, header)
	for i, v := range variants {
		data = AppendEntry(data, DirectoryEntry{
			Width:        byte(v.size),
			Height:       byte(v.size),
			Planes:       1,
			BitsPerPixel: 32,
			Size:         int32(len(v.payload)),
			Offset:       int32(offsets[i]),
		})
	}
	for _, i := range order {
		data = append(data, variants[i].payload...)
	}
	return data
}

var sixSizes = []int{16, 24, 32, 48, 64, 128}

func sixVariants(t *testing.T) []variant {
	t.Helper()
	variants := make([]variant, len(sixSizes))
	for i, size := range sixSizes {
		variants[i] = variant{size: size, payload: fixture.PNG(size, color.NRGBA{R: uint8(i * 40), G: 0x80, B: 0x10, A: 0xff})}
	}
	return variants
}
