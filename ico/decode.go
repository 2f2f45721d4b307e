package ico

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/png"

	"github.com/go-errors/errors"
	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Decoder turns the raw payload of one directory entry into an image. width
// and height are the size the caller asked for, zero means the payload's own
// size. Implementations may keep a reference to the returned image, the
// container always copies it before handing it out.
type Decoder interface {
	Decode(data []byte, width, height int) (image.Image, error)
}

// DecoderFunc adapts a plain function to the Decoder interface.
type DecoderFunc func(data []byte, width, height int) (image.Image, error)

// Decode calls f.
func (f DecoderFunc) Decode(data []byte, width, height int) (image.Image, error) {
	return f(data, width, height)
}

// ImageDecoder decodes PNG and uncompressed DIB payloads without any help
// from the operating system.
type ImageDecoder struct{}

// Decode implements Decoder.
func (ImageDecoder) Decode(data []byte, width, height int) (image.Image, error) {
	img, err := decodePayload(data)
	if err != nil {
		return nil, err
	}
	return scale(img, width, height), nil
}

// PayloadFormat reports "png", "dib" or "" for the raw payload of an entry.
func PayloadFormat(data []byte) string {
	switch {
	case filetype.Is(data, "png"):
		return "png"
	case isDIB(data):
		return "dib"
	default:
		return ""
	}
}

func decodePayload(data []byte) (image.Image, error) {
	switch PayloadFormat(data) {
	case "png":
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, 0)
		}
		return img, nil
	case "dib":
		return decodeDIB(data)
	default:
		return nil, errors.Wrap(ErrUnknownFormat, 0)
	}
}

const (
	bitmapFileHeaderSize = 14
	bitmapInfoHeaderSize = 40
	biRGB                = 0
)

func isDIB(data []byte) bool {
	if len(data) < bitmapInfoHeaderSize {
		return false
	}
	switch binary.LittleEndian.Uint32(data[0:4]) {
	case 40, 108, 124:
		return true
	}
	return false
}

type dibInfo struct {
	headerSize  int
	width       int
	height      int // height of the color image, the stored height covers the mask too
	bpp         int
	compression uint32
	colors      int
	topDown     bool
}

func (d dibInfo) paletteSize() int {
	return 4 * d.colors
}

func (d dibInfo) pixelOffset() int {
	return d.headerSize + d.paletteSize()
}

func (d dibInfo) stride() int {
	return ((d.width*d.bpp + 31) / 32) * 4
}

func (d dibInfo) maskStride() int {
	return ((d.width + 31) / 32) * 4
}

func parseDIB(data []byte) (dibInfo, error) {
	info := dibInfo{
		headerSize:  int(binary.LittleEndian.Uint32(data[0:4])),
		width:       int(int32(binary.LittleEndian.Uint32(data[4:8]))),
		bpp:         int(binary.LittleEndian.Uint16(data[14:16])),
		compression: binary.LittleEndian.Uint32(data[16:20]),
	}
	height := int(int32(binary.LittleEndian.Uint32(data[8:12])))
	if height < 0 {
		info.topDown = true
		height = -height
	}
	info.height = height / 2
	if info.width <= 0 || info.height <= 0 {
		return info, errors.Errorf("ico: invalid bitmap dimensions %dx%d", info.width, height)
	}
	if info.bpp <= 8 {
		info.colors = int(binary.LittleEndian.Uint32(data[32:36]))
		if info.colors == 0 {
			info.colors = 1 << uint(info.bpp)
		}
	}
	if len(data) < info.headerSize {
		return info, errors.Errorf("ico: bitmap header larger than payload")
	}
	return info, nil
}

func decodeDIB(data []byte) (image.Image, error) {
	info, err := parseDIB(data)
	if err != nil {
		return nil, err
	}
	if info.compression != biRGB {
		return nil, errors.WrapPrefix(ErrUnsupportedFormat, "compressed bitmap", 0)
	}

	var img *image.NRGBA
	switch info.bpp {
	case 32:
		img, err = decodeBGRA(data, info)
		if err != nil {
			return nil, err
		}
		if hasAlpha(img) {
			return img, nil
		}
	case 8, 24:
		decoded, err := decodeBitmap(data, info)
		if err != nil {
			return nil, err
		}
		img = cloneImage(decoded)
	default:
		return nil, errors.WrapPrefix(ErrUnsupportedFormat, "bitmap bit depth", 0)
	}
	applyMask(img, data, info)
	return img, nil
}

// decodeBitmap prefixes a BITMAPFILEHEADER and lets x/image/bmp do the work.
func decodeBitmap(data []byte, info dibInfo) (image.Image, error) {
	pixelOffset := info.pixelOffset()
	if len(data) < pixelOffset+info.stride()*info.height {
		return nil, errors.Errorf("ico: bitmap pixel data truncated")
	}
	file := make([]byte, bitmapFileHeaderSize+len(data))
	file[0], file[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(file[2:6], uint32(len(file)))
	binary.LittleEndian.PutUint32(file[10:14], uint32(bitmapFileHeaderSize+pixelOffset))
	copy(file[bitmapFileHeaderSize:], data)

	height := int32(info.height)
	if info.topDown {
		height = -height
	}
	binary.LittleEndian.PutUint32(file[bitmapFileHeaderSize+8:bitmapFileHeaderSize+12], uint32(height))
	// the palette size has to agree with the pixel offset
	if info.bpp <= 8 {
		binary.LittleEndian.PutUint32(file[bitmapFileHeaderSize+32:bitmapFileHeaderSize+36], uint32(info.colors))
	}

	img, err := bmp.Decode(bytes.NewReader(file))
	if err != nil {
		if err == bmp.ErrUnsupported {
			return nil, errors.WrapPrefix(ErrUnsupportedFormat, "bitmap", 0)
		}
		return nil, errors.Wrap(err, 0)
	}
	return img, nil
}

func decodeBGRA(data []byte, info dibInfo) (*image.NRGBA, error) {
	pixels := data[info.pixelOffset():]
	stride := info.stride()
	if len(pixels) < stride*info.height {
		return nil, errors.Errorf("ico: bitmap pixel data truncated")
	}
	img := image.NewNRGBA(image.Rect(0, 0, info.width, info.height))
	for row := 0; row < info.height; row++ {
		y := info.height - 1 - row
		if info.topDown {
			y = row
		}
		src := pixels[row*stride:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < info.width; x++ {
			dst[4*x+0] = src[4*x+2]
			dst[4*x+1] = src[4*x+1]
			dst[4*x+2] = src[4*x+0]
			dst[4*x+3] = src[4*x+3]
		}
	}
	return img, nil
}

func hasAlpha(img *image.NRGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			return true
		}
	}
	return false
}

// applyMask makes every pixel whose AND mask bit is set transparent. A
// missing or short mask leaves the image opaque.
func applyMask(img *image.NRGBA, data []byte, info dibInfo) {
	maskOffset := info.pixelOffset() + info.stride()*info.height
	maskStride := info.maskStride()
	if len(data) < maskOffset+maskStride*info.height {
		for i := 3; i < len(img.Pix); i += 4 {
			img.Pix[i] = 0xff
		}
		return
	}
	mask := data[maskOffset:]
	for row := 0; row < info.height; row++ {
		y := info.height - 1 - row
		if info.topDown {
			y = row
		}
		bits := mask[row*maskStride:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < info.width; x++ {
			if bits[x/8]&(0x80>>uint(x%8)) != 0 {
				dst[4*x+3] = 0
			} else {
				dst[4*x+3] = 0xff
			}
		}
	}
}

func scale(img image.Image, width, height int) image.Image {
	bounds := img.Bounds()
	if width <= 0 {
		width = bounds.Dx()
	}
	if height <= 0 {
		height = bounds.Dy()
	}
	if width == bounds.Dx() && height == bounds.Dy() {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// cloneImage copies img into a new NRGBA image anchored at the origin.
func cloneImage(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}
