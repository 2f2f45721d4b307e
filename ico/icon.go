package ico

import (
	"image"
)

// Icon is one decoded image variant of a container. The caller owns it and
// should Close it once the pixels are no longer needed.
type Icon struct {
	// Index is the position of the entry in the container's directory.
	Index int
	Entry DirectoryEntry

	img *image.NRGBA
}

// Image returns the decoded pixels, or nil once the icon has been closed.
func (i *Icon) Image() image.Image {
	if i.img == nil {
		return nil
	}
	return i.img
}

// Bounds returns the size of the decoded image.
func (i *Icon) Bounds() image.Rectangle {
	if i.img == nil {
		return image.Rectangle{}
	}
	return i.img.Bounds()
}

// Close releases the pixel buffer. Calling it more than once is harmless.
func (i *Icon) Close() error {
	i.img = nil
	return nil
}

// closeIcons is a variable so tests can observe which icons a failed
// DecodeAll released.
var closeIcons = func(icons []*Icon) {
	for _, icon := range icons {
		icon.Close()
	}
}
