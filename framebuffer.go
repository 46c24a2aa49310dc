package st7567

import (
	"image"
	"image/color"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Screen geometry.
const (
	Width      = 128
	Height     = 64
	Pages      = Height / 8
	BufferSize = Width * Height / 8
)

// Framebuffer mirrors the display RAM visible on the panel.
//
// It is page-major: byte page*Width+x holds column x of the 8 pixel tall
// page, bit 0 being the top row of the page. This is the order in which Show
// streams it, so no transposition happens on the wire.
type Framebuffer [BufferSize]byte

// SetPixel sets (on) or clears the pixel at (x, y). The other 7 pixels sharing
// the byte are preserved.
//
// It returns an *OutOfBoundsError and leaves the buffer untouched when the
// coordinate is outside the screen.
func (f *Framebuffer) SetPixel(x, y int, on bool) error {
	if !inBounds(x, y) {
		return &OutOfBoundsError{X: x, Y: y}
	}
	offset, mask := pageOffset(x, y)
	if on {
		f[offset] |= mask
	} else {
		f[offset] &^= mask
	}
	return nil
}

// Pixel returns the state of the pixel at (x, y).
func (f *Framebuffer) Pixel(x, y int) (bool, error) {
	if !inBounds(x, y) {
		return false, &OutOfBoundsError{X: x, Y: y}
	}
	offset, mask := pageOffset(x, y)
	return f[offset]&mask != 0, nil
}

// Clear switches every pixel off.
func (f *Framebuffer) Clear() {
	*f = Framebuffer{}
}

// page returns the Width bytes of page p (0 to Pages-1), aliasing the
// framebuffer.
func (f *Framebuffer) page(p int) []byte {
	return f[p*Width : (p+1)*Width]
}

// ColorModel implements image.Image.
func (f *Framebuffer) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements image.Image.
func (f *Framebuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, Width, Height)
}

// At implements image.Image.
func (f *Framebuffer) At(x, y int) color.Color {
	on, err := f.Pixel(x, y)
	if err != nil {
		return image1bit.Off
	}
	return image1bit.Bit(on)
}

// Set implements draw.Image. Pixels outside the screen are ignored.
func (f *Framebuffer) Set(x, y int, c color.Color) {
	_ = f.SetPixel(x, y, bool(image1bit.BitModel.Convert(c).(image1bit.Bit)))
}

// pageOffset returns the byte offset and the bit mask of pixel (x, y): page
// y/8, column x, bit y%8.
func pageOffset(x, y int) (offset int, mask byte) {
	return (y/8)*Width + x, 1 << uint(y%8)
}

func inBounds(x, y int) bool {
	return x >= 0 && x < Width && y >= 0 && y < Height
}
