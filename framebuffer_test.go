package st7567

import (
	"errors"
	"image"
	"image/draw"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

func TestFramebufferSize(t *testing.T) {
	var fb Framebuffer
	if len(fb) != 1024 {
		t.Errorf("len(Framebuffer) = %d, want 1024", len(fb))
	}
	if Pages != 8 {
		t.Errorf("Pages = %d, want 8", Pages)
	}
}

func TestPageOffset(t *testing.T) {
	tests := []struct {
		name   string
		x, y   int
		offset int
		mask   byte
	}{
		{"origin", 0, 0, 0, 0x01},
		{"bottom of first page", 0, 7, 0, 0x80},
		{"top of second page", 0, 8, 128, 0x01},
		{"last pixel", 127, 63, 7*128 + 127, 0x80},
		{"mid screen", 64, 33, 4*128 + 64, 0x02},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, mask := pageOffset(tt.x, tt.y)
			if offset != tt.offset || mask != tt.mask {
				t.Errorf("pageOffset(%d, %d) = (%d, 0x%02X), want (%d, 0x%02X)", tt.x, tt.y, offset, mask, tt.offset, tt.mask)
			}
		})
	}
}

func TestSetPixelEveryCoordinate(t *testing.T) {
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			var fb Framebuffer
			if err := fb.SetPixel(x, y, true); err != nil {
				t.Fatalf("SetPixel(%d, %d) = %v", x, y, err)
			}
			offset := (y/8)*128 + x
			for i, b := range fb {
				want := byte(0)
				if i == offset {
					want = 1 << uint(y%8)
				}
				if b != want {
					t.Fatalf("SetPixel(%d, %d): byte %d = 0x%02X, want 0x%02X", x, y, i, b, want)
				}
			}

			if err := fb.SetPixel(x, y, false); err != nil {
				t.Fatalf("SetPixel(%d, %d, false) = %v", x, y, err)
			}
			if fb != (Framebuffer{}) {
				t.Fatalf("SetPixel(%d, %d, false) left bits set", x, y)
			}
		}
	}
}

func TestSetPixelPreservesNeighbours(t *testing.T) {
	var fb Framebuffer
	for i := range fb {
		fb[i] = 0xFF
	}
	if err := fb.SetPixel(5, 19, false); err != nil {
		t.Fatal(err)
	}
	// Page 2, bit 3.
	if got := fb[2*128+5]; got != 0xF7 {
		t.Errorf("byte = 0x%02X, want 0xF7", got)
	}
	for i, b := range fb {
		if i != 2*128+5 && b != 0xFF {
			t.Errorf("byte %d = 0x%02X, want 0xFF", i, b)
		}
	}
}

func TestSetPixelOutOfBounds(t *testing.T) {
	tests := []struct {
		name string
		x, y int
	}{
		{"x at width", 128, 0},
		{"y at height", 0, 64},
		{"both over", 200, 300},
		{"corner", 128, 64},
		{"negative x", -1, 10},
		{"negative y", 10, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fb Framebuffer
			for i := range fb {
				fb[i] = byte(i)
			}
			before := fb

			err := fb.SetPixel(tt.x, tt.y, true)
			var oob *OutOfBoundsError
			if !errors.As(err, &oob) {
				t.Fatalf("SetPixel(%d, %d) = %v, want *OutOfBoundsError", tt.x, tt.y, err)
			}
			if oob.X != tt.x || oob.Y != tt.y {
				t.Errorf("OutOfBoundsError = (%d, %d), want (%d, %d)", oob.X, oob.Y, tt.x, tt.y)
			}
			if fb != before {
				t.Error("buffer changed on out of bounds write")
			}

			if _, err := fb.Pixel(tt.x, tt.y); !errors.As(err, &oob) {
				t.Errorf("Pixel(%d, %d) = %v, want *OutOfBoundsError", tt.x, tt.y, err)
			}
		})
	}
}

func TestOutOfBoundsErrorMessage(t *testing.T) {
	err := &OutOfBoundsError{X: 130, Y: 2}
	want := "st7567: pixel (130, 2) out of bounds 128x64"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestSetPixelIdempotent(t *testing.T) {
	var once, twice Framebuffer
	if err := once.SetPixel(77, 42, true); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := twice.SetPixel(77, 42, true); err != nil {
			t.Fatal(err)
		}
	}
	if once != twice {
		t.Error("setting a pixel twice differs from setting it once")
	}
}

func TestFramebufferClear(t *testing.T) {
	var fb Framebuffer
	for i := range fb {
		fb[i] = byte(i*7 + 1)
	}
	fb.Clear()
	for i, b := range fb {
		if b != 0 {
			t.Fatalf("byte %d = 0x%02X after Clear", i, b)
		}
	}
}

func TestFramebufferPage(t *testing.T) {
	var fb Framebuffer
	for i := range fb {
		fb[i] = byte(i / 128)
	}
	for p := 0; p < Pages; p++ {
		page := fb.page(p)
		if len(page) != 128 {
			t.Fatalf("len(page(%d)) = %d, want 128", p, len(page))
		}
		for i, b := range page {
			if b != byte(p) {
				t.Fatalf("page(%d)[%d] = %d, want %d", p, i, b, p)
			}
		}
	}

	// page aliases the buffer.
	fb.page(3)[10] = 0xAA
	if fb[3*128+10] != 0xAA {
		t.Error("page does not alias the framebuffer")
	}
}

func TestFramebufferImage(t *testing.T) {
	var fb Framebuffer
	if fb.Bounds() != image.Rect(0, 0, 128, 64) {
		t.Errorf("Bounds() = %v", fb.Bounds())
	}
	if fb.ColorModel() != image1bit.BitModel {
		t.Error("ColorModel() did not return BitModel")
	}

	draw.Draw(&fb, image.Rect(0, 8, 2, 16), image.NewUniform(image1bit.On), image.Point{}, draw.Src)
	if fb[128] != 0xFF || fb[129] != 0xFF || fb[130] != 0 {
		t.Errorf("page 1 = % X, want FF FF 00", fb[128:131])
	}
	if fb.At(0, 8) != image1bit.On || fb.At(2, 8) != image1bit.Off {
		t.Error("At does not match the drawn rectangle")
	}

	// Out of bounds Set is dropped and At reads Off.
	fb.Set(500, 500, image1bit.On)
	if fb.At(500, 500) != image1bit.Off {
		t.Error("At out of bounds should be Off")
	}
}

func TestFramebufferText(t *testing.T) {
	var fb Framebuffer
	face := basicfont.Face7x13
	d := font.Drawer{
		Dst:  &fb,
		Src:  image.NewUniform(image1bit.On),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString("Hi")

	// The glyphs land within the first 13 rows and 14 columns.
	set := 0
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			on, err := fb.Pixel(x, y)
			if err != nil {
				t.Fatal(err)
			}
			if !on {
				continue
			}
			set++
			if x >= 14 || y >= 13 {
				t.Errorf("pixel (%d, %d) set outside of the text box", x, y)
			}
		}
	}
	if set == 0 {
		t.Error("DrawString did not set any pixel")
	}
}
