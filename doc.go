// Package st7567 controls a 128x64 monochrome LCD driven by a Sitronix ST7567
// controller over 4-wire SPI.
//
// The driver keeps a 1024 byte framebuffer in the controller's native page
// layout and pushes it whole with Show. It implements the display.Drawer
// interface from periph.io.
//
// # Display Characteristics
//
// - 128×64 pixels, 1 bit per pixel
// - 8 pages of 8 rows; each byte is a column slice of a page, LSB on top
// - 132 column display RAM, of which 128 are visible
// - Electronic contrast (0-63), 1/7 or 1/9 bias
// - Display inversion, all points on and start line scrolling
// - Write-only over SPI
//
// # Hardware Connection
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	SCK         → SPI Clock (SCLK)
//	SDA         → SPI Data (MOSI)
//	CS          → SPI Chip Select
//	RS          → GPIO, data/command select (DC)
//	RST         → GPIO, active low reset
//	BL / LED    → GPIO, backlight enable
//
// All three GPIOs are required. The Dev owns them once created.
//
// # Basic Usage
//
//	package main
//
//	import (
//		"image"
//		"log"
//
//		"golang.org/x/image/font"
//		"golang.org/x/image/font/basicfont"
//		"golang.org/x/image/math/fixed"
//		"periph.io/x/conn/v3/gpio/gpioreg"
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/devices/v3/ssd1306/image1bit"
//		"example.com/st7567"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		if _, err := host.Init(); err != nil {
//			log.Fatal(err)
//		}
//		b, err := spireg.Open("")
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer b.Close()
//
//		dev, err := st7567.NewSPI(b, gpioreg.ByName("GPIO24"), gpioreg.ByName("GPIO18"), gpioreg.ByName("GPIO25"), nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//		if err := dev.Init(); err != nil {
//			log.Fatal(err)
//		}
//		defer dev.Halt()
//		dev.Backlight(st7567.BacklightOn)
//
//		d := font.Drawer{
//			Dst:  dev.Framebuffer(),
//			Src:  &image.Uniform{image1bit.On},
//			Face: basicfont.Face7x13,
//			Dot:  fixed.P(0, 13),
//		}
//		d.DrawString("Hello")
//		if err := dev.Show(); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// # Drawing
//
// There are three ways to put pixels on the screen:
//
//	dev.SetPixel(x, y, true) // then dev.Show()
//	dev.Draw(dev.Bounds(), img, image.Point{})
//	dev.Write(pixels) // 1024 bytes, page-major
//
// Framebuffer returns the buffer itself, which is a draw.Image usable with
// image/draw, golang.org/x/image/font or github.com/fogleman/gg. Its color
// model is image1bit.BitModel from periph.io/x/devices/v3/ssd1306/image1bit:
// a color is on when any of its channels is at least half intensity.
//
// Draw and Write push the full frame. There is no partial update.
//
// # Orientation
//
// Opts.Orientation flips the column (SEG) and row (COM) scan directions
// together. Reverse rotates the image by 180° without touching the
// framebuffer:
//
//	opts := st7567.DefaultOpts
//	opts.Orientation = st7567.Reverse
//	opts.Bias = st7567.Bias9
//	dev, err := st7567.NewSPI(b, dc, bl, rst, &opts)
//
// # Errors
//
// Transfers are not retried. A failed SPI transfer returns a *BusError and a
// pin that cannot be driven returns a *PinError; both wrap the underlying
// error. When Show fails midway, the pages already sent are visible and the
// others keep their previous content. Drawing after Halt returns ErrHalted
// until Init is called again.
//
// # Testing Without Hardware
//
// Package st7567test provides Panel, an emulated module that acts as the SPI
// port and the three pins. It decodes the command stream, keeps the
// controller RAM and can render the glass to a terminal.
//
// Package ch347spi drives the display from a desktop through a CH347 USB to
// SPI bridge.
package st7567
