// Package st7567 controls a 128x64 monochrome LCD driven by a Sitronix ST7567
// controller over 4-wire SPI.
//
// See the examples for how to use this package.
package st7567

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Opts is the configuration for the ST7567 display.
//
// Start from DefaultOpts and change the fields you need; a zero Contrast is
// sent as-is and leaves the panel nearly blank.
type Opts struct {
	// Orientation flips the SEG and COM scan directions together.
	Orientation Orientation
	// Bias selects the LCD bias ratio matching the panel glass.
	Bias Bias
	// Contrast is the electronic volume, 0 to 63.
	Contrast byte
	// Frequency is the SPI clock. 0 means 10MHz.
	Frequency physic.Frequency
}

// DefaultOpts matches the common 128x64 ST7567 modules.
var DefaultOpts = Opts{
	Orientation: Normal,
	Bias:        Bias7,
	Contrast:    30,
	Frequency:   10 * physic.MegaHertz,
}

func (o *Opts) validate() error {
	if !o.Orientation.valid() {
		return fmt.Errorf("st7567: invalid orientation %s", o.Orientation)
	}
	if !o.Bias.valid() {
		return fmt.Errorf("st7567: invalid bias %s", o.Bias)
	}
	if o.Contrast > maxContrast {
		return fmt.Errorf("st7567: contrast %d exceeds %d", o.Contrast, maxContrast)
	}
	return nil
}

// Dev is the device handle for the ST7567 display.
//
// Dev is the exclusive owner of the SPI connection and of the three pins it
// was created with. Callers must not drive them directly while the Dev is in
// use. Dev is not safe for concurrent use.
type Dev struct {
	// Communication
	c   conn.Conn   // SPI connection
	dc  gpio.PinOut // Data/Command select, low for commands
	bl  gpio.PinOut // Backlight enable
	rst gpio.PinOut // Reset, active low

	opts Opts

	// fb mirrors the display RAM. It is pushed as a whole by Show.
	fb Framebuffer

	state  State
	halted bool
}

// NewSPI returns a Dev connected to an ST7567 through the SPI port p.
//
// The SPI port is configured at opts.Frequency (10MHz by default), Mode0,
// 8-bit words. dc, bl and rst must be valid output pins. The panel is not
// touched; call Init before drawing.
//
// opts can be nil to use DefaultOpts.
func NewSPI(p spi.Port, dc, bl, rst gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		o := DefaultOpts
		opts = &o
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	for _, pin := range []struct {
		name string
		p    gpio.PinOut
	}{{"dc", dc}, {"bl", bl}, {"rst", rst}} {
		if pin.p == nil || pin.p == gpio.INVALID {
			return nil, fmt.Errorf("st7567: %s pin is required", pin.name)
		}
	}

	f := opts.Frequency
	if f == 0 {
		f = DefaultOpts.Frequency
	}
	c, err := p.Connect(f, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("st7567: %w", err)
	}

	return &Dev{
		c:     c,
		dc:    dc,
		bl:    bl,
		rst:   rst,
		opts:  *opts,
		state: StateUninitialized,
	}, nil
}

// Init resets the controller and sends the configuration sequence, leaving
// the display on.
//
// If a transfer fails the sequence stops there. Commands already sent remain
// in effect; every command of the sequence is an idempotent register write,
// so calling Init again is safe.
func (d *Dev) Init() error {
	if err := d.Reset(); err != nil {
		return err
	}
	cfg, err := configureSequence(&d.opts)
	if err != nil {
		return err
	}
	if err := d.sendCommands(cfg...); err != nil {
		return err
	}
	d.state = StateConfigured
	if err := d.sendCommands(displayOn, setContrast, d.opts.Contrast); err != nil {
		return err
	}
	d.state = StateDisplaying
	d.halted = false
	return nil
}

// configureSequence returns the commands sent by Init before the display is
// switched on.
func configureSequence(opts *Opts) ([]byte, error) {
	bias, err := opts.Bias.command()
	if err != nil {
		return nil, err
	}
	seg, err := opts.Orientation.segmentDirection()
	if err != nil {
		return nil, err
	}
	com, err := opts.Orientation.comDirection()
	if err != nil {
		return nil, err
	}
	return []byte{
		bias,
		seg,
		com,
		displayNormal,
		setStartLine | 0,
		powerAll,       // Booster, regulator and follower on
		regRatioDimmed, // Regulation resistor ratio, lowered brightness
	}, nil
}

// Reset pulses the reset pin. The controller loses its configuration; call
// Init to use the display again.
func (d *Dev) Reset() error {
	if err := d.out(d.rst, "RST", gpio.Low); err != nil {
		return err
	}
	d.state = StateReset
	return d.out(d.rst, "RST", gpio.High)
}

// Backlight switches the backlight on or off.
func (d *Dev) Backlight(b Backlight) error {
	return d.out(d.bl, "BL", gpio.Level(b))
}

// Command sends cmds to the controller as a single command transfer.
func (d *Dev) Command(cmds []byte) error {
	return d.sendCommand(cmds...)
}

// Data sends data to the controller as a single display data transfer.
func (d *Dev) Data(data []byte) error {
	return d.sendData(data)
}

// Show pushes the whole framebuffer to the display, page by page.
//
// If a transfer fails, the pages already sent are displayed and the others
// keep their previous content.
func (d *Dev) Show() error {
	if d.halted {
		return ErrHalted
	}
	colLow, err := d.opts.Orientation.columnLow()
	if err != nil {
		return err
	}
	if err := d.sendCommand(enterRMW); err != nil {
		return err
	}
	for page := 0; page < Pages; page++ {
		if err := d.sendCommand(setPageStart|(byte(page)&pageMask), colLow, setColumnHigh); err != nil {
			return err
		}
		if err := d.sendData(d.fb.page(page)); err != nil {
			return err
		}
	}
	return d.sendCommand(exitRMW)
}

// Clear switches every pixel of the framebuffer off. Call Show to update the
// display.
func (d *Dev) Clear() {
	d.fb.Clear()
}

// SetPixel sets or clears a pixel in the framebuffer. Call Show to update the
// display.
func (d *Dev) SetPixel(x, y int, on bool) error {
	return d.fb.SetPixel(x, y, on)
}

// Framebuffer returns the framebuffer owned by d. It can be used directly as
// a draw.Image destination.
func (d *Dev) Framebuffer() *Framebuffer {
	return &d.fb
}

// State returns the initialization state of the controller.
func (d *Dev) State() State {
	return d.state
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.fb.Bounds()
}

// Draw implements display.Drawer.
//
// It draws src into the framebuffer and pushes the full frame.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if d.halted {
		return ErrHalted
	}
	draw.Src.Draw(&d.fb, r, src, sp)
	return d.Show()
}

// Write replaces the framebuffer with pixels, in the page-major layout of
// Framebuffer, and pushes it to the display.
func (d *Dev) Write(pixels []byte) (int, error) {
	if d.halted {
		return 0, ErrHalted
	}
	if len(pixels) != BufferSize {
		return 0, errors.New("st7567: invalid buffer size")
	}
	copy(d.fb[:], pixels)
	if err := d.Show(); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// SetContrast sets the electronic volume (0-63).
func (d *Dev) SetContrast(contrast byte) error {
	if contrast > maxContrast {
		return fmt.Errorf("st7567: contrast %d exceeds %d", contrast, maxContrast)
	}
	if err := d.sendCommands(setContrast, contrast); err != nil {
		return err
	}
	d.opts.Contrast = contrast
	return nil
}

// Invert inverts the display (set pixels become clear and vice versa). The
// framebuffer is not changed.
func (d *Dev) Invert(invert bool) error {
	mode := displayNormal
	if invert {
		mode = displayInverse
	}
	return d.sendCommand(mode)
}

// AllPointsOn forces every pixel on, regardless of the display RAM. Passing
// false resumes displaying the RAM.
func (d *Dev) AllPointsOn(on bool) error {
	mode := displayRAM
	if on {
		mode = displayAllOn
	}
	return d.sendCommand(mode)
}

// DisplayOn switches the display on or off. The display RAM is kept.
func (d *Dev) DisplayOn(on bool) error {
	cmd := displayOff
	if on {
		cmd = displayOn
	}
	return d.sendCommand(cmd)
}

// SetStartLine sets the RAM line shown on the top row, scrolling the display
// vertically by line pixels.
func (d *Dev) SetStartLine(line int) error {
	if line < 0 || line >= Height {
		return fmt.Errorf("st7567: start line %d out of range 0-%d", line, Height-1)
	}
	return d.sendCommand(setStartLine | (byte(line) & startLineMask))
}

// SetBooster sets the internal voltage booster level.
func (d *Dev) SetBooster(b Booster) error {
	level, err := b.level()
	if err != nil {
		return err
	}
	return d.sendCommands(setBooster, level)
}

// SoftReset resets the controller registers without touching the reset pin.
// Call Init to use the display again.
func (d *Dev) SoftReset() error {
	if err := d.sendCommand(softReset); err != nil {
		return err
	}
	d.state = StateReset
	return nil
}

// Halt turns the display and the backlight off.
//
// Drawing returns ErrHalted until Init is called again. If either step fails
// the device is not marked halted and drawing keeps working.
func (d *Dev) Halt() error {
	if err := d.sendCommand(displayOff); err != nil {
		return err
	}
	if err := d.Backlight(BacklightOff); err != nil {
		return err
	}
	d.halted = true
	return nil
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("st7567.Dev{%s, %s, %dx%d}", d.c, d.dc, Width, Height)
}

// sendCommand sends command bytes in a single transfer with DC low.
func (d *Dev) sendCommand(cmds ...byte) error {
	if err := d.out(d.dc, "DC", gpio.Low); err != nil {
		return err
	}
	if err := d.c.Tx(cmds, nil); err != nil {
		return &BusError{Op: "command", Err: err}
	}
	return nil
}

// sendCommands sends each command byte as its own transfer, stopping at the
// first failure.
func (d *Dev) sendCommands(cmds ...byte) error {
	for _, cmd := range cmds {
		if err := d.sendCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

// sendData sends display data in a single transfer with DC high.
func (d *Dev) sendData(data []byte) error {
	if err := d.out(d.dc, "DC", gpio.High); err != nil {
		return err
	}
	if err := d.c.Tx(data, nil); err != nil {
		return &BusError{Op: "data", Err: err}
	}
	return nil
}

func (d *Dev) out(p gpio.PinOut, name string, l gpio.Level) error {
	if err := p.Out(l); err != nil {
		return &PinError{Pin: name, Level: l, Err: err}
	}
	return nil
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
