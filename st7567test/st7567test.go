// Package st7567test implements an emulated ST7567 panel for tests and for
// running the driver without hardware.
//
// Panel is at the same time the SPI port, the SPI connection and the three
// control pins (DC, RST and BL) of a 128x64 module. It decodes the byte
// stream into the controller's display RAM and registers, and renders what
// the glass would show.
package st7567test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Controller RAM geometry. The ST7567 has 132 columns and 65 lines (8 pages
// plus the icon line in page 8); the glass shows 128x64 of it.
const (
	RAMColumns = 132
	RAMPages   = 9
	GlassW     = 128
	GlassH     = 64
)

// ErrInjected is returned by the transfer selected with Panel.FailAt.
var ErrInjected = errors.New("st7567test: injected transfer failure")

// Transfer is one recorded SPI write.
type Transfer struct {
	Command bool // DC was low
	W       []byte
}

// Registers is the controller state decoded from the command stream.
type Registers struct {
	DisplayOn  bool
	Inverse    bool
	AllOn      bool
	SegReverse bool
	ComReverse bool
	Bias9      bool // 1/9 bias, the power-on default
	RMW        bool // Read-modify-write mode
	StartLine  int
	Page       int
	Column     int
	Power      byte // VB, VR, VF bits
	RegRatio   byte
	Contrast   byte
	Booster    byte
}

// powerOnRegisters is the state after a hardware or software reset.
var powerOnRegisters = Registers{Bias9: true, RegRatio: 0x05, Contrast: 0x20}

// Pin is an output pin of the emulated module. It records every level it was
// driven to.
type Pin struct {
	gpiotest.Pin
	Levels []gpio.Level

	onOut func(l gpio.Level)
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	if err := p.Pin.Out(l); err != nil {
		return err
	}
	p.Levels = append(p.Levels, l)
	if p.onOut != nil {
		p.onOut(l)
	}
	return nil
}

// Panel emulates an ST7567 controller wired to a 128x64 glass whose top row is
// driven by COM63.
type Panel struct {
	DC  *Pin
	RST *Pin
	BL  *Pin

	// FailAt makes the FailAt-th transfer (counting from 1) fail with
	// ErrInjected without reaching the controller. 0 disables it.
	FailAt int

	// Transfers holds every transfer that reached the controller.
	Transfers []Transfer
	// Unknown holds command bytes the emulator does not decode.
	Unknown []byte

	// Connection parameters of the last Connect call.
	Freq physic.Frequency
	Mode spi.Mode
	Bits int

	reg     Registers
	ram     [RAMPages][RAMColumns]byte
	rmwCol  int
	pending byte
	count   int
}

// NewPanel returns a powered-on panel with the reset line released.
func NewPanel() *Panel {
	p := &Panel{
		DC:  &Pin{Pin: gpiotest.Pin{N: "DC"}},
		RST: &Pin{Pin: gpiotest.Pin{N: "RST", L: gpio.High}},
		BL:  &Pin{Pin: gpiotest.Pin{N: "BL"}},
		reg: powerOnRegisters,
	}
	p.RST.onOut = func(l gpio.Level) {
		if l == gpio.Low {
			p.reset()
		}
	}
	return p
}

func (p *Panel) String() string {
	return "st7567test.Panel"
}

// Connect implements spi.Port.
func (p *Panel) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if bits != 8 {
		return nil, errors.New("st7567test: only 8 bits per word is supported")
	}
	p.Freq, p.Mode, p.Bits = f, mode, bits
	return p, nil
}

// LimitSpeed implements spi.Port.
func (p *Panel) LimitSpeed(f physic.Frequency) error {
	return nil
}

// Close implements spi.PortCloser.
func (p *Panel) Close() error {
	return nil
}

// Duplex implements conn.Conn.
func (p *Panel) Duplex() conn.Duplex {
	return conn.Half
}

// Tx implements conn.Conn. The ST7567 is write-only on SPI.
func (p *Panel) Tx(w, r []byte) error {
	if len(r) != 0 {
		return errors.New("st7567test: the controller cannot be read over SPI")
	}
	p.count++
	if p.FailAt != 0 && p.count == p.FailAt {
		return ErrInjected
	}
	cmd := p.DC.Read() == gpio.Low
	p.Transfers = append(p.Transfers, Transfer{Command: cmd, W: append([]byte(nil), w...)})
	for _, b := range w {
		if cmd {
			p.command(b)
		} else {
			p.write(b)
		}
	}
	return nil
}

// TxPackets implements spi.Conn.
func (p *Panel) TxPackets(pkts []spi.Packet) error {
	for _, pkt := range pkts {
		if err := p.Tx(pkt.W, pkt.R); err != nil {
			return err
		}
	}
	return nil
}

// Registers returns the decoded controller state.
func (p *Panel) Registers() Registers {
	return p.reg
}

// RAMPage returns a copy of the 132 RAM columns of page.
func (p *Panel) RAMPage(page int) []byte {
	return append([]byte(nil), p.ram[page][:]...)
}

// Commands returns the command bytes received, flattened in order.
func (p *Panel) Commands() []byte {
	var out []byte
	for _, t := range p.Transfers {
		if t.Command {
			out = append(out, t.W...)
		}
	}
	return out
}

// Backlight reports whether the backlight pin is high.
func (p *Panel) Backlight() bool {
	return p.BL.Read() == gpio.High
}

func (p *Panel) reset() {
	p.reg = powerOnRegisters
	p.rmwCol = 0
	p.pending = 0
}

func (p *Panel) command(b byte) {
	if p.pending != 0 {
		switch p.pending {
		case 0x81:
			p.reg.Contrast = b & 0x3F
		case 0xF8:
			p.reg.Booster = b & 0x03
		}
		p.pending = 0
		return
	}
	switch {
	case b <= 0x0F:
		p.reg.Column = p.reg.Column&0xF0 | int(b&0x0F)
	case b <= 0x1F:
		p.reg.Column = int(b&0x0F)<<4 | p.reg.Column&0x0F
	case b <= 0x27:
		p.reg.RegRatio = b & 0x07
	case b <= 0x2F:
		p.reg.Power = b & 0x07
	case b >= 0x40 && b <= 0x7F:
		p.reg.StartLine = int(b & 0x3F)
	case b == 0x81 || b == 0xF8:
		p.pending = b
	case b == 0xA0 || b == 0xA1:
		p.reg.SegReverse = b == 0xA1
	case b == 0xA2 || b == 0xA3:
		p.reg.Bias9 = b == 0xA2
	case b == 0xA4 || b == 0xA5:
		p.reg.AllOn = b == 0xA5
	case b == 0xA6 || b == 0xA7:
		p.reg.Inverse = b == 0xA7
	case b == 0xAE || b == 0xAF:
		p.reg.DisplayOn = b == 0xAF
	case b >= 0xB0 && b <= 0xB8:
		p.reg.Page = int(b & 0x0F)
	case b == 0xC0 || b == 0xC8:
		p.reg.ComReverse = b == 0xC8
	case b == 0xE0:
		p.reg.RMW = true
		p.rmwCol = p.reg.Column
	case b == 0xE2:
		p.reset()
	case b == 0xE3:
	case b == 0xEE:
		if p.reg.RMW {
			p.reg.RMW = false
			p.reg.Column = p.rmwCol
		}
	default:
		p.Unknown = append(p.Unknown, b)
	}
}

// write stores one display data byte and advances the column address.
func (p *Panel) write(b byte) {
	if p.reg.Page < RAMPages && p.reg.Column < RAMColumns {
		p.ram[p.reg.Page][p.reg.Column] = b
	}
	if p.reg.Column < RAMColumns {
		p.reg.Column++
	}
}

// Frame returns what the glass shows: SEG n drives glass column n and COM63
// drives the top row. A panel configured with SEG normal and COM reverse
// shows the RAM as-is.
func (p *Panel) Frame() *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, GlassW, GlassH))
	if !p.reg.DisplayOn {
		return img
	}
	for y := 0; y < GlassH; y++ {
		com := GlassH - 1 - y
		line := p.reg.StartLine + com
		if p.reg.ComReverse {
			line = p.reg.StartLine + GlassH - 1 - com
		}
		line %= GlassH
		for x := 0; x < GlassW; x++ {
			col := x
			if p.reg.SegReverse {
				col = RAMColumns - 1 - x
			}
			on := p.ram[line/8][col]&(1<<uint(line%8)) != 0
			switch {
			case p.reg.AllOn:
				on = true
			case p.reg.Inverse:
				on = !on
			}
			img.Set(x, y, image1bit.Bit(on))
		}
	}
	return img
}

// Render writes the glass content to w as ANSI colored blocks, one text line
// per pixel row. Palette may be nil to use ansi256.Default.
func (p *Panel) Render(w io.Writer, palette *ansi256.Palette) error {
	if palette == nil {
		palette = ansi256.Default
	}
	background := color.NRGBA{0x50, 0x50, 0x50, 0xFF}
	if p.Backlight() {
		background = color.NRGBA{0x9C, 0xD6, 0x4A, 0xFF}
	}
	ink := color.NRGBA{0x10, 0x20, 0x10, 0xFF}

	frame := p.Frame()
	var buf bytes.Buffer
	for y := 0; y < GlassH; y++ {
		_, _ = buf.WriteString("\033[0m")
		for x := 0; x < GlassW; x++ {
			c := background
			if frame.BitAt(x, y) {
				c = ink
			}
			_, _ = io.WriteString(&buf, palette.Block(c))
		}
		_, _ = buf.WriteString("\033[0m\n")
	}
	_, err := buf.WriteTo(w)
	return err
}

var _ spi.PortCloser = &Panel{}
var _ spi.Conn = &Panel{}
var _ gpio.PinOut = &Pin{}
