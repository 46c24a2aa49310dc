// Package ch347spi exposes a WCH CH347 USB bridge as a periph SPI port and
// the three output pins an ST7567 module needs.
//
// The CH347 must be in mode 1 (HID, "HID To UART+SPI+I2C"). The module is
// wired as follows:
//
//	Module   CH347
//	SCK      SCK
//	SDA      MOSI
//	CS       SCS0
//	RS (DC)  MISO/GPIO1
//	RST      SCS1/GPIO5
//	BL       ACT/GPIO4
//
// MISO is not needed since the controller is write-only on SPI, which frees it
// for DC.
package ch347spi

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/serfreeman1337/go-ch347"
	"github.com/sstallion/go-hid"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// USB identifiers of the CH347 in mode 1.
const (
	VendorID  = 0x1a86
	ProductID = 0x55dc

	product = "HID To UART+SPI+I2C"
	// ifaceSPI is the HID interface carrying SPI, I2C and GPIO. Interface 0
	// is the UART.
	ifaceSPI = 1
)

// ErrNotFound is returned by Open when no CH347 is plugged in.
var ErrNotFound = errors.New("ch347spi: no CH347 found")

// hidDevice reads with a timeout so a missing reply cannot block forever,
// and retries reads interrupted by a signal.
type hidDevice struct {
	*hid.Device
}

func (d *hidDevice) Read(p []byte) (int, error) {
	for {
		n, err := d.Device.ReadWithTimeout(p, time.Second)
		if err == nil || err.Error() != "Interrupted system call" {
			return n, err
		}
	}
}

// devicePath returns the hidraw path of the first CH347 SPI interface.
func devicePath() (string, error) {
	var path string
	err := hid.Enumerate(VendorID, ProductID, func(info *hid.DeviceInfo) error {
		if path == "" && info.ProductStr == product && info.InterfaceNbr == ifaceSPI {
			path = info.Path
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ch347spi: %w", err)
	}
	if path == "" {
		return "", ErrNotFound
	}
	return path, nil
}

// Open finds the first CH347, configures its SPI engine and returns an
// Adapter. Close the Adapter to release the USB device.
func Open() (*Adapter, error) {
	path, err := devicePath()
	if err != nil {
		return nil, err
	}
	dev, err := hid.OpenPath(path)
	if err != nil {
		return nil, fmt.Errorf("ch347spi: opening %s: %w", path, err)
	}
	a, err := New(&ch347.IO{Dev: &hidDevice{dev}})
	if err != nil {
		_ = dev.Close()
		return nil, err
	}
	a.closer = dev
	return a, nil
}

// New configures c for SPI mode 0, MSB first, and returns an Adapter driving
// it. The caller keeps ownership of the underlying device.
func New(c *ch347.IO) (*Adapter, error) {
	if err := c.SetSPI(ch347.SPIMode0, ch347.SPIClock0, ch347.SPIByteOrderMSB); err != nil {
		return nil, fmt.Errorf("ch347spi: configuring SPI: %w", err)
	}
	return newAdapter(bridge{
		tx:  func(w []byte) error { return transfer(c, w) },
		dc:  func(l bool) error { return c.WritePin(ch347.GPIO1, true, l) },
		rst: func(l bool) error { return c.WritePin(ch347.GPIO5, true, l) },
		bl:  func(l bool) error { return c.WritePin(ch347.GPIO4, true, l) },
	}), nil
}

// spiBus is the part of *ch347.IO a transfer needs.
type spiBus interface {
	SetCS(active bool) error
	SPI(w, r []byte) error
}

// transfer writes w with chip select asserted. Chip select is released even
// when the write fails; the write error takes precedence.
func transfer(b spiBus, w []byte) error {
	if err := b.SetCS(true); err != nil {
		return fmt.Errorf("ch347spi: asserting chip select: %w", err)
	}
	err := b.SPI(w, nil)
	if cerr := b.SetCS(false); err == nil && cerr != nil {
		return fmt.Errorf("ch347spi: releasing chip select: %w", cerr)
	}
	return err
}

// bridge is the subset of the CH347 used by the Adapter.
type bridge struct {
	tx          func(w []byte) error
	dc, rst, bl func(l bool) error
}

// Adapter implements spi.PortCloser on top of a CH347.
//
// The CH347 runs transfers one at a time; Adapter serializes access from the
// connection and the pins.
type Adapter struct {
	mu        sync.Mutex
	b         bridge
	closer    io.Closer
	limit     physic.Frequency
	connected bool

	dc, rst, bl *Pin
}

func newAdapter(b bridge) *Adapter {
	a := &Adapter{b: b}
	a.dc = &Pin{a: a, name: "CH347_GPIO1", num: 1, out: b.dc}
	a.rst = &Pin{a: a, name: "CH347_GPIO5", num: 5, out: b.rst}
	a.bl = &Pin{a: a, name: "CH347_GPIO4", num: 4, out: b.bl}
	return a
}

func (a *Adapter) String() string {
	return "CH347"
}

// Connect implements spi.Port.
//
// Only mode 0 with 8 bit words is supported. The bridge clock is set when
// the Adapter is created; f is only checked against LimitSpeed.
func (a *Adapter) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.connected {
		return nil, errors.New("ch347spi: Connect cannot be called twice")
	}
	if mode != spi.Mode0 {
		return nil, fmt.Errorf("ch347spi: unsupported mode %s", mode)
	}
	if bits != 8 {
		return nil, fmt.Errorf("ch347spi: unsupported %d bits per word", bits)
	}
	if f < 0 || (a.limit != 0 && f > a.limit) {
		return nil, fmt.Errorf("ch347spi: invalid frequency %s", f)
	}
	a.connected = true
	return &spiConn{a: a}, nil
}

// LimitSpeed implements spi.PortCloser.
func (a *Adapter) LimitSpeed(f physic.Frequency) error {
	if f <= 0 {
		return fmt.Errorf("ch347spi: invalid frequency %s", f)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.limit = f
	return nil
}

// Close implements spi.PortCloser. It releases the USB device when the
// Adapter was created by Open.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// DC returns the data/command pin, on GPIO1.
func (a *Adapter) DC() *Pin { return a.dc }

// RST returns the reset pin, on GPIO5.
func (a *Adapter) RST() *Pin { return a.rst }

// BL returns the backlight pin, on GPIO4 (the ACT LED).
func (a *Adapter) BL() *Pin { return a.bl }

type spiConn struct {
	a *Adapter
}

func (c *spiConn) String() string {
	return c.a.String()
}

func (c *spiConn) Duplex() conn.Duplex {
	return conn.Half
}

// Tx implements conn.Conn. Each transfer runs with chip select asserted.
func (c *spiConn) Tx(w, r []byte) error {
	if len(r) != 0 {
		return errors.New("ch347spi: read is not supported")
	}
	c.a.mu.Lock()
	defer c.a.mu.Unlock()
	if err := c.a.b.tx(w); err != nil {
		return fmt.Errorf("ch347spi: %w", err)
	}
	return nil
}

// TxPackets implements spi.Conn.
func (c *spiConn) TxPackets(pkts []spi.Packet) error {
	for _, p := range pkts {
		if err := c.Tx(p.W, p.R); err != nil {
			return err
		}
	}
	return nil
}

// Pin is a CH347 GPIO used as a push-pull output.
type Pin struct {
	a    *Adapter
	name string
	num  int
	out  func(l bool) error

	l gpio.Level
}

func (p *Pin) String() string {
	return p.name
}

// Halt implements conn.Resource.
func (p *Pin) Halt() error {
	return nil
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return p.name
}

// Number implements pin.Pin.
func (p *Pin) Number() int {
	return p.num
}

// Function implements pin.Pin.
func (p *Pin) Function() string {
	return "Out/" + p.l.String()
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	p.a.mu.Lock()
	defer p.a.mu.Unlock()
	if err := p.out(bool(l)); err != nil {
		return fmt.Errorf("ch347spi: %s: %w", p.name, err)
	}
	p.l = l
	return nil
}

// PWM implements gpio.PinOut. The CH347 has no PWM output.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return errors.New("ch347spi: PWM is not supported")
}

var _ spi.PortCloser = &Adapter{}
var _ spi.Conn = &spiConn{}
var _ gpio.PinOut = &Pin{}
