package st7567

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// ErrHalted is returned when drawing on a device after Halt and before the
// next Init.
var ErrHalted = errors.New("st7567: halted")

// BusError reports a failed command or data transfer on the SPI bus.
//
// Commands sent before the failure stay in effect on the controller; the
// driver does not roll them back.
type BusError struct {
	Op  string // "command" or "data"
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("st7567: %s transfer failed: %v", e.Op, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// PinError reports a digital output pin that failed to change level.
type PinError struct {
	Pin   string // "DC", "BL" or "RST"
	Level gpio.Level
	Err   error
}

func (e *PinError) Error() string {
	return fmt.Sprintf("st7567: failed to drive %s %s: %v", e.Pin, e.Level, e.Err)
}

func (e *PinError) Unwrap() error {
	return e.Err
}

// OutOfBoundsError reports a pixel coordinate outside the 128x64 screen.
type OutOfBoundsError struct {
	X, Y int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("st7567: pixel (%d, %d) out of bounds %dx%d", e.X, e.Y, Width, Height)
}
