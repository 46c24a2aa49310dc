package st7567

import "fmt"

// Commands
const (
	setColumnLow      byte = 0x00 // | low nibble of the column address
	setColumnHigh     byte = 0x10 // | high nibble of the column address
	setRegRatio       byte = 0x20 // | regulation resistor ratio (0-7)
	powerControl      byte = 0x28 // | VB, VR, VF enable bits
	setStartLine      byte = 0x40 // | start line (0-63)
	setContrast       byte = 0x81 // followed by the contrast value
	segDirNormal      byte = 0xA0
	segDirReverse     byte = 0xA1
	bias19            byte = 0xA2
	bias17            byte = 0xA3
	displayRAM        byte = 0xA4
	displayAllOn      byte = 0xA5
	displayNormal     byte = 0xA6
	displayInverse    byte = 0xA7
	displayOff        byte = 0xAE
	displayOn         byte = 0xAF
	setPageStart      byte = 0xB0 // | page (0-8)
	comDirNormal      byte = 0xC0
	comDirReverse     byte = 0xC8
	enterRMW          byte = 0xE0
	softReset         byte = 0xE2
	exitRMW           byte = 0xEE
	setBooster        byte = 0xF8 // followed by the booster level
	booster4x         byte = 0x00
	booster5x         byte = 0x01
	pageMask          byte = 0x07
	startLineMask     byte = 0x3F
	powerAll          byte = powerControl | 0x07
	regRatioDimmed    byte = setRegRatio | 0x04
	reverseColumnSkip byte = 0x04
	maxContrast       byte = 0x3F
)

// Orientation selects the SEG and COM scan directions. The two are flipped
// together: Reverse rotates the image by 180°.
type Orientation int

const (
	Normal Orientation = iota
	Reverse
)

func (o Orientation) String() string {
	switch o {
	case Normal:
		return "Normal"
	case Reverse:
		return "Reverse"
	}
	return fmt.Sprintf("Orientation(%d)", int(o))
}

func (o Orientation) valid() bool {
	switch o {
	case Normal, Reverse:
		return true
	}
	return false
}

// segmentDirection returns the SEG (column) scan direction command.
func (o Orientation) segmentDirection() (byte, error) {
	switch o {
	case Normal:
		return segDirNormal, nil
	case Reverse:
		return segDirReverse, nil
	}
	return 0, fmt.Errorf("st7567: invalid orientation %s", o)
}

// comDirection returns the COM (row) scan direction command. The panel glass
// is wired with its top row on COM63, hence Normal scans COM in reverse.
func (o Orientation) comDirection() (byte, error) {
	switch o {
	case Normal:
		return comDirReverse, nil
	case Reverse:
		return comDirNormal, nil
	}
	return 0, fmt.Errorf("st7567: invalid orientation %s", o)
}

// columnLow returns the low column address command issued before each page.
// Under SEG reverse the controller maps its 132 column RAM backwards, so the
// 128 visible columns start 4 columns in.
func (o Orientation) columnLow() (byte, error) {
	switch o {
	case Normal:
		return setColumnLow, nil
	case Reverse:
		return setColumnLow | reverseColumnSkip, nil
	}
	return 0, fmt.Errorf("st7567: invalid orientation %s", o)
}

// Bias is the LCD driving voltage bias ratio.
type Bias int

const (
	Bias7 Bias = iota // 1/7
	Bias9             // 1/9
)

func (b Bias) String() string {
	switch b {
	case Bias7:
		return "1/7"
	case Bias9:
		return "1/9"
	}
	return fmt.Sprintf("Bias(%d)", int(b))
}

func (b Bias) valid() bool {
	switch b {
	case Bias7, Bias9:
		return true
	}
	return false
}

func (b Bias) command() (byte, error) {
	switch b {
	case Bias7:
		return bias17, nil
	case Bias9:
		return bias19, nil
	}
	return 0, fmt.Errorf("st7567: invalid bias %s", b)
}

// Backlight is the state of the backlight LED.
type Backlight bool

const (
	BacklightOff Backlight = false
	BacklightOn  Backlight = true
)

func (b Backlight) String() string {
	if b {
		return "On"
	}
	return "Off"
}

// Booster is the internal voltage booster level.
type Booster int

const (
	Booster4x Booster = iota
	Booster5x
)

func (b Booster) String() string {
	switch b {
	case Booster4x:
		return "4x"
	case Booster5x:
		return "5x"
	}
	return fmt.Sprintf("Booster(%d)", int(b))
}

func (b Booster) level() (byte, error) {
	switch b {
	case Booster4x:
		return booster4x, nil
	case Booster5x:
		return booster5x, nil
	}
	return 0, fmt.Errorf("st7567: invalid booster %s", b)
}

// State is the initialization state of the controller as known by the driver.
type State int

const (
	StateUninitialized State = iota
	StateReset
	StateConfigured
	StateDisplaying
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateReset:
		return "Reset"
	case StateConfigured:
		return "Configured"
	case StateDisplaying:
		return "Displaying"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
