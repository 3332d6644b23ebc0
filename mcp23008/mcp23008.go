// Package mcp23008 drives the GPIO register of an MCP23008 8-bit I2C port
// expander. Both the LCD and the keypad hang off one of these chips, so this
// package is the only place register-level bus traffic happens.
//
// The chip's state is never mirrored in software: a second bus master could
// make a mirror stale, so every modify re-reads the register first. The
// read-modify-write sequences are not atomic; callers must serialize access
// to the bus for the duration of each logical operation.
package mcp23008

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/mmr"
)

// MCP23008 register addresses, per the Microchip datasheet.
const (
	regIODIR   = 0x00 // 1 = input, 0 = output
	regIPOL    = 0x01
	regGPINTEN = 0x02
	regDEFVAL  = 0x03
	regINTCON  = 0x04
	regIOCON   = 0x05
	regGPPU    = 0x06
	regINTF    = 0x07
	regINTCAP  = 0x08
	regGPIO    = 0x09 // reads pin levels, writes the output latch
	regOLAT    = 0x0a
)

// BusError reports an I2C transaction with the expander that did not
// complete (no acknowledgment, timeout, malformed transfer).
type BusError struct {
	Addr uint16
	Op   string
	Err  error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("mcp23008: %s on chip %#02x: %v", e.Op, e.Addr, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// Dev is a handle to one MCP23008 on the bus.
type Dev struct {
	regs mmr.Dev8
	addr uint16
}

// New returns a handle to the expander at addr on bus. No bus traffic
// happens until the first operation.
func New(bus i2c.Bus, addr uint16) *Dev {
	return &Dev{
		regs: mmr.Dev8{
			Conn:  &i2c.Dev{Bus: bus, Addr: addr},
			Order: binary.LittleEndian,
		},
		addr: addr,
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("mcp23008{%#02x}", d.addr)
}

// ConfigureDirection marks which pins are inputs (mask bit set) and which
// are outputs (mask bit clear). Called once during chip bring-up, not in
// steady state.
func (d *Dev) ConfigureDirection(inputMask uint8) error {
	if err := d.regs.WriteUint8(regIODIR, inputMask); err != nil {
		return &BusError{Addr: d.addr, Op: "configure direction", Err: err}
	}
	return nil
}

// ReadGPIO returns the current pin levels.
func (d *Dev) ReadGPIO() (uint8, error) {
	v, err := d.regs.ReadUint8(regGPIO)
	if err != nil {
		return 0, &BusError{Addr: d.addr, Op: "read GPIO", Err: err}
	}
	return v, nil
}

// WriteGPIO replaces the output latch wholesale.
func (d *Dev) WriteGPIO(value uint8) error {
	if err := d.regs.WriteUint8(regGPIO, value); err != nil {
		return &BusError{Addr: d.addr, Op: "write GPIO", Err: err}
	}
	return nil
}

// SetBits reads the GPIO register, ORs in mask, and writes it back.
func (d *Dev) SetBits(mask uint8) error {
	v, err := d.ReadGPIO()
	if err != nil {
		return err
	}
	return d.WriteGPIO(v | mask)
}

// ClearBits reads the GPIO register, clears the bits in mask, and writes it
// back.
func (d *Dev) ClearBits(mask uint8) error {
	v, err := d.ReadGPIO()
	if err != nil {
		return err
	}
	return d.WriteGPIO(v &^ mask)
}
