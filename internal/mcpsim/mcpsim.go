// Package mcpsim emulates MCP23008 port expanders behind an i2c.Bus so the
// LCD and keypad drivers can be exercised without hardware. The emulation
// covers only what those drivers use: the IODIR and GPIO/OLAT registers.
package mcpsim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

var _ i2c.Bus = &Bus{}

// Write is one recorded write to a chip's GPIO register.
type Write struct {
	Value uint8
	At    time.Time
}

// Chip is one emulated MCP23008.
type Chip struct {
	IODIR uint8 // 1 = input
	OLAT  uint8 // output latch

	// Input supplies the levels of input pins, given the current output
	// latch (the keypad tests derive row levels from the driven column).
	// Nil means all inputs read low.
	Input func(olat uint8) uint8

	// Writes records every GPIO register write, in order.
	Writes []Write
}

// gpio composes the readable pin levels: outputs reflect the latch, inputs
// come from the Input hook.
func (c *Chip) gpio() uint8 {
	v := c.OLAT &^ c.IODIR
	if c.Input != nil {
		v |= c.Input(c.OLAT) & c.IODIR
	}
	return v
}

// Bus is an i2c.Bus backed by emulated chips.
type Bus struct {
	mu    sync.Mutex
	chips map[uint16]*Chip

	failAt int   // 1-based transaction number to fail on, 0 = never
	failErr error // error to return at failAt
	count  int
}

func New() *Bus {
	return &Bus{chips: map[uint16]*Chip{}}
}

// Add attaches a fresh chip at addr and returns it.
func (b *Bus) Add(addr uint16) *Chip {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &Chip{}
	b.chips[addr] = c
	return c
}

// FailAt makes the n-th transaction (1-based, counted across all chips)
// return err instead of completing.
func (b *Bus) FailAt(n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failAt = n
	b.failErr = err
}

// Transactions returns how many transactions the bus has seen.
func (b *Bus) Transactions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *Bus) String() string { return "mcpsim" }

func (b *Bus) SetSpeed(f physic.Frequency) error { return nil }

// Tx decodes register-addressed reads ([reg] then read 1) and writes
// ([reg, value]), the only transaction shapes the drivers issue.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.count++
	if b.failAt != 0 && b.count == b.failAt {
		return b.failErr
	}

	c, ok := b.chips[addr]
	if !ok {
		return fmt.Errorf("mcpsim: no ack from %#02x", addr)
	}

	switch {
	case len(w) == 1 && len(r) == 1:
		switch w[0] {
		case 0x00: // IODIR
			r[0] = c.IODIR
		case 0x09, 0x0a: // GPIO, OLAT
			r[0] = c.gpio()
		default:
			return fmt.Errorf("mcpsim: read of unimplemented register %#02x", w[0])
		}
		return nil
	case len(w) == 2 && len(r) == 0:
		switch w[0] {
		case 0x00:
			c.IODIR = w[1]
		case 0x09, 0x0a:
			c.OLAT = w[1]
			c.Writes = append(c.Writes, Write{Value: w[1], At: time.Now()})
		default:
			return fmt.Errorf("mcpsim: write of unimplemented register %#02x", w[0])
		}
		return nil
	}
	return errors.New("mcpsim: unsupported transaction shape")
}
