package mcp23008

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestReadGPIO(t *testing.T) {
	b := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x20, W: []byte{regGPIO}, R: []byte{0xa5}},
		},
	}
	d := New(b, 0x20)
	got, err := d.ReadGPIO()
	if err != nil {
		t.Fatalf("ReadGPIO: %v", err)
	}
	if got != 0xa5 {
		t.Errorf("ReadGPIO = %#02x, want 0xa5", got)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestWriteGPIO(t *testing.T) {
	b := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x20, W: []byte{regGPIO, 0x42}, R: nil},
		},
	}
	d := New(b, 0x20)
	if err := d.WriteGPIO(0x42); err != nil {
		t.Fatalf("WriteGPIO: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestConfigureDirection(t *testing.T) {
	b := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x21, W: []byte{regIODIR, 0x6a}, R: nil},
		},
	}
	d := New(b, 0x21)
	if err := d.ConfigureDirection(0x6a); err != nil {
		t.Fatalf("ConfigureDirection: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

// SetBits must re-read the register before writing; the chip is the only
// holder of truth.
func TestSetBits(t *testing.T) {
	b := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x20, W: []byte{regGPIO}, R: []byte{0b1000_0001}},
			{Addr: 0x20, W: []byte{regGPIO, 0b1000_0101}, R: nil},
		},
	}
	d := New(b, 0x20)
	if err := d.SetBits(0b0000_0100); err != nil {
		t.Fatalf("SetBits: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestClearBits(t *testing.T) {
	b := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x20, W: []byte{regGPIO}, R: []byte{0b1000_0101}},
			{Addr: 0x20, W: []byte{regGPIO, 0b1000_0000}, R: nil},
		},
	}
	d := New(b, 0x20)
	if err := d.ClearBits(0b0111_1111); err != nil {
		t.Fatalf("ClearBits: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestBusError(t *testing.T) {
	// An exhausted playback rejects every transaction, standing in for a
	// device that never acknowledges.
	b := &i2ctest.Playback{DontPanic: true}
	d := New(b, 0x20)

	_, err := d.ReadGPIO()
	if err == nil {
		t.Fatal("ReadGPIO on a dead bus succeeded")
	}
	var be *BusError
	if !errors.As(err, &be) {
		t.Fatalf("ReadGPIO error = %T, want *BusError", err)
	}
	if be.Addr != 0x20 {
		t.Errorf("BusError.Addr = %#02x, want 0x20", be.Addr)
	}

	if err := d.SetBits(0x01); err == nil {
		t.Error("SetBits on a dead bus succeeded")
	}
}
