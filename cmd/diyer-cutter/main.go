// Command diyer-cutter runs the cutter firmware on a host with an I2C bus:
// a 16x2 character LCD and a 3x4 keypad behind MCP23008 expanders, and a
// blade servo behind a PCA9685.
package main

import (
	"flag"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/cjm571/diyer-cutter/cutter"
	"github.com/cjm571/diyer-cutter/keypad"
	"github.com/cjm571/diyer-cutter/lcd1602"
	"github.com/cjm571/diyer-cutter/servo"
)

func main() {
	busName := flag.String("bus", "", "I2C bus name (empty selects the first available)")
	lcdAddr := flag.Uint("lcd-addr", lcd1602.DefaultAddr, "bus address of the LCD's expander")
	padAddr := flag.Uint("keypad-addr", keypad.DefaultAddr, "bus address of the keypad's expander")
	servoAddr := flag.Uint("servo-addr", uint(servo.DefaultAddr), "bus address of the PCA9685")
	servoChan := flag.Int("servo-channel", 0, "PCA9685 output channel of the blade servo")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if _, err := host.Init(); err != nil {
		log.WithError(err).Fatal("host init failed")
	}
	bus, err := i2creg.Open(*busName)
	if err != nil {
		log.WithError(err).Fatal("opening I2C bus failed")
	}
	defer bus.Close()

	// The bus is owned here and handed to each device; every logical
	// operation below runs to completion before the next starts, so no two
	// read-modify-write sequences ever interleave.
	lcd := lcd1602.New(bus, uint16(*lcdAddr))
	pad := keypad.New(bus, uint16(*padAddr))

	log.Info("initializing LCD")
	lcd.PowerOn()
	lcd.Init()
	log.Info("initializing keypad")
	pad.Init()

	lcd.DisplayGreeting()
	time.Sleep(2 * time.Second)

	log.Info("initializing blade servo")
	blade, err := servo.New(bus, uint16(*servoAddr), *servoChan)
	if err != nil {
		log.WithError(err).Fatal("servo init failed")
	}

	// Liveness heartbeat, outside the bus-owning loop.
	go func() {
		for range time.Tick(time.Second) {
			log.Debug("heartbeat")
		}
	}()

	ctl := &cutter.Controller{
		LCD:   lcd,
		Pad:   pad,
		Blade: blade,
		Log:   log,
	}
	if err := ctl.Run(); err != nil {
		log.WithError(err).Fatal("workflow failed")
	}
}
