// Package servo actuates the cutting blade with a hobby servo driven by a
// PCA9685 PWM controller on the same I2C bus as the display and keypad.
package servo

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
)

// DefaultAddr is the PCA9685's default bus address.
const DefaultAddr uint16 = pca9685.I2CAddr

const (
	// Standard hobby servo frame rate.
	pwmFreq = 50 * physic.Hertz

	// Pulse width limits for the 180 degree range, in 12-bit duty ticks.
	minPulse = 50
	maxPulse = 650

	restAngle = 0
	cutAngle  = 120 * physic.Degree

	// Worst-case swing time for a full stroke.
	travelTime = 600 * time.Millisecond
)

// Dev is a handle to the blade servo.
type Dev struct {
	arm *pca9685.Servo
}

// New configures the PCA9685 at addr on bus for 50Hz operation and returns
// the blade servo on the given output channel, parked at the rest position.
func New(bus i2c.Bus, addr uint16, channel int) (*Dev, error) {
	pwm, err := pca9685.NewI2C(bus, addr)
	if err != nil {
		return nil, fmt.Errorf("servo: %w", err)
	}
	if err := pwm.SetPwmFreq(pwmFreq); err != nil {
		return nil, fmt.Errorf("servo: %w", err)
	}

	group := pca9685.NewServoGroup(pwm, minPulse, maxPulse, 0, 180*physic.Degree)
	d := &Dev{arm: group.GetServo(channel)}
	if err := d.arm.SetAngle(restAngle); err != nil {
		return nil, fmt.Errorf("servo: %w", err)
	}
	time.Sleep(travelTime)
	return d, nil
}

// Cut swings the blade through the material and back to rest, blocking for
// the mechanical travel in each direction.
func (d *Dev) Cut() error {
	if err := d.arm.SetAngle(cutAngle); err != nil {
		return fmt.Errorf("servo: cut stroke: %w", err)
	}
	time.Sleep(travelTime)

	if err := d.arm.SetAngle(restAngle); err != nil {
		return fmt.Errorf("servo: return stroke: %w", err)
	}
	time.Sleep(travelTime)
	return nil
}
