package bsec

import "fmt"

// Legal parameter values for the BME680 under the BSEC generic configs.
// Every field of DeviceConfig must hold one of these; anything else is a
// construction-time error.
const (
	// I2CAddressPrimary and I2CAddressSecondary are the two bus addresses
	// the BME680 can be strapped to (0x76 / 0x77).
	I2CAddressPrimary   = 0x76
	I2CAddressSecondary = 0x77

	// SampleRateLP samples every 3 seconds (low power).
	SampleRateLP = 3
	// SampleRateULP samples every 300 seconds (ultra low power).
	SampleRateULP = 300

	// RetainState4Days and RetainState28Days select how long the fusion
	// algorithm trusts saved calibration state.
	RetainState4Days  = 4
	RetainState28Days = 28

	// maxTempOffset bounds the temperature offset in either direction.
	maxTempOffset = 10.0
)

// Supply voltages the vendor ships generic configs for.
const (
	Voltage18 = 1.8
	Voltage33 = 3.3
)

// sampleRateLabels maps a sample rate to the mode string the child binary
// expects as its third positional argument.
var sampleRateLabels = map[int]string{
	SampleRateLP:  "LP",
	SampleRateULP: "ULP",
}

// voltageTokens maps a supply voltage to its config-string token.
var voltageTokens = map[float64]string{
	Voltage18: "18",
	Voltage33: "33",
}

// DeviceConfig is the validated, immutable set of runtime tuning parameters
// for one BME680. Construct it with NewDeviceConfig; a zero value is not
// usable.
type DeviceConfig struct {
	i2cAddress  int
	tempOffset  float64
	sampleRate  int
	voltage     float64
	retainState int
}

// NewDeviceConfig validates the five tuning parameters and returns an
// immutable DeviceConfig. Each parameter must hold one of its enumerated
// legal values; any violation returns an error wrapping ErrInvalidDevice.
func NewDeviceConfig(i2cAddress int, tempOffset float64, sampleRate int, voltage float64, retainState int) (DeviceConfig, error) {
	if i2cAddress != I2CAddressPrimary && i2cAddress != I2CAddressSecondary {
		return DeviceConfig{}, fmt.Errorf("%w: i2c_address 0x%X must be one of 0x76 or 0x77", ErrInvalidDevice, i2cAddress)
	}
	if tempOffset < -maxTempOffset || tempOffset > maxTempOffset {
		return DeviceConfig{}, fmt.Errorf("%w: temp_offset %.2f must be in the range -10.0 to 10.0", ErrInvalidDevice, tempOffset)
	}
	if _, ok := sampleRateLabels[sampleRate]; !ok {
		return DeviceConfig{}, fmt.Errorf("%w: sample_rate %d must be one of 3 or 300", ErrInvalidDevice, sampleRate)
	}
	if _, ok := voltageTokens[voltage]; !ok {
		return DeviceConfig{}, fmt.Errorf("%w: voltage %.1f must be one of 1.8 or 3.3", ErrInvalidDevice, voltage)
	}
	if retainState != RetainState4Days && retainState != RetainState28Days {
		return DeviceConfig{}, fmt.Errorf("%w: retain_state %d must be one of 4 or 28", ErrInvalidDevice, retainState)
	}

	return DeviceConfig{
		i2cAddress:  i2cAddress,
		tempOffset:  tempOffset,
		sampleRate:  sampleRate,
		voltage:     voltage,
		retainState: retainState,
	}, nil
}

// I2CAddress returns the sensor's bus address (0x76 or 0x77).
func (d DeviceConfig) I2CAddress() int { return d.i2cAddress }

// TempOffset returns the temperature compensation offset in degrees Celsius.
func (d DeviceConfig) TempOffset() float64 { return d.tempOffset }

// SampleRate returns the sample interval in seconds (3 or 300).
func (d DeviceConfig) SampleRate() int { return d.sampleRate }

// Voltage returns the sensor supply voltage (1.8 or 3.3).
func (d DeviceConfig) Voltage() float64 { return d.voltage }

// RetainState returns the calibration-state retention period in days.
func (d DeviceConfig) RetainState() int { return d.retainState }

// ConfigString derives the canonical identity of the vendor configuration
// variant this device requires, e.g. "generic_33v_300s_28d". It is a pure
// function of (voltage, sample rate, retain state) and names a directory in
// the vendor source tree.
func (d DeviceConfig) ConfigString() string {
	return fmt.Sprintf("generic_%sv_%ds_%dd", voltageTokens[d.voltage], d.sampleRate, d.retainState)
}

// SampleRateLabel returns the mode string passed to the child binary:
// "LP" for 3-second sampling, "ULP" for 300-second sampling.
func (d DeviceConfig) SampleRateLabel() string {
	return sampleRateLabels[d.sampleRate]
}
