// Package config loads the YAML description of a camera module board: how the
// host reaches the I2C bus, where the sensor and companion chips live, which
// lines switch the supplies and what clock feeds the sensor.
//
// Example:
//
//	bus:
//	  backend: periph
//	  device: /dev/i2c-1
//	  speed_khz: 400
//	sensor:
//	  address: 0x54
//	  data_lanes: 2
//	  link_frequencies: [750000000]
//	clock:
//	  frequency_hz: 38400000
//	supplies:
//	  - name: vdd
//	    gpio: GPIO17
//	pmic:
//	  enabled: true
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/mira/gpio"
	"github.com/mklimuk/mira/mira220"
	"github.com/mklimuk/mira/power"
)

var ErrConfiguration = errors.New("invalid board configuration")

// Bus backends.
const (
	BackendPeriph  = "periph"
	BackendNanoPi  = "nanopi"
	BackendDev     = "dev"
	BackendMCP2221 = "mcp2221"
)

type Board struct {
	Bus      Bus      `yaml:"bus"`
	Sensor   Sensor   `yaml:"sensor"`
	Clock    Clock    `yaml:"clock"`
	Supplies []Supply `yaml:"supplies"`
	PMIC     PMIC     `yaml:"pmic"`
}

type Bus struct {
	Backend string `yaml:"backend"`
	// Device is the periph bus name or the /dev/i2c-N path.
	Device string `yaml:"device,omitempty"`
	// Number is the gobot bus number.
	Number   int `yaml:"number,omitempty"`
	SpeedKHz int `yaml:"speed_khz,omitempty"`
}

type Sensor struct {
	Address         byte          `yaml:"address"`
	DataLanes       int           `yaml:"data_lanes"`
	LinkFrequencies []int64       `yaml:"link_frequencies"`
	StopWait        bool          `yaml:"stop_wait"`
	Settle          time.Duration `yaml:"settle,omitempty"`
}

type Clock struct {
	FrequencyHz int64  `yaml:"frequency_hz"`
	Gate        string `yaml:"gate,omitempty"`
}

// Supply is one switchable rail on a host GPIO line, an adapter GPIO or an
// I/O expander pin. Exactly one of them is set.
type Supply struct {
	Name        string        `yaml:"name"`
	GPIO        string        `yaml:"gpio,omitempty"`
	AdapterGPIO *int          `yaml:"adapter_gpio,omitempty"`
	Expander    *ExpanderLine `yaml:"expander,omitempty"`
	ActiveLow   bool          `yaml:"active_low,omitempty"`
}

// ExpanderLine is a pin of an MCP23017 sharing the sensor bus.
type ExpanderLine struct {
	Address byte   `yaml:"address"`
	Port    string `yaml:"port"`
	Pin     int    `yaml:"pin"`
}

func (s Supply) lines() int {
	n := 0
	if s.GPIO != "" {
		n++
	}
	if s.AdapterGPIO != nil {
		n++
	}
	if s.Expander != nil {
		n++
	}
	return n
}

type PMIC struct {
	Enabled    bool `yaml:"enabled"`
	Address    byte `yaml:"address"`
	MCUAddress byte `yaml:"mcu_address"`
	LEDAddress byte `yaml:"led_address"`
}

// Default describes a module on the first host bus with no switchable supplies.
func Default() Board {
	return Board{
		Bus: Bus{
			Backend:  BackendPeriph,
			Device:   "",
			SpeedKHz: 400,
		},
		Sensor: Sensor{
			Address:         mira220.DefaultAddress,
			DataLanes:       mira220.DataLanes,
			LinkFrequencies: []int64{mira220.DefaultLinkFrequency},
			StopWait:        true,
		},
		Clock: Clock{
			FrequencyHz: int64(mira220.SupportedClockRate / physic.Hertz),
		},
		PMIC: PMIC{
			Address:    power.DefaultPMICAddress,
			MCUAddress: power.DefaultMCUAddress,
			LEDAddress: power.DefaultLEDAddress,
		},
	}
}

// Load reads and validates a board file.
func Load(path string) (Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Board{}, fmt.Errorf("could not read board file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a board description over Default and validates it.
func Parse(data []byte) (Board, error) {
	b := Default()
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Board{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := b.Validate(); err != nil {
		return Board{}, err
	}
	return b, nil
}

// Validate checks the description is complete. Sensor specific limits (lane
// count, clock rate) are checked by the driver at attach.
func (b Board) Validate() error {
	var errs []error
	switch b.Bus.Backend {
	case BackendPeriph, BackendNanoPi, BackendMCP2221:
	case BackendDev:
		if b.Bus.Device == "" {
			errs = append(errs, errors.New("bus: device path required for dev backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("bus: unknown backend %q", b.Bus.Backend))
	}
	if b.Sensor.Address == 0 || b.Sensor.Address > 0x7F {
		errs = append(errs, fmt.Errorf("sensor: invalid address %#x", b.Sensor.Address))
	}
	if b.Clock.FrequencyHz <= 0 {
		errs = append(errs, errors.New("clock: frequency required"))
	}
	names := make(map[string]bool)
	for i, s := range b.Supplies {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("supplies[%d]: name required", i))
		}
		if names[s.Name] {
			errs = append(errs, fmt.Errorf("supplies[%d]: duplicate name %q", i, s.Name))
		}
		names[s.Name] = true
		switch {
		case s.lines() > 1:
			errs = append(errs, fmt.Errorf("supplies[%d]: gpio, adapter_gpio and expander are exclusive", i))
		case s.lines() == 0:
			errs = append(errs, fmt.Errorf("supplies[%d]: gpio, adapter_gpio or expander required", i))
		case s.AdapterGPIO != nil && b.Bus.Backend != BackendMCP2221:
			errs = append(errs, fmt.Errorf("supplies[%d]: adapter_gpio requires the mcp2221 backend", i))
		case s.AdapterGPIO != nil && (*s.AdapterGPIO < 0 || *s.AdapterGPIO > 3):
			errs = append(errs, fmt.Errorf("supplies[%d]: adapter_gpio %d not in [0, 3]", i, *s.AdapterGPIO))
		case s.Expander != nil:
			if s.Expander.Address == 0 || s.Expander.Address > 0x7F {
				errs = append(errs, fmt.Errorf("supplies[%d]: invalid expander address %#x", i, s.Expander.Address))
			}
			if _, err := gpio.ParsePort(s.Expander.Port); err != nil {
				errs = append(errs, fmt.Errorf("supplies[%d]: %w", i, err))
			}
			if s.Expander.Pin < 0 || s.Expander.Pin > 7 {
				errs = append(errs, fmt.Errorf("supplies[%d]: expander pin %d not in [0, 7]", i, s.Expander.Pin))
			}
		}
	}
	if b.PMIC.Enabled && (b.PMIC.Address == 0 || b.PMIC.MCUAddress == 0 || b.PMIC.LEDAddress == 0) {
		errs = append(errs, errors.New("pmic: addresses required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// ClockRate returns the configured sensor input clock.
func (b Board) ClockRate() physic.Frequency {
	return physic.Frequency(b.Clock.FrequencyHz) * physic.Hertz
}

// BusSpeed returns the configured bus clock, zero when left to the backend default.
func (b Board) BusSpeed() physic.Frequency {
	return physic.Frequency(b.Bus.SpeedKHz) * physic.KiloHertz
}

// SensorOptions translates the sensor section into driver options. rails may be nil.
func (b Board) SensorOptions(rails mira220.RailController) []mira220.Option {
	opts := []mira220.Option{
		mira220.WithAddress(b.Sensor.Address),
		mira220.WithDataLanes(b.Sensor.DataLanes),
		mira220.WithLinkFrequencies(b.Sensor.LinkFrequencies...),
	}
	if !b.Sensor.StopWait {
		opts = append(opts, mira220.WithoutStopWait())
	}
	if rails != nil {
		opts = append(opts, mira220.WithRails(rails))
	}
	return opts
}

func (b Board) SequencerOptions() []power.SequencerOpt {
	return []power.SequencerOpt{power.WithSettle(b.Sensor.Settle)}
}

func (b Board) PMICOptions() []power.PMICOpt {
	return []power.PMICOpt{
		power.WithPMICAddress(b.PMIC.Address),
		power.WithMCUAddress(b.PMIC.MCUAddress),
		power.WithLEDAddress(b.PMIC.LEDAddress),
	}
}
