package types

import (
	"context"
	"fmt"
	"time"
)

// Status is the logical state of one relay port.
type Status string

const (
	StatusOn      Status = "ON"
	StatusOff     Status = "OFF"
	StatusUnknown Status = "UNKNOWN"
)

// Invert flips ON and OFF. UNKNOWN stays UNKNOWN.
func (s Status) Invert() Status {
	switch s {
	case StatusOn:
		return StatusOff
	case StatusOff:
		return StatusOn
	default:
		return StatusUnknown
	}
}

// Resolved reports whether s is a definite ON or OFF.
func (s Status) Resolved() bool {
	return s == StatusOn || s == StatusOff
}

// Relay is a single controllable contact on a relay device.
type Relay interface {
	On(ctx context.Context) error
	Off(ctx context.Context) error
	// Timed pulses the relay for the given number of seconds; the hardware reverts on its own.
	Timed(ctx context.Context, seconds int) error
	Status(ctx context.Context) (Status, error)
	// PortStatus maps the raw text of one status element to ON/OFF without applying polarity.
	PortStatus(raw string) Status
	Port() int
	IsInverted() bool
}

// RelayDevice is a network attached unit hosting one or more relays.
type RelayDevice interface {
	// Status fetches the state of every port, in port order.
	Status(ctx context.Context) ([]Status, error)
	// Relay returns the 1-based port i.
	Relay(i int) Relay
	Relays() []Relay
	DeviceID() string
	Host() string
	Port() int
	MaxPort() int
	Type() string
}

// RelayDeviceConfig is one entry of the relays block in config.yaml.
// Keys keep the camelCase spelling of the hardware inventory files.
type RelayDeviceConfig struct {
	Host         string        `mapstructure:"host" json:"host" yaml:"host"`
	Type         string        `mapstructure:"type" json:"type" yaml:"type"`
	Port         int           `mapstructure:"port" json:"port" yaml:"port"`
	MaxPort      int           `mapstructure:"maxPort" json:"maxPort" yaml:"maxPort"`
	DeviceID     string        `mapstructure:"deviceId" json:"deviceId" yaml:"deviceId"`
	InvertRelays []bool        `mapstructure:"invertRelays" json:"invertRelays,omitempty" yaml:"invertRelays,omitempty"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout" json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`
}

// MissingFields lists the required keys that are not set.
func (c RelayDeviceConfig) MissingFields() []string {
	var missing []string
	if c.Type == "" {
		missing = append(missing, "type")
	}
	if c.DeviceID == "" {
		missing = append(missing, "deviceId")
	}
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.Port == 0 {
		missing = append(missing, "port")
	}
	if c.MaxPort == 0 {
		missing = append(missing, "maxPort")
	}
	return missing
}

func (c RelayDeviceConfig) String() string {
	return fmt.Sprintf("RelayDeviceConfig{deviceId=%s, type=%s, host=%s, port=%d, maxPort=%d, invertRelays=%v}",
		c.DeviceID, c.Type, c.Host, c.Port, c.MaxPort, c.InvertRelays)
}

// HealthReport is the per device result of a health probe.
type HealthReport struct {
	DeviceID  string `json:"deviceId"`
	Entity    string `json:"entity"`
	Host      string `json:"host"`
	IsHealthy bool   `json:"isHealthy"`
	Remarks   string `json:"remarks"`
}

// HealthStatus is the envelope served to the operations dashboard.
type HealthStatus struct {
	Version                  map[string]string `json:"version"`
	IsHealthy                bool              `json:"isHealthy"`
	HWDevicesHealthStatus    []HealthReport    `json:"hwDevicesHealthStatus"`
	DependenciesHealthStatus []HealthReport    `json:"dependenciesHealthStatus"`
}

// SlotMappings is the persisted slot -> "device:port" document.
type SlotMappings struct {
	Slots map[string]string `json:"slots"`
}
