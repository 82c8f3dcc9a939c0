package devices

import (
	"fmt"
	"strings"

	"github.com/KevinKickass/RackRelay/internal/types"
	"go.uber.org/zap"
)

// Manager holds the relay devices of the rack. The list is built once at
// startup and never changes afterwards, so no locking is needed.
type Manager struct {
	devices []types.RelayDevice
	configs []types.RelayDeviceConfig
	logger  *zap.Logger
}

// NewManager validates every configured device and builds it through the
// builder. Any invalid entry fails the whole rack.
func NewManager(configs []types.RelayDeviceConfig, builder *Builder, logger *zap.Logger) (*Manager, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	if err := validator.ValidateRelays(configs); err != nil {
		return nil, err
	}

	m := &Manager{
		devices: make([]types.RelayDevice, 0, len(configs)),
		configs: append([]types.RelayDeviceConfig(nil), configs...),
		logger:  logger,
	}

	for _, cfg := range configs {
		device, err := builder.Build(cfg)
		if err != nil {
			return nil, err
		}
		m.devices = append(m.devices, device)

		logger.Info("Relay device loaded",
			zap.String("device_id", cfg.DeviceID),
			zap.String("type", cfg.Type),
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.Int("max_port", cfg.MaxPort))
	}

	return m, nil
}

// Devices returns the devices in configuration order.
func (m *Manager) Devices() []types.RelayDevice {
	out := make([]types.RelayDevice, len(m.devices))
	copy(out, m.devices)
	return out
}

// Configs returns the configuration the devices were built from.
func (m *Manager) Configs() []types.RelayDeviceConfig {
	out := make([]types.RelayDeviceConfig, len(m.configs))
	copy(out, m.configs)
	return out
}

// Device returns the device with the given ID, compared case-insensitively.
func (m *Manager) Device(deviceID string) (types.RelayDevice, bool) {
	for _, d := range m.devices {
		if strings.EqualFold(d.DeviceID(), deviceID) {
			return d, true
		}
	}
	return nil, false
}

// DeviceAt returns the device at the 1-based position in configuration order.
func (m *Manager) DeviceAt(ordinal int) (types.RelayDevice, bool) {
	if ordinal < 1 || ordinal > len(m.devices) {
		return nil, false
	}
	return m.devices[ordinal-1], true
}

// Count returns the number of configured devices.
func (m *Manager) Count() int {
	return len(m.devices)
}
