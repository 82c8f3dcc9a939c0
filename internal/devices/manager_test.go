package devices

import (
	"errors"
	"testing"
	"time"

	"github.com/KevinKickass/RackRelay/internal/types"
	"github.com/KevinKickass/RackRelay/internal/webrelay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func relayConfig(id string, maxPort int) types.RelayDeviceConfig {
	return types.RelayDeviceConfig{
		Host:     "192.168.100.1",
		Type:     webrelay.TypeXWR4R1,
		Port:     80,
		MaxPort:  maxPort,
		DeviceID: id,
	}
}

func TestBuilder_BuildXWR4R1(t *testing.T) {
	b := NewBuilder(2*time.Second, zap.NewNop())

	cfg := relayConfig("1", 4)
	cfg.InvertRelays = []bool{true}

	device, err := b.Build(cfg)
	require.NoError(t, err)
	assert.Equal(t, "1", device.DeviceID())
	assert.Equal(t, webrelay.TypeXWR4R1, device.Type())
	require.Len(t, device.Relays(), 4)
	assert.True(t, device.Relay(1).IsInverted())
	assert.False(t, device.Relay(2).IsInverted())
}

func TestBuilder_UnknownType(t *testing.T) {
	b := NewBuilder(time.Second, zap.NewNop())

	cfg := relayConfig("1", 4)
	cfg.Type = "XWR8R1"

	_, err := b.Build(cfg)
	assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
}

func TestBuilder_Register(t *testing.T) {
	b := NewBuilder(time.Second, zap.NewNop())

	var got types.RelayDeviceConfig
	b.Register("MOCK", func(cfg types.RelayDeviceConfig, timeout time.Duration, logger *zap.Logger) (types.RelayDevice, error) {
		got = cfg
		return webrelay.NewDevice(cfg, timeout, logger), nil
	})

	cfg := relayConfig("m", 2)
	cfg.Type = "MOCK"
	_, err := b.Build(cfg)
	require.NoError(t, err)
	assert.Equal(t, "m", got.DeviceID)
	assert.Equal(t, []string{"MOCK", webrelay.TypeXWR4R1}, b.Types())

	b.Register("BROKEN", func(types.RelayDeviceConfig, time.Duration, *zap.Logger) (types.RelayDevice, error) {
		return nil, errors.New("boom")
	})
	cfg.Type = "BROKEN"
	_, err = b.Build(cfg)
	assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
}

func TestNewManager_KeepsOrder(t *testing.T) {
	configs := []types.RelayDeviceConfig{relayConfig("B", 4), relayConfig("A", 2)}

	m, err := NewManager(configs, NewBuilder(time.Second, zap.NewNop()), zap.NewNop())
	require.NoError(t, err)

	devices := m.Devices()
	require.Len(t, devices, 2)
	assert.Equal(t, "B", devices[0].DeviceID())
	assert.Equal(t, "A", devices[1].DeviceID())
	assert.Equal(t, 2, m.Count())
	assert.Equal(t, configs, m.Configs())

	d, ok := m.Device("a")
	require.True(t, ok)
	assert.Equal(t, "A", d.DeviceID())

	d, ok = m.DeviceAt(1)
	require.True(t, ok)
	assert.Equal(t, "B", d.DeviceID())

	_, ok = m.DeviceAt(3)
	assert.False(t, ok)
	_, ok = m.DeviceAt(0)
	assert.False(t, ok)
	_, ok = m.Device("C")
	assert.False(t, ok)
}

func TestNewManager_InvalidConfiguration(t *testing.T) {
	missingHost := relayConfig("1", 4)
	missingHost.Host = ""

	missingMaxPort := relayConfig("1", 0)

	badPort := relayConfig("1", 4)
	badPort.Port = 70000

	colonID := relayConfig("rack:1", 4)

	unknownType := relayConfig("1", 4)
	unknownType.Type = "SOMETHING"

	tests := []struct {
		name    string
		configs []types.RelayDeviceConfig
		errText string
	}{
		{name: "no relays", configs: nil, errText: "empty"},
		{name: "missing host", configs: []types.RelayDeviceConfig{missingHost}, errText: "host"},
		{name: "missing maxPort", configs: []types.RelayDeviceConfig{missingMaxPort}, errText: "maxPort"},
		{name: "port out of range", configs: []types.RelayDeviceConfig{badPort}, errText: "schema"},
		{name: "colon in device id", configs: []types.RelayDeviceConfig{colonID}, errText: "schema"},
		{name: "duplicate id", configs: []types.RelayDeviceConfig{relayConfig("1", 4), relayConfig("1", 2)}, errText: "share deviceId"},
		{name: "unknown type", configs: []types.RelayDeviceConfig{unknownType}, errText: "SOMETHING"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(tt.configs, NewBuilder(time.Second, zap.NewNop()), zap.NewNop())
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrInvalidConfiguration)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}
