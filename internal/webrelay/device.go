package webrelay

import (
	"context"
	"fmt"
	"time"

	"github.com/KevinKickass/RackRelay/internal/types"
	"go.uber.org/zap"
)

// TypeXWR4R1 is the ControlByWeb WebRelay-Quad.
const TypeXWR4R1 = "XWR4R1"

// Device is a WebRelay-Quad (XWR4R1) unit.
// See http://www.controlbyweb.com/webrelay-quad/webrelay-quad_users_manual.pdf
type Device struct {
	deviceID   string
	deviceType string
	host       string
	port       int
	maxPort    int
	Client     *Client
	ports      []*Port
	logger     *zap.Logger
}

// NewDevice builds the unit and its maxPort ports. invertRelays[i] marks port
// i+1 as inverted; entries beyond the list default to non-inverted.
// cfg.ReadTimeout overrides defaultTimeout when set.
func NewDevice(cfg types.RelayDeviceConfig, defaultTimeout time.Duration, logger *zap.Logger) *Device {
	timeout := defaultTimeout
	if cfg.ReadTimeout > 0 {
		timeout = cfg.ReadTimeout
	}

	d := &Device{
		deviceID:   cfg.DeviceID,
		deviceType: cfg.Type,
		host:       cfg.Host,
		port:       cfg.Port,
		maxPort:    cfg.MaxPort,
		Client:     NewClient(cfg.Host, cfg.Port, timeout),
		ports:      make([]*Port, 0, cfg.MaxPort),
		logger:     logger,
	}

	for i := 1; i <= cfg.MaxPort; i++ {
		inverted := i-1 < len(cfg.InvertRelays) && cfg.InvertRelays[i-1]
		d.ports = append(d.ports, &Port{parent: d, port: i, inverted: inverted})
	}

	return d
}

func (d *Device) DeviceID() string { return d.deviceID }
func (d *Device) Host() string     { return d.host }
func (d *Device) Port() int        { return d.port }
func (d *Device) MaxPort() int     { return d.maxPort }
func (d *Device) Type() string     { return d.deviceType }

// Relay returns the 1-based port i. Out of range indexes panic.
func (d *Device) Relay(i int) types.Relay {
	return d.ports[i-1]
}

func (d *Device) Relays() []types.Relay {
	relays := make([]types.Relay, len(d.ports))
	for i, p := range d.ports {
		relays[i] = p
	}
	return relays
}

// Status fetches stateFull.xml and returns the logical state of each port.
func (d *Device) Status(ctx context.Context) ([]types.Status, error) {
	body, err := d.Client.Get(ctx, nil, nil)
	if err != nil {
		return nil, err
	}

	statuses, err := d.parse(body)
	if err != nil {
		d.logger.Error("Parsing exception on relay status",
			zap.String("device", d.deviceID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", types.ErrBadDevice, d.deviceID, err)
	}

	d.logger.Debug("Relay status",
		zap.String("device", d.deviceID),
		zap.Any("status", statuses))

	return statuses, nil
}

func (d *Device) parse(body []byte) ([]types.Status, error) {
	values, err := ParseStateValues(body)
	if err != nil {
		return nil, err
	}

	if len(values) < len(d.ports) {
		return nil, fmt.Errorf("status document has %d values, expected %d", len(values), len(d.ports))
	}

	statuses := make([]types.Status, len(d.ports))
	for i, p := range d.ports {
		s := p.PortStatus(values[i])
		if p.inverted {
			s = s.Invert()
		}
		statuses[i] = s
	}

	return statuses, nil
}

func (d *Device) String() string {
	return fmt.Sprintf("%s{deviceId=%s, address=%s, maxPort=%d}", d.deviceType, d.deviceID, d.Client.Address(), d.maxPort)
}
