package webrelay

import (
	"context"
	"net/http"

	"github.com/KevinKickass/RackRelay/internal/types"
	"go.uber.org/zap"
)

// Port is one relay on a Device.
type Port struct {
	parent   *Device
	port     int
	inverted bool
}

func (p *Port) Port() int { return p.port }

// IsInverted reports whether logical ON is sent to the hardware as 0.
func (p *Port) IsInverted() bool { return p.inverted }

func (p *Port) On(ctx context.Context) error {
	return p.set(ctx, true)
}

func (p *Port) Off(ctx context.Context) error {
	return p.set(ctx, false)
}

func (p *Port) set(ctx context.Context, on bool) error {
	bit := PhysicalOff
	if on != p.inverted {
		bit = PhysicalOn
	}

	p.parent.logger.Info("Relay command",
		zap.String("device", p.parent.deviceID),
		zap.String("url", p.parent.Client.URL(SetStateRequest(p.port, bit))))

	_, err := p.parent.Client.Get(ctx, SetStateRequest(p.port, bit), nil)
	return err
}

// Timed pulses the relay for seconds. The pulse code is independent of polarity.
func (p *Port) Timed(ctx context.Context, seconds int) error {
	header := http.Header{}
	header.Set("Content-Type", "text/xml")
	header.Set("Accept", "text/plain")

	p.parent.logger.Info("Relay pulse",
		zap.String("device", p.parent.deviceID),
		zap.Int("port", p.port),
		zap.Int("seconds", seconds))

	_, err := p.parent.Client.Get(ctx, PulseRequest(p.port, seconds), header)
	return err
}

func (p *Port) Status(ctx context.Context) (types.Status, error) {
	statuses, err := p.parent.Status(ctx)
	if err != nil {
		return types.StatusUnknown, err
	}
	return statuses[p.port-1], nil
}

// PortStatus maps "0" to OFF and anything else to ON. Polarity is applied by the device.
func (p *Port) PortStatus(raw string) types.Status {
	if raw == PhysicalOff {
		return types.StatusOff
	}
	return types.StatusOn
}
