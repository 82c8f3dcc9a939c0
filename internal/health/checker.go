package health

import (
	"context"

	"github.com/KevinKickass/RackRelay/internal/types"
	"go.uber.org/zap"
)

const (
	RemarkHealthy   = "Able to check outlet status"
	RemarkUnhealthy = "Unable to check outlet status"

	versionKey = "MS_VERSION"
)

type DeviceLister interface {
	Devices() []types.RelayDevice
}

// Checker probes every relay device of the rack.
type Checker struct {
	devices DeviceLister
	version string
	logger  *zap.Logger
}

func NewChecker(devices DeviceLister, version string, logger *zap.Logger) *Checker {
	if version == "" {
		version = "development"
	}
	return &Checker{devices: devices, version: version, logger: logger}
}

// Check reads the status of every device in order. A device is healthy when
// each of its ports reported ON or OFF. Probe errors only mark the device
// unhealthy.
func (c *Checker) Check(ctx context.Context) []types.HealthReport {
	devices := c.devices.Devices()
	reports := make([]types.HealthReport, 0, len(devices))

	for _, d := range devices {
		report, _ := c.checkDevice(ctx, d)
		reports = append(reports, report)
	}

	return reports
}

// checkDevice also returns the number of ports that reported a status.
func (c *Checker) checkDevice(ctx context.Context, d types.RelayDevice) (types.HealthReport, int) {
	report := types.HealthReport{
		DeviceID: d.DeviceID(),
		Entity:   d.Type(),
		Host:     d.Host(),
		Remarks:  RemarkUnhealthy,
	}

	statuses, err := d.Status(ctx)
	if err != nil {
		c.logger.Warn("Relay device health check failed",
			zap.String("device", d.DeviceID()),
			zap.String("host", d.Host()),
			zap.Error(err))
		return report, 0
	}

	resolved := resolvedCount(statuses)
	if resolved == d.MaxPort() {
		report.IsHealthy = true
		report.Remarks = RemarkHealthy
	}

	return report, resolved
}

// Report wraps Check in the dashboard envelope.
func (c *Checker) Report(ctx context.Context) types.HealthStatus {
	reports := c.Check(ctx)

	healthy := true
	for _, r := range reports {
		if !r.IsHealthy {
			healthy = false
			break
		}
	}

	return types.HealthStatus{
		Version:               map[string]string{versionKey: c.version},
		IsHealthy:             healthy,
		HWDevicesHealthStatus: reports,
	}
}

func resolvedCount(statuses []types.Status) int {
	n := 0
	for _, s := range statuses {
		if s.Resolved() {
			n++
		}
	}
	return n
}
