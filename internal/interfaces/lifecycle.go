package interfaces

import (
	"context"

	"github.com/KevinKickass/RackRelay/internal/config"
	"github.com/KevinKickass/RackRelay/internal/control"
	"github.com/KevinKickass/RackRelay/internal/devices"
	"github.com/KevinKickass/RackRelay/internal/events"
	"github.com/KevinKickass/RackRelay/internal/health"
	"github.com/KevinKickass/RackRelay/internal/metrics"
	"github.com/KevinKickass/RackRelay/internal/slots"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State          string `json:"state"`
	RackIP         string `json:"rack_ip"`
	DeviceCount    int    `json:"device_count"`
	MappedSlots    int    `json:"mapped_slots"`
	MappingBackend string `json:"mapping_backend"`
	MonitorRunning bool   `json:"monitor_running"`
}

type LifecycleManager interface {
	Config() *config.Config
	DeviceManager() *devices.Manager
	SlotStore() *slots.Store
	RelayControl() *control.Service
	HealthChecker() *health.Checker
	Events() events.Publisher
	Metrics() *metrics.Metrics
	GetCurrentStatus() SystemStatus
	Shutdown(ctx context.Context) error
}
