package health

import (
	"context"
	"sync"
	"time"

	"github.com/KevinKickass/RackRelay/internal/events"
	"github.com/KevinKickass/RackRelay/internal/metrics"
	"go.uber.org/zap"
)

// Monitor runs the health check on an interval, exports the results as
// gauges and publishes an event whenever a device changes health.
type Monitor struct {
	checker   *Checker
	interval  time.Duration
	metrics   *metrics.Metrics
	publisher events.Publisher
	logger    *zap.Logger

	last     map[string]bool
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

func NewMonitor(checker *Checker, interval time.Duration, m *metrics.Metrics, publisher events.Publisher, logger *zap.Logger) *Monitor {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Monitor{
		checker:   checker,
		interval:  interval,
		metrics:   m,
		publisher: publisher,
		logger:    logger,
		last:      make(map[string]bool),
		stopChan:  make(chan struct{}),
	}
}

func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	m.running = true
	m.wg.Add(1)

	go m.loop()

	m.logger.Info("Health monitor started", zap.Duration("interval", m.interval))

	return nil
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	close(m.stopChan)
	m.wg.Wait()

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	m.logger.Info("Health monitor stopped")
}

func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) loop() {
	defer m.wg.Done()

	m.probe()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.probe()
		}
	}
}

func (m *Monitor) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	defer cancel()

	devices := m.checker.devices.Devices()
	for _, d := range devices {
		report, resolved := m.checker.checkDevice(ctx, d)
		m.metrics.DeviceHealth(report.DeviceID, report.Host, report.IsHealthy, resolved)

		prev, seen := m.last[report.DeviceID]
		if !seen || prev != report.IsHealthy {
			m.publisher.Publish(events.NewDeviceHealthEvent(report.DeviceID, report.Host, report.IsHealthy, report.Remarks))
		}
		m.last[report.DeviceID] = report.IsHealthy
	}
}
