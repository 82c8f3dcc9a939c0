package system

import (
	"context"
	"fmt"
	"sync"

	"github.com/KevinKickass/RackRelay/internal/api/rest"
	"github.com/KevinKickass/RackRelay/internal/api/websocket"
	"github.com/KevinKickass/RackRelay/internal/config"
	"github.com/KevinKickass/RackRelay/internal/control"
	"github.com/KevinKickass/RackRelay/internal/devices"
	"github.com/KevinKickass/RackRelay/internal/events"
	"github.com/KevinKickass/RackRelay/internal/health"
	"github.com/KevinKickass/RackRelay/internal/interfaces"
	"github.com/KevinKickass/RackRelay/internal/metrics"
	"github.com/KevinKickass/RackRelay/internal/slots"
	"github.com/KevinKickass/RackRelay/internal/storage"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type LifecycleManager struct {
	config        *config.Config
	deviceManager *devices.Manager
	metrics       *metrics.Metrics
	events        *events.Fanout
	wsHub         *websocket.Hub
	logger        *zap.Logger

	storage       *storage.PostgresClient
	slotStore     *slots.Store
	relayControl  *control.Service
	healthChecker *health.Checker
	monitor       *health.Monitor
	mqtt          *events.MQTTPublisher
	restServer    *rest.Server

	stateMu      sync.RWMutex
	currentState SystemState

	serverErr    chan error
	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewLifecycleManager validates the relay configuration and builds the
// device registry. Configuration errors are returned before anything starts.
func NewLifecycleManager(cfg *config.Config, logger *zap.Logger) (*LifecycleManager, error) {
	builder := devices.NewBuilder(cfg.Relay.DeviceReadTimeout, logger)

	deviceManager, err := devices.NewManager(cfg.Relays, builder, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create device manager: %w", err)
	}

	if ce := logger.Check(zap.DebugLevel, "Effective relay configuration"); ce != nil {
		if dump, err := yaml.Marshal(deviceManager.Configs()); err == nil {
			ce.Write(zap.String("relays", string(dump)))
		}
	}

	wsHub := websocket.NewHub(logger)

	return &LifecycleManager{
		config:        cfg,
		deviceManager: deviceManager,
		metrics:       metrics.NewMetrics(),
		events:        events.NewFanout(wsHub),
		wsHub:         wsHub,
		logger:        logger,
		currentState:  StateInitializing,
		serverErr:     make(chan error, 1),
		shutdownChan:  make(chan struct{}),
	}, nil
}

// Start opens the mapping store and starts every background service.
func (lm *LifecycleManager) Start(ctx context.Context) error {
	lm.logger.Info("Starting rack relay controller",
		zap.String("rack_ip", lm.config.RackIP),
		zap.Int("devices", lm.deviceManager.Count()))

	persister, err := lm.openPersister(ctx)
	if err != nil {
		lm.setState(StateError)
		return err
	}

	lm.slotStore = slots.NewStore(ctx, lm.deviceManager, persister, lm.logger)
	lm.metrics.MappedSlots(liveSlots(lm.slotStore.GetAll()))

	if lm.config.MQTT.Enabled {
		lm.connectMQTT()
	}

	lm.relayControl = control.NewService(lm.slotStore, lm.events, lm.metrics, lm.logger)
	lm.healthChecker = health.NewChecker(lm.deviceManager, lm.config.Build.Version, lm.logger)

	go lm.wsHub.Run()

	if interval := lm.config.Health.MonitorInterval; interval > 0 {
		lm.monitor = health.NewMonitor(lm.healthChecker, interval, lm.metrics, lm.events, lm.logger)
		if err := lm.monitor.Start(); err != nil {
			lm.setState(StateError)
			return fmt.Errorf("failed to start health monitor: %w", err)
		}
	}

	lm.restServer = rest.NewServer(lm.config, lm, lm.logger, lm.wsHub)
	if err := lm.restServer.Start(lm.serverErr); err != nil {
		lm.setState(StateError)
		return fmt.Errorf("failed to start REST API: %w", err)
	}

	lm.setState(StateRunning)

	lm.logger.Info("System started successfully",
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.String("mapping_backend", lm.config.Relay.MappingBackend),
		zap.Bool("health_monitor", lm.monitor != nil),
		zap.Bool("mqtt", lm.mqtt != nil))

	return nil
}

func (lm *LifecycleManager) openPersister(ctx context.Context) (slots.Persister, error) {
	if lm.config.Relay.MappingBackend != config.BackendPostgres {
		lm.logger.Info("Using slot mapping file", zap.String("path", lm.config.Relay.SlotMappingFile))
		return slots.NewFilePersister(lm.config.Relay.SlotMappingFile), nil
	}

	db, err := storage.NewPostgresClient(ctx, lm.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	lm.storage = db
	lm.logger.Info("Using PostgreSQL slot mapping store",
		zap.String("host", lm.config.Database.Host),
		zap.String("database", lm.config.Database.Database))

	return storage.NewSlotMappingRepository(db, lm.config.RackIP), nil
}

// connectMQTT is best effort; relay control works without a broker.
func (lm *LifecycleManager) connectMQTT() {
	rack := lm.config.RackIP
	if rack == "" {
		rack = "default"
	}

	publisher, err := events.ConnectMQTT(lm.config.MQTT, rack, lm.logger)
	if err != nil {
		lm.logger.Warn("MQTT event publishing disabled", zap.Error(err))
		return
	}

	lm.mqtt = publisher
	lm.events.Add(publisher)
}

// Shutdown gracefully shuts down the system
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")
		lm.setState(StateStopping)

		if lm.monitor != nil {
			lm.monitor.Stop()
		}

		if lm.restServer != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, lm.config.Server.ShutdownTimeout)
			if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
				shutdownErr = fmt.Errorf("rest api shutdown failed: %w", err)
			}
			cancel()
		}

		lm.wsHub.Stop()

		if lm.mqtt != nil {
			lm.mqtt.Close()
		}
		if lm.storage != nil {
			lm.storage.Close()
		}

		lm.setState(StateStopped)
		close(lm.shutdownChan)
	})

	return shutdownErr
}

// Done is closed once Shutdown has finished.
func (lm *LifecycleManager) Done() <-chan struct{} {
	return lm.shutdownChan
}

// ServerErrors delivers a fatal listener error.
func (lm *LifecycleManager) ServerErrors() <-chan error {
	return lm.serverErr
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	if err := ValidateTransition(lm.currentState, state); err != nil {
		lm.logger.Warn("Unexpected state transition", zap.Error(err))
	}
	lm.currentState = state
}

func (lm *LifecycleManager) State() SystemState {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()
	return lm.currentState
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	status := interfaces.SystemStatus{
		State:          lm.State().String(),
		RackIP:         lm.config.RackIP,
		DeviceCount:    lm.deviceManager.Count(),
		MappingBackend: lm.config.Relay.MappingBackend,
		MonitorRunning: lm.monitor != nil && lm.monitor.IsRunning(),
	}
	if lm.slotStore != nil {
		status.MappedSlots = liveSlots(lm.slotStore.GetAll())
	}
	return status
}

func liveSlots(all map[string]string) int {
	n := 0
	for _, v := range all {
		if v != slots.Tombstone {
			n++
		}
	}
	return n
}

func (lm *LifecycleManager) Config() *config.Config          { return lm.config }
func (lm *LifecycleManager) DeviceManager() *devices.Manager { return lm.deviceManager }
func (lm *LifecycleManager) SlotStore() *slots.Store         { return lm.slotStore }
func (lm *LifecycleManager) RelayControl() *control.Service  { return lm.relayControl }
func (lm *LifecycleManager) HealthChecker() *health.Checker  { return lm.healthChecker }
func (lm *LifecycleManager) Events() events.Publisher        { return lm.events }
func (lm *LifecycleManager) Metrics() *metrics.Metrics       { return lm.metrics }
