package devices

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/KevinKickass/RackRelay/internal/types"
	"github.com/KevinKickass/RackRelay/internal/webrelay"
	"go.uber.org/zap"
)

// Constructor builds one relay device family.
type Constructor func(cfg types.RelayDeviceConfig, readTimeout time.Duration, logger *zap.Logger) (types.RelayDevice, error)

// Builder turns a device type tag into a RelayDevice. New hardware families
// are added with Register.
type Builder struct {
	readTimeout  time.Duration
	constructors map[string]Constructor
	mu           sync.RWMutex
	logger       *zap.Logger
}

func NewBuilder(readTimeout time.Duration, logger *zap.Logger) *Builder {
	b := &Builder{
		readTimeout:  readTimeout,
		constructors: make(map[string]Constructor),
		logger:       logger,
	}

	b.Register(webrelay.TypeXWR4R1, func(cfg types.RelayDeviceConfig, timeout time.Duration, logger *zap.Logger) (types.RelayDevice, error) {
		return webrelay.NewDevice(cfg, timeout, logger), nil
	})

	return b
}

// Register adds or replaces the constructor for deviceType.
func (b *Builder) Register(deviceType string, ctor Constructor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.constructors[deviceType] = ctor
}

// Types returns the registered type tags, sorted.
func (b *Builder) Types() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tags := make([]string, 0, len(b.constructors))
	for tag := range b.constructors {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Build constructs the device described by cfg.
func (b *Builder) Build(cfg types.RelayDeviceConfig) (types.RelayDevice, error) {
	b.mu.RLock()
	ctor, ok := b.constructors[cfg.Type]
	b.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: cannot identify relay device type %q (known: %v)",
			types.ErrInvalidConfiguration, cfg.Type, b.Types())
	}

	device, err := ctor(cfg, b.readTimeout, b.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s: %v", types.ErrInvalidConfiguration, cfg.DeviceID, err)
	}

	return device, nil
}
