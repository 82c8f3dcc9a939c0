package slots

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/KevinKickass/RackRelay/internal/types"
	"go.uber.org/zap"
)

// Tombstone marks a slot whose mapping was removed. The key stays in the document.
const Tombstone = "N/A"

// DeviceRegistry is the read-only view of the rack the store validates against.
type DeviceRegistry interface {
	Devices() []types.RelayDevice
	Device(deviceID string) (types.RelayDevice, bool)
	DeviceAt(ordinal int) (types.RelayDevice, bool)
}

// Persister stores the complete mapping document.
type Persister interface {
	Load(ctx context.Context) (*types.SlotMappings, error)
	Save(ctx context.Context, doc *types.SlotMappings) error
}

// Store maps logical rack slots to device:port addresses.
//
// Every mutation runs validate, mutate and persist under one lock and
// rewrites the whole document. When Save fails the in-memory state is
// ahead of storage and the error is returned to the caller.
type Store struct {
	mu        sync.RWMutex
	slots     map[string]string
	registry  DeviceRegistry
	persister Persister
	logger    *zap.Logger
}

// NewStore loads the persisted mappings. A missing, unreadable or empty
// document is replaced by the default 1:1 assignment.
func NewStore(ctx context.Context, registry DeviceRegistry, persister Persister, logger *zap.Logger) *Store {
	s := &Store{
		slots:     make(map[string]string),
		registry:  registry,
		persister: persister,
		logger:    logger,
	}

	doc, err := persister.Load(ctx)
	if err != nil {
		logger.Error("Could not process slot mappings, using default values", zap.Error(err))
	} else if doc != nil && len(doc.Slots) > 0 {
		for k, v := range doc.Slots {
			s.slots[k] = v
		}
		logger.Info("Slot mappings loaded", zap.Int("slots", len(s.slots)))
		return s
	}

	s.slots = DefaultMappings(registry.Devices())
	logger.Info("Initialized default slot mappings", zap.Int("slots", len(s.slots)))

	if err := s.persist(ctx); err != nil {
		logger.Warn("Could not persist default slot mappings", zap.Error(err))
	}

	return s
}

// DefaultMappings assigns slots 1..N to every port of every device, in
// registry order and then port order.
func DefaultMappings(devices []types.RelayDevice) map[string]string {
	mappings := make(map[string]string)
	slot := 1
	for _, device := range devices {
		for _, relay := range device.Relays() {
			mappings[strconv.Itoa(slot)] = fmt.Sprintf("%s:%d", device.DeviceID(), relay.Port())
			slot++
		}
	}
	return mappings
}

// GetAll returns every mapping, tombstones included.
func (s *Store) GetAll() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Get returns the live mapping of slot.
func (s *Store) Get(slot string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mapping, ok := s.slots[slot]
	if !ok || mapping == Tombstone {
		s.logger.Warn("Could not locate mapping for slot", zap.String("slot", slot))
		return "", fmt.Errorf("%w: slot %s", types.ErrSlotNotMapped, slot)
	}
	return mapping, nil
}

// SetAll replaces the whole mapping set. Every entry is validated first; on
// the first invalid one the current state is written back unchanged and
// ErrInvalidMapping is returned.
func (s *Store) SetAll(ctx context.Context, mappings map[string]string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slot := range sortedKeys(mappings) {
		if err := s.validate(mappings[slot]); err != nil {
			s.logger.Error("Invalid mapping for slot",
				zap.String("slot", slot),
				zap.String("mapping", mappings[slot]),
				zap.Error(err))
			// The unchanged state is written back; a failure here is logged by persist.
			_ = s.persist(ctx)
			return nil, fmt.Errorf("%w: slot %s: %s", types.ErrInvalidMapping, slot, mappings[slot])
		}
	}

	s.logger.Info("Setting new slot mappings", zap.Any("mappings", mappings))

	s.slots = make(map[string]string, len(mappings))
	for k, v := range mappings {
		s.slots[k] = v
	}

	if err := s.persist(ctx); err != nil {
		return nil, err
	}

	return s.snapshot(), nil
}

// Set validates mapping and assigns it to slot. A prior mapping is
// tombstoned and persisted before the new one is written.
func (s *Store) Set(ctx context.Context, slot, mapping string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(mapping); err != nil {
		s.logger.Error("Invalid mapping for slot",
			zap.String("slot", slot),
			zap.String("mapping", mapping),
			zap.Error(err))
		_ = s.persist(ctx)
		return nil, fmt.Errorf("%w: slot %s: %s", types.ErrInvalidMapping, slot, mapping)
	}

	if _, ok := s.slots[slot]; ok {
		s.slots[slot] = Tombstone
		if err := s.persist(ctx); err != nil {
			return nil, err
		}
	}

	s.slots[slot] = mapping
	if err := s.persist(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("Slot mapping updated", zap.String("slot", slot), zap.String("mapping", mapping))
	return s.snapshot(), nil
}

// Remove tombstones the mapping of slot.
func (s *Store) Remove(ctx context.Context, slot string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slots[slot]; !ok {
		return nil, fmt.Errorf("%w: slot %s", types.ErrSlotNotMapped, slot)
	}

	s.slots[slot] = Tombstone
	if err := s.persist(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("Slot mapping removed", zap.String("slot", slot))
	return s.snapshot(), nil
}

// RemoveAll clears every mapping. Unlike Remove, no tombstones are kept.
func (s *Store) RemoveAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots = make(map[string]string)
	if err := s.persist(ctx); err != nil {
		return err
	}

	s.logger.Info("Slot mappings have been removed")
	return nil
}

// Resolve returns the relay port the slot is mapped to.
func (s *Store) Resolve(slot string) (types.Relay, error) {
	mapping, err := s.Get(slot)
	if err != nil {
		return nil, err
	}

	device, port, err := s.lookup(mapping)
	if err != nil {
		return nil, fmt.Errorf("%w: slot %s: %v", types.ErrInvalidMapping, slot, err)
	}

	return device.Relay(port), nil
}

// validate checks "device:port" against the registry.
func (s *Store) validate(mapping string) error {
	_, _, err := s.lookup(mapping)
	return err
}

// lookup splits "device:port" and finds the device by ID, falling back to
// its 1-based position in the registry. port must be within 1..maxPort.
func (s *Store) lookup(mapping string) (types.RelayDevice, int, error) {
	parts := strings.Split(mapping, ":")
	if len(parts) != 2 {
		return nil, 0, fmt.Errorf("mapping %q is not device:port", mapping)
	}

	device, ok := s.registry.Device(parts[0])
	if !ok {
		ordinal, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, 0, fmt.Errorf("unknown device %q", parts[0])
		}
		device, ok = s.registry.DeviceAt(ordinal)
		if !ok {
			return nil, 0, fmt.Errorf("no device at position %d", ordinal)
		}
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, 0, fmt.Errorf("invalid port %q", parts[1])
	}
	if port < 1 || port > device.MaxPort() {
		return nil, 0, fmt.Errorf("port %d out of range 1..%d for device %s", port, device.MaxPort(), device.DeviceID())
	}

	return device, port, nil
}

func (s *Store) persist(ctx context.Context) error {
	if err := s.persister.Save(ctx, &types.SlotMappings{Slots: s.snapshot()}); err != nil {
		s.logger.Error("Could not update slot mappings", zap.Error(err))
		return fmt.Errorf("persist slot mappings: %w", err)
	}
	return nil
}

func (s *Store) snapshot() map[string]string {
	out := make(map[string]string, len(s.slots))
	for k, v := range s.slots {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
