package control

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/KevinKickass/RackRelay/internal/events"
	"github.com/KevinKickass/RackRelay/internal/metrics"
	"github.com/KevinKickass/RackRelay/internal/types"
	"go.uber.org/zap"
)

const (
	OperationOn  = "on"
	OperationOff = "off"
)

// SlotResolver turns a rack slot into the relay port it is mapped to.
type SlotResolver interface {
	Get(slot string) (string, error)
	Resolve(slot string) (types.Relay, error)
}

// Service drives relays addressed by rack slot.
type Service struct {
	slots     SlotResolver
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewService(slots SlotResolver, publisher events.Publisher, m *metrics.Metrics, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Service{
		slots:     slots,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// GetStatus reads the logical state of the relay mapped to slot.
func (s *Service) GetStatus(ctx context.Context, slot int) (types.Status, error) {
	relay, err := s.slots.Resolve(strconv.Itoa(slot))
	if err != nil {
		return types.StatusUnknown, err
	}

	start := time.Now()
	status, err := relay.Status(ctx)
	s.metrics.RelayCommand("status", time.Since(start), err)
	if err != nil {
		return types.StatusUnknown, err
	}

	return status, nil
}

// SetState switches the relay mapped to slot on or off and returns the
// state read back from the device. op is matched case-insensitively.
func (s *Service) SetState(ctx context.Context, slot int, op string) (types.Status, error) {
	op = strings.ToLower(op)
	if op != OperationOn && op != OperationOff {
		return types.StatusUnknown, fmt.Errorf("%w: unsupported operation %q", types.ErrInvalidOperation, op)
	}

	relay, err := s.slots.Resolve(strconv.Itoa(slot))
	if err != nil {
		return types.StatusUnknown, err
	}

	start := time.Now()
	if op == OperationOn {
		err = relay.On(ctx)
	} else {
		err = relay.Off(ctx)
	}
	s.metrics.RelayCommand(op, time.Since(start), err)

	if err != nil {
		s.logger.Error("Relay command failed",
			zap.Int("slot", slot),
			zap.String("operation", op),
			zap.Error(err))
		return types.StatusUnknown, fmt.Errorf("%w: Bad slot: %d: %w", types.ErrInvalidOperation, slot, err)
	}

	status, err := s.GetStatus(ctx, slot)
	if err != nil {
		return types.StatusUnknown, err
	}

	s.logger.Info("Relay state changed",
		zap.Int("slot", slot),
		zap.String("operation", op),
		zap.String("status", string(status)))
	s.publisher.Publish(events.NewRelayStateEvent(slot, s.mapping(slot), relay.Port(), op, string(status)))

	return status, nil
}

// Pulse closes the relay mapped to slot for seconds; the device reverts it.
func (s *Service) Pulse(ctx context.Context, slot, seconds int) error {
	relay, err := s.slots.Resolve(strconv.Itoa(slot))
	if err != nil {
		return err
	}

	start := time.Now()
	err = relay.Timed(ctx, seconds)
	s.metrics.RelayCommand("timed", time.Since(start), err)

	if err != nil {
		s.logger.Error("Relay pulse failed",
			zap.Int("slot", slot),
			zap.Int("seconds", seconds),
			zap.Error(err))
		return fmt.Errorf("%w: Bad slot: %d: %w", types.ErrInvalidOperation, slot, err)
	}

	s.logger.Info("Relay pulsed", zap.Int("slot", slot), zap.Int("seconds", seconds))
	s.publisher.Publish(events.NewRelayPulseEvent(slot, s.mapping(slot), relay.Port(), seconds))

	return nil
}

func (s *Service) mapping(slot int) string {
	m, err := s.slots.Get(strconv.Itoa(slot))
	if err != nil {
		return ""
	}
	return m
}
