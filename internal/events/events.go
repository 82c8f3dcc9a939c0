package events

import (
	"sync"
	"time"
)

// EventType defines the type of a relay event
type EventType string

const (
	EventTypeRelayState     EventType = "relay_state"
	EventTypeRelayPulse     EventType = "relay_pulse"
	EventTypeMappingChanged EventType = "mapping_changed"
	EventTypeDeviceHealth   EventType = "device_health"
)

// Event is what gets pushed to WebSocket clients and the MQTT broker.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type RelayStateData struct {
	Slot      int    `json:"slot"`
	Mapping   string `json:"mapping"`
	Port      int    `json:"port"`
	Operation string `json:"operation"`
	Status    string `json:"status,omitempty"`
	Seconds   int    `json:"seconds,omitempty"`
}

type MappingData struct {
	Action  string            `json:"action"`
	Slot    string            `json:"slot,omitempty"`
	Mapping string            `json:"mapping,omitempty"`
	Slots   map[string]string `json:"slots,omitempty"`
}

type DeviceHealthData struct {
	DeviceID  string `json:"device_id"`
	Host      string `json:"host"`
	IsHealthy bool   `json:"is_healthy"`
	Remarks   string `json:"remarks"`
}

// Publisher delivers events. Publish must not block the caller for long and
// never fails the operation that produced the event.
type Publisher interface {
	Publish(ev Event)
}

// NewEvent creates a new event with current timestamp
func NewEvent(eventType EventType, data any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewRelayStateEvent(slot int, mapping string, port int, operation, status string) Event {
	return NewEvent(EventTypeRelayState, RelayStateData{
		Slot:      slot,
		Mapping:   mapping,
		Port:      port,
		Operation: operation,
		Status:    status,
	})
}

func NewRelayPulseEvent(slot int, mapping string, port, seconds int) Event {
	return NewEvent(EventTypeRelayPulse, RelayStateData{
		Slot:      slot,
		Mapping:   mapping,
		Port:      port,
		Operation: "timed",
		Seconds:   seconds,
	})
}

func NewMappingEvent(action, slot, mapping string, slots map[string]string) Event {
	return NewEvent(EventTypeMappingChanged, MappingData{
		Action:  action,
		Slot:    slot,
		Mapping: mapping,
		Slots:   slots,
	})
}

func NewDeviceHealthEvent(deviceID, host string, healthy bool, remarks string) Event {
	return NewEvent(EventTypeDeviceHealth, DeviceHealthData{
		DeviceID:  deviceID,
		Host:      host,
		IsHealthy: healthy,
		Remarks:   remarks,
	})
}

// Fanout forwards every event to all attached publishers.
type Fanout struct {
	mu         sync.RWMutex
	publishers []Publisher
}

func NewFanout(publishers ...Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range publishers {
		f.Add(p)
	}
	return f
}

func (f *Fanout) Add(p Publisher) {
	if p == nil {
		return
	}
	f.mu.Lock()
	f.publishers = append(f.publishers, p)
	f.mu.Unlock()
}

func (f *Fanout) Publish(ev Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, p := range f.publishers {
		p.Publish(ev)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}
