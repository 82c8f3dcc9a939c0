package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func TestFanout(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	f := NewFanout(a, nil)
	f.Add(b)

	f.Publish(NewRelayStateEvent(3, "1:3", 3, "on", "ON"))

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, EventTypeRelayState, a.events[0].Type)
	assert.Equal(t, RelayStateData{Slot: 3, Mapping: "1:3", Port: 3, Operation: "on", Status: "ON"}, a.events[0].Data)
}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeMQTT struct {
	mu           sync.Mutex
	connected    bool
	published    []published
	disconnected bool
}

func (f *fakeMQTT) IsConnected() bool { return f.connected }

func (f *fakeMQTT) Publish(topic string, _ byte, retained bool, payload interface{}) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = p
	case string:
		data = []byte(p)
	}
	f.published = append(f.published, published{topic: topic, retained: retained, payload: data})
	return &fakeToken{}
}

func (f *fakeMQTT) Disconnect(uint) { f.disconnected = true }

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &fakeMQTT{connected: true}
	p := &MQTTPublisher{client: client, prefix: "rackrelay", rack: "10.0.0.5", qos: 1, timeout: time.Second, logger: zap.NewNop()}

	p.Publish(NewRelayPulseEvent(7, "2:3", 3, 5))

	require.Len(t, client.published, 1)
	assert.Equal(t, "rackrelay/10.0.0.5/events/relay_pulse", client.published[0].topic)
	assert.False(t, client.published[0].retained)

	var got map[string]any
	require.NoError(t, json.Unmarshal(client.published[0].payload, &got))
	assert.Equal(t, "relay_pulse", got["type"])
	data := got["data"].(map[string]any)
	assert.Equal(t, 7.0, data["slot"])
	assert.Equal(t, 5.0, data["seconds"])
}

func TestMQTTPublisher_Close(t *testing.T) {
	client := &fakeMQTT{connected: true}
	p := &MQTTPublisher{client: client, prefix: "rackrelay", rack: "r1", qos: 1, timeout: time.Second, logger: zap.NewNop()}

	p.Close()

	require.Len(t, client.published, 1)
	assert.Equal(t, "rackrelay/r1/status", client.published[0].topic)
	assert.True(t, client.published[0].retained)
	assert.Contains(t, string(client.published[0].payload), `"status":"offline"`)
	assert.True(t, client.disconnected)
}
