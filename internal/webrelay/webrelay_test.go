package webrelay

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/KevinKickass/RackRelay/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeUnit serves a fixed stateFull.xml and records every query it receives.
type fakeUnit struct {
	mu      sync.Mutex
	body    string
	status  int
	queries []string
}

func (f *fakeUnit) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, r.URL.RawQuery)
	if r.URL.Path != StatePath {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(f.body))
}

func (f *fakeUnit) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return ""
	}
	return f.queries[len(f.queries)-1]
}

func newTestDevice(t *testing.T, h http.Handler, maxPort int, invert []bool, timeout time.Duration) *Device {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return NewDevice(types.RelayDeviceConfig{
		Host:         host,
		Type:         TypeXWR4R1,
		Port:         port,
		MaxPort:      maxPort,
		DeviceID:     "1",
		InvertRelays: invert,
	}, timeout, zap.NewNop())
}

const twoPortState = `<?xml version="1.0" encoding="utf-8"?>
<datavalues><relay1state>1</relay1state><relay2state>0</relay2state></datavalues>`

func TestNewDevice_DefaultsToNonInverted(t *testing.T) {
	d := NewDevice(types.RelayDeviceConfig{Host: "10.0.0.1", Type: TypeXWR4R1, Port: 80, MaxPort: 4, DeviceID: "1"}, time.Second, zap.NewNop())

	require.Len(t, d.Relays(), 4)
	for i, r := range d.Relays() {
		assert.False(t, r.IsInverted(), "port %d", i+1)
		assert.Equal(t, i+1, r.Port())
	}
}

func TestNewDevice_ShortInvertList(t *testing.T) {
	d := NewDevice(types.RelayDeviceConfig{
		Host: "10.0.0.1", Type: TypeXWR4R1, Port: 80, MaxPort: 4, DeviceID: "1",
		InvertRelays: []bool{false, true},
	}, time.Second, zap.NewNop())

	assert.False(t, d.Relay(1).IsInverted())
	assert.True(t, d.Relay(2).IsInverted())
	assert.False(t, d.Relay(3).IsInverted())
	assert.False(t, d.Relay(4).IsInverted())
}

func TestDevice_Accessors(t *testing.T) {
	d := NewDevice(types.RelayDeviceConfig{Host: "rack-7", Type: TypeXWR4R1, Port: 8080, MaxPort: 2, DeviceID: "A"}, 3*time.Second, zap.NewNop())

	assert.Equal(t, "A", d.DeviceID())
	assert.Equal(t, "rack-7", d.Host())
	assert.Equal(t, 8080, d.Port())
	assert.Equal(t, 2, d.MaxPort())
	assert.Equal(t, TypeXWR4R1, d.Type())
	assert.Equal(t, 3*time.Second, d.Client.Timeout())
}

func TestNewDevice_PerDeviceTimeout(t *testing.T) {
	d := NewDevice(types.RelayDeviceConfig{
		Host: "h", Type: TypeXWR4R1, Port: 80, MaxPort: 1, DeviceID: "1", ReadTimeout: 250 * time.Millisecond,
	}, 5*time.Second, zap.NewNop())

	assert.Equal(t, 250*time.Millisecond, d.Client.Timeout())
}

func TestDevice_Status(t *testing.T) {
	unit := &fakeUnit{body: twoPortState}
	d := newTestDevice(t, unit, 2, nil, time.Second)

	statuses, err := d.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.Status{types.StatusOn, types.StatusOff}, statuses)
	assert.Equal(t, "", unit.lastQuery())
}

func TestDevice_StatusAppliesPolarity(t *testing.T) {
	unit := &fakeUnit{body: twoPortState}
	d := newTestDevice(t, unit, 2, []bool{true, false}, time.Second)

	statuses, err := d.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.Status{types.StatusOff, types.StatusOff}, statuses)
}

func TestDevice_StatusIgnoresExtraValues(t *testing.T) {
	unit := &fakeUnit{body: `<datavalues>
  <relay1state>0</relay1state>
  <relay2state>1</relay2state>
  <input1state>1</input1state>
  <vin>24.1</vin>
</datavalues>`}
	d := newTestDevice(t, unit, 2, nil, time.Second)

	statuses, err := d.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.Status{types.StatusOff, types.StatusOn}, statuses)
}

func TestDevice_StatusBadDevice(t *testing.T) {
	tests := []struct {
		name string
		unit *fakeUnit
	}{
		{name: "http 500", unit: &fakeUnit{status: http.StatusInternalServerError}},
		{name: "malformed xml", unit: &fakeUnit{body: "<datavalues><relay1state>1</relay1"}},
		{name: "missing datavalues", unit: &fakeUnit{body: "<other><relay1state>1</relay1state></other>"}},
		{name: "short response", unit: &fakeUnit{body: "<datavalues><relay1state>1</relay1state></datavalues>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t, tt.unit, 2, nil, time.Second)

			_, err := d.Status(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrBadDevice)
			assert.NotErrorIs(t, err, types.ErrDeviceUnreachable)
		})
	}
}

func TestDevice_StatusHTTPErrorCarriesCode(t *testing.T) {
	d := newTestDevice(t, &fakeUnit{status: http.StatusInternalServerError}, 2, nil, time.Second)

	_, err := d.Status(context.Background())

	var httpErr *types.DeviceHTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.Equal(t, "Internal Server Error", httpErr.Reason)
}

func TestDevice_StatusTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	d := newTestDevice(t, slow, 2, nil, 50*time.Millisecond)

	_, err := d.Status(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrDeviceUnreachable)
	assert.NotErrorIs(t, err, types.ErrBadDevice)
}

func TestDevice_StatusConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host, portStr, _ := net.SplitHostPort(srv.Listener.Addr().String())
	srv.Close()
	port, _ := strconv.Atoi(portStr)

	d := NewDevice(types.RelayDeviceConfig{Host: host, Type: TypeXWR4R1, Port: port, MaxPort: 1, DeviceID: "1"}, time.Second, zap.NewNop())

	_, err := d.Status(context.Background())
	assert.ErrorIs(t, err, types.ErrDeviceUnreachable)
}

func TestPort_Commands(t *testing.T) {
	unit := &fakeUnit{body: twoPortState}
	d := newTestDevice(t, unit, 2, nil, time.Second)
	ctx := context.Background()

	require.NoError(t, d.Relay(1).On(ctx))
	assert.Equal(t, "relay1State=1", unit.lastQuery())

	require.NoError(t, d.Relay(2).Off(ctx))
	assert.Equal(t, "relay2State=0", unit.lastQuery())

	require.NoError(t, d.Relay(2).Timed(ctx, 5))
	assert.Equal(t, "relay2State=2&pulseTime2=5", unit.lastQuery())
}

func TestPort_InvertedSendsOppositeSignal(t *testing.T) {
	unit := &fakeUnit{body: twoPortState}
	d := newTestDevice(t, unit, 2, []bool{true, false}, time.Second)
	ctx := context.Background()

	require.NoError(t, d.Relay(1).On(ctx))
	invertedOn := unit.lastQuery()
	require.NoError(t, d.Relay(2).Off(ctx))
	plainOff := unit.lastQuery()

	assert.Equal(t, "relay1State=0", invertedOn)
	assert.Equal(t, "relay2State=0", plainOff)

	require.NoError(t, d.Relay(1).Off(ctx))
	assert.Equal(t, "relay1State=1", unit.lastQuery())
}

func TestPort_CommandBadDevice(t *testing.T) {
	d := newTestDevice(t, &fakeUnit{status: http.StatusServiceUnavailable}, 2, nil, time.Second)

	err := d.Relay(1).On(context.Background())
	assert.ErrorIs(t, err, types.ErrBadDevice)
}

func TestPort_Status(t *testing.T) {
	d := newTestDevice(t, &fakeUnit{body: twoPortState}, 2, nil, time.Second)

	s, err := d.Relay(2).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StatusOff, s)
}

func TestPort_PortStatus(t *testing.T) {
	p := &Port{port: 1, inverted: true}

	assert.Equal(t, types.StatusOff, p.PortStatus("0"))
	assert.Equal(t, types.StatusOn, p.PortStatus("1"))
	assert.Equal(t, types.StatusOn, p.PortStatus("yes"))
}
