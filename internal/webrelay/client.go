package webrelay

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KevinKickass/RackRelay/internal/types"
)

// Client talks to the stateFull.xml endpoint of one relay unit.
type Client struct {
	host       string
	port       int
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(host string, port int, timeout time.Duration) *Client {
	return &Client{
		host:    host,
		port:    port,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Address returns host:port of the unit.
func (c *Client) Address() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// Timeout returns the read timeout applied to every request.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// URL builds the request URL, keeping the query parameters in the given order.
func (c *Client) URL(params []Param) string {
	var b strings.Builder
	b.WriteString("http://")
	b.WriteString(c.Address())
	b.WriteString(StatePath)
	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}
	return b.String()
}

// Get sends one GET to stateFull.xml and returns the body.
// No response within the timeout yields ErrDeviceUnreachable; an HTTP error
// status yields a *types.DeviceHTTPError (ErrBadDevice).
func (c *Client) Get(ctx context.Context, params []Param, header http.Header) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(params), nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", c.Address(), err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrDeviceUnreachable, c.Address(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &types.DeviceHTTPError{
			Host:       c.Address(),
			StatusCode: resp.StatusCode,
			Reason:     http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", types.ErrDeviceUnreachable, c.Address(), err)
	}

	return body, nil
}
