package wallpanel

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"wallpanel/pkg/simulator"
)

func testLogger() log.FieldLogger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func configFor(t *testing.T, srv *httptest.Server, name string) DeviceConfig {
	t.Helper()
	addr := srv.Listener.Addr().(*net.TCPAddr)
	return DeviceConfig{Name: name, Host: addr.IP.String(), Port: addr.Port}
}

// newPanel starts a simulated panel and returns a device pointing at it.
func newPanel(t *testing.T, name string) (*simulator.Panel, *Device, *fakeClock) {
	t.Helper()

	panel := simulator.NewPanel("http://start.local/", testLogger())
	srv := httptest.NewServer(panel)
	t.Cleanup(srv.Close)

	d, clock := newTestDevice(t, configFor(t, srv, name))
	return panel, d, clock
}

func newTestDevice(t *testing.T, cfg DeviceConfig) (*Device, *fakeClock) {
	t.Helper()

	d, err := NewDevice(cfg, testLogger())
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	d.now = clock.Now
	return d, clock
}

// stateServer answers every state request with body and status.
func stateServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	calls := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

// unreachableConfig returns a config for an address nothing listens on.
func unreachableConfig(t *testing.T) DeviceConfig {
	t.Helper()

	srv := httptest.NewServer(http.NotFoundHandler())
	cfg := configFor(t, srv, "Gone")
	srv.Close()
	return cfg
}
