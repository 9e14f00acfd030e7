package wallpanel

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) OnSnapshot(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func TestPollerPoll(t *testing.T) {
	reg := NewRegistry()
	okPanel, okDevice, _ := newPanel(t, "Hall")
	badPanel, badDevice, _ := newPanel(t, "Kitchen")
	badPanel.SetFailStatus(http.StatusInternalServerError)
	reg.Add(okDevice)
	reg.Add(badDevice)

	rec := &recorder{}
	p := NewPoller(reg, time.Minute, testLogger())
	p.AddListener(rec)

	assert.Equal(t, 1, p.Poll(context.Background()))
	assert.Equal(t, 1, okPanel.StateRequests())
	assert.Equal(t, 1, badPanel.StateRequests())

	require.Equal(t, 1, rec.len())
	assert.Equal(t, "wallpanel.hall", rec.snaps[0].ID)
	assert.Equal(t, StatusOn, rec.snaps[0].Status)
}

func TestPollerListenerFunc(t *testing.T) {
	reg := NewRegistry()
	_, d, _ := newPanel(t, "Hall")
	reg.Add(d)

	var got []string
	p := NewPoller(reg, time.Minute, testLogger())
	p.AddListener(ListenerFunc(func(s Snapshot) { got = append(got, s.ID) }))

	p.Poll(context.Background())
	assert.Equal(t, []string{"wallpanel.hall"}, got)
}

func TestPollerRunStopsOnCancel(t *testing.T) {
	reg := NewRegistry()
	panel, d, _ := newPanel(t, "Hall")
	reg.Add(d)

	rec := &recorder{}
	p := NewPoller(reg, time.Hour, testLogger())
	p.AddListener(rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
	assert.Equal(t, 1, panel.StateRequests())
}

func TestNewPollerDefaultInterval(t *testing.T) {
	p := NewPoller(NewRegistry(), 0, testLogger())
	assert.Equal(t, DefaultPollInterval, p.interval)
}

func TestPollerSkipsCachedRefresh(t *testing.T) {
	reg := NewRegistry()
	panel, d, clock := newPanel(t, "Hall")
	reg.Add(d)

	rec := &recorder{}
	p := NewPoller(reg, time.Second, testLogger())
	p.AddListener(rec)

	assert.Equal(t, 1, p.Poll(context.Background()))
	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, p.Poll(context.Background()), "cached refresh still counts as success")

	assert.Equal(t, 1, panel.StateRequests())
	assert.Equal(t, 1, rec.len())

	clock.Advance(MinTimeBetweenUpdates)
	p.Poll(context.Background())
	assert.Equal(t, 2, panel.StateRequests())
	assert.Equal(t, 2, rec.len())
}
