package wallpanel

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultPollInterval = 10 * time.Second

// Listener receives a snapshot after every successful refresh.
type Listener interface {
	OnSnapshot(Snapshot)
}

type ListenerFunc func(Snapshot)

func (f ListenerFunc) OnSnapshot(s Snapshot) { f(s) }

// Poller periodically refreshes every registered device.
type Poller struct {
	registry *Registry
	interval time.Duration
	logger   log.FieldLogger

	mu        sync.RWMutex
	listeners []Listener

	// notified holds the state timestamp last sent for each device
	notifiedMu sync.Mutex
	notified   map[*Device]time.Time
}

func NewPoller(registry *Registry, interval time.Duration, logger log.FieldLogger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		registry: registry,
		interval: interval,
		logger:   logger,
		notified: make(map[*Device]time.Time),
	}
}

func (p *Poller) AddListener(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

// Run polls immediately and then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Infof("Polling %d device(s) every %s", p.registry.Len(), p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Poller stopped")
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll refreshes every device once, sequentially, and returns the number
// of successful refreshes. Listeners only hear about state they have not
// seen yet, so a refresh answered from the throttle cache is not resent.
func (p *Poller) Poll(ctx context.Context) int {
	ok := 0
	for _, d := range p.registry.Devices() {
		if ctx.Err() != nil {
			break
		}
		if !d.Refresh(ctx) {
			continue
		}
		ok++
		if snap := d.Snapshot(); p.isNew(d, snap) {
			p.notify(snap)
		}
	}
	return ok
}

func (p *Poller) isNew(d *Device, s Snapshot) bool {
	if s.LastUpdated == nil {
		return false
	}

	p.notifiedMu.Lock()
	defer p.notifiedMu.Unlock()
	if last, ok := p.notified[d]; ok && last.Equal(*s.LastUpdated) {
		return false
	}
	p.notified[d] = *s.LastUpdated
	return true
}

func (p *Poller) notify(s Snapshot) {
	p.mu.RLock()
	listeners := make([]Listener, len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.RUnlock()

	for _, l := range listeners {
		l.OnSnapshot(s)
	}
}
