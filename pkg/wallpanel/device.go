package wallpanel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// MinTimeBetweenUpdates is the minimum spacing between two real state
// fetches of the same device.
const MinTimeBetweenUpdates = 5 * time.Second

// Device is a wall panel reachable over HTTP.
type Device struct {
	config   DeviceConfig
	id       string
	uniqueID string
	client   *Client
	logger   log.FieldLogger
	now      func() time.Time

	// refreshMu serialises Refresh and guards the throttle fields
	refreshMu   sync.Mutex
	polled      bool
	lastPoll    time.Time
	lastSuccess bool

	stateMu sync.RWMutex
	state   State
}

func NewDevice(cfg DeviceConfig, logger log.FieldLogger) (*Device, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL()
	d := Device{
		config:   cfg,
		id:       EntityID(cfg.Name),
		uniqueID: uuid.NewSHA1(uuid.NameSpaceURL, []byte(baseURL)).String(),
		client:   NewClient(baseURL, logger),
		logger:   logger,
		now:      time.Now,
	}

	return &d, nil
}

func (d *Device) ID() string { return d.id }

func (d *Device) UniqueID() string { return d.uniqueID }

func (d *Device) Name() string { return d.config.Name }

func (d *Device) BaseURL() string { return d.client.BaseURL() }

func (d *Device) State() State {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.state
}

func (d *Device) Status() Status {
	return d.State().Status
}

func (d *Device) Attributes() Attributes {
	return d.State().Attributes
}

// Refresh polls the device state. Only the first call in any
// MinTimeBetweenUpdates window reaches the device; the others return the
// result of that call. A failed poll leaves the previous state untouched.
func (d *Device) Refresh(ctx context.Context) bool {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	now := d.now()
	if d.polled && now.Sub(d.lastPoll) < MinTimeBetweenUpdates {
		return d.lastSuccess
	}

	d.polled = true
	d.lastPoll = now
	d.lastSuccess = d.update(ctx)
	return d.lastSuccess
}

func (d *Device) update(ctx context.Context) bool {
	payload, err := d.client.FetchState(ctx)
	if err != nil {
		d.logger.Warnf("Failed to load state: %v", err)
		return false
	}

	attrs, err := parseState(payload)
	if err != nil {
		d.logger.Warnf("Ignoring state: %v", err)
		return false
	}

	status := StatusOff
	if attrs.ScreenOn {
		status = StatusOn
	}

	d.stateMu.Lock()
	d.state = State{
		Status:     status,
		Attributes: attrs,
		Updated:    d.now(),
	}
	d.stateMu.Unlock()

	d.logger.Debugf("State: %s %+v", status, attrs)
	return true
}

// LoadStartURL relaunches the panel on its configured start URL.
func (d *Device) LoadStartURL(ctx context.Context) error {
	return d.send(ctx, RelaunchCommand())
}

func (d *Device) LoadURL(ctx context.Context, url string) error {
	return d.send(ctx, URLCommand(url))
}

func (d *Device) SetBrightness(ctx context.Context, brightness int) error {
	return d.send(ctx, BrightnessCommand(brightness))
}

// PlaySound plays the audio file at url.
func (d *Device) PlaySound(ctx context.Context, url string) error {
	return d.send(ctx, AudioCommand(url))
}

// Speak reads message out loud using the panel's text-to-speech.
func (d *Device) Speak(ctx context.Context, message string) error {
	return d.send(ctx, SpeakCommand(message))
}

func (d *Device) send(ctx context.Context, cmd Command) error {
	payload, err := d.client.SendCommand(ctx, cmd)
	if err != nil {
		d.logger.Warnf("Failed to send %s: %v", cmd, err)
		return err
	}

	if payload.IsError() {
		d.logger.Warnf("Device rejected %s: %s", cmd, payload.StatusText())
		return fmt.Errorf("%w: %s", ErrCommandRejected, payload.StatusText())
	}
	return nil
}

// Snapshot is a read-only copy of a device's identity and state.
type Snapshot struct {
	ID          string      `json:"entity_id"`
	UniqueID    string      `json:"unique_id"`
	Name        string      `json:"name"`
	BaseURL     string      `json:"base_url"`
	Status      Status      `json:"state"`
	Attributes  *Attributes `json:"attributes,omitempty"`
	LastUpdated *time.Time  `json:"last_updated,omitempty"`
}

func (d *Device) Snapshot() Snapshot {
	st := d.State()

	snap := Snapshot{
		ID:       d.ID(),
		UniqueID: d.uniqueID,
		Name:     d.config.Name,
		BaseURL:  d.BaseURL(),
		Status:   st.Status,
	}
	if st.Known() {
		attrs := st.Attributes
		updated := st.Updated
		snap.Attributes = &attrs
		snap.LastUpdated = &updated
	}
	return snap
}
