// Package store persists the list of configured wall panels.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"wallpanel/pkg/wallpanel"
)

const (
	bucket     = "wallpanel"
	devicesKey = "devices"
)

var (
	ErrNotFound        = errors.New("key not found")
	ErrDuplicateDevice = errors.New("device already configured")
)

type Store struct {
	db     *bolt.DB
	logger log.FieldLogger
}

// NewStore opens the store on db. When no device list has been saved yet,
// defaults is written as the initial list.
func NewStore(db *bolt.DB, defaults []wallpanel.DeviceConfig, logger log.FieldLogger) (*Store, error) {
	st := Store{db: db, logger: logger}

	if err := st.setDefaults(defaults); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) setDefaults(defaults []wallpanel.DeviceConfig) error {
	if _, err := s.Devices(); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	s.logger.Infof("Seeding device list with %d configured device(s)", len(defaults))
	return s.SetDevices(defaults)
}

// SetDevices replaces the device list. Every entry is validated first.
func (s *Store) SetDevices(devices []wallpanel.DeviceConfig) error {
	cleaned := make([]wallpanel.DeviceConfig, 0, len(devices))
	for _, d := range devices {
		d = d.WithDefaults()
		if err := d.Validate(); err != nil {
			return err
		}
		cleaned = append(cleaned, d)
	}

	value, err := json.Marshal(cleaned)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(devicesKey), value)
	})
}

// Devices returns the saved device list.
func (s *Store) Devices() ([]wallpanel.DeviceConfig, error) {
	var devices []wallpanel.DeviceConfig

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s: %w", bucket, ErrNotFound)
		}

		value := b.Get([]byte(devicesKey))
		if value == nil {
			return fmt.Errorf("%s: %w", devicesKey, ErrNotFound)
		}

		return json.Unmarshal(value, &devices)
	})

	return devices, err
}

// AddDevice appends a device, rejecting a second device on the same
// host and port.
func (s *Store) AddDevice(cfg wallpanel.DeviceConfig) (wallpanel.DeviceConfig, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	devices, err := s.Devices()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return cfg, err
	}

	for _, d := range devices {
		if d.Address() == cfg.Address() {
			return cfg, fmt.Errorf("%w: %s", ErrDuplicateDevice, cfg.Address())
		}
	}

	if err := s.SetDevices(append(devices, cfg)); err != nil {
		return cfg, err
	}
	s.logger.Infof("Added device %s at %s", cfg.Name, cfg.Address())
	return cfg, nil
}
