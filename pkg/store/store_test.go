package store

import (
	"io"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"wallpanel/pkg/wallpanel"
)

func openDB(t *testing.T) *bolt.DB {
	t.Helper()

	db, err := bolt.Open(filepath.Join(t.TempDir(), "wallpanel.db"), 0600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() log.FieldLogger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestNewStoreSeedsDefaults(t *testing.T) {
	db := openDB(t)

	st, err := NewStore(db, []wallpanel.DeviceConfig{{Host: "10.0.0.5"}}, testLogger())
	require.NoError(t, err)

	devices, err := st.Devices()
	require.NoError(t, err)
	assert.Equal(t, []wallpanel.DeviceConfig{{Name: "WallPanel", Host: "10.0.0.5", Port: 2971}}, devices)

	// A second open keeps the saved list.
	st, err = NewStore(db, []wallpanel.DeviceConfig{{Host: "10.0.0.9"}}, testLogger())
	require.NoError(t, err)
	devices, err = st.Devices()
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "10.0.0.5", devices[0].Host)
}

func TestNewStoreEmptyDefaults(t *testing.T) {
	st, err := NewStore(openDB(t), nil, testLogger())
	require.NoError(t, err)

	devices, err := st.Devices()
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestNewStoreInvalidDefaults(t *testing.T) {
	_, err := NewStore(openDB(t), []wallpanel.DeviceConfig{{Name: "No host"}}, testLogger())
	assert.ErrorIs(t, err, wallpanel.ErrInvalidConfig)
}

func TestAddDevice(t *testing.T) {
	st, err := NewStore(openDB(t), nil, testLogger())
	require.NoError(t, err)

	cfg, err := st.AddDevice(wallpanel.DeviceConfig{Name: "Hall", Host: "10.0.0.5"})
	require.NoError(t, err)
	assert.Equal(t, 2971, cfg.Port)

	_, err = st.AddDevice(wallpanel.DeviceConfig{Name: "Kitchen", Host: "10.0.0.6", Port: 8080})
	require.NoError(t, err)

	_, err = st.AddDevice(wallpanel.DeviceConfig{Name: "Copy", Host: "10.0.0.5", Port: 2971})
	assert.ErrorIs(t, err, ErrDuplicateDevice)

	_, err = st.AddDevice(wallpanel.DeviceConfig{Name: "Bad"})
	assert.ErrorIs(t, err, wallpanel.ErrInvalidConfig)

	devices, err := st.Devices()
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "Hall", devices[0].Name)
	assert.Equal(t, "Kitchen", devices[1].Name)
}

func TestDevicesMissing(t *testing.T) {
	st := &Store{db: openDB(t), logger: testLogger()}

	_, err := st.Devices()
	assert.ErrorIs(t, err, ErrNotFound)
}
