package wallpanel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceConfigDefaults(t *testing.T) {
	cfg := DeviceConfig{Host: "10.0.0.5"}.WithDefaults()

	assert.Equal(t, "WallPanel", cfg.Name)
	assert.Equal(t, 2971, cfg.Port)
	assert.Equal(t, "http://10.0.0.5:2971/api/", cfg.BaseURL())
	assert.NoError(t, cfg.Validate())
}

func TestDeviceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DeviceConfig
		wantErr bool
	}{
		{"valid", DeviceConfig{Name: "Hall", Host: "panel.local", Port: 2971}, false},
		{"missing host", DeviceConfig{Name: "Hall", Port: 2971}, true},
		{"blank host", DeviceConfig{Name: "Hall", Host: "  ", Port: 2971}, true},
		{"port too low", DeviceConfig{Host: "panel.local", Port: -1}, true},
		{"port too high", DeviceConfig{Host: "panel.local", Port: 70000}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBaseURLIPv6(t *testing.T) {
	cfg := DeviceConfig{Host: "fe80::1", Port: 2971}
	assert.Equal(t, "http://[fe80::1]:2971/api/", cfg.BaseURL())
}

func TestEntityID(t *testing.T) {
	assert.Equal(t, "wallpanel.wallpanel", EntityID("WallPanel"))
	assert.Equal(t, "wallpanel.hall_panel", EntityID("Hall Panel"))
	assert.Equal(t, "wallpanel.kitchen_2", EntityID("  Kitchen #2!"))
	assert.Equal(t, "wallpanel.wallpanel", EntityID("***"))
}
