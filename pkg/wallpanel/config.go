package wallpanel

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

const (
	Domain      = "wallpanel"
	DefaultName = "WallPanel"
	DefaultPort = 2971
)

// DeviceConfig is the configuration of a single wall panel.
type DeviceConfig struct {
	Name string `json:"name" yaml:"name"`
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// WithDefaults fills in the default name and port.
func (c DeviceConfig) WithDefaults() DeviceConfig {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = DefaultName
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	return c
}

func (c DeviceConfig) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidConfig)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	return nil
}

// Address returns host:port.
func (c DeviceConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BaseURL returns the root of the device API, always ending in a slash.
func (c DeviceConfig) BaseURL() string {
	return "http://" + c.Address() + "/api/"
}

// EntityID derives the host-facing identifier of a device from its name,
// e.g. "Hall Panel" becomes "wallpanel.hall_panel".
func EntityID(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}

	slug := strings.TrimSuffix(b.String(), "_")
	if slug == "" {
		slug = Domain
	}
	return Domain + "." + slug
}
