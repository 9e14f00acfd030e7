// Package config loads the wallpanel service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"wallpanel/pkg/wallpanel"
)

type Config struct {
	HTTP         HTTPConfig               `yaml:"http"`
	MQTT         MQTTConfig               `yaml:"mqtt"`
	Logging      LoggingConfig            `yaml:"logging"`
	Database     DatabaseConfig           `yaml:"database"`
	PollInterval Duration                 `yaml:"poll_interval"`
	Devices      []wallpanel.DeviceConfig `yaml:"devices"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type MQTTConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Broker    string `yaml:"broker"` // e.g. tcp://localhost:1883
	ClientID  string `yaml:"client_id"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	TopicRoot string `yaml:"topic_root"`
	QoS       byte   `yaml:"qos"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Duration accepts Go duration strings such as "10s" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8090},
		MQTT: MQTTConfig{
			Broker:    "tcp://localhost:1883",
			ClientID:  "wallpanel",
			TopicRoot: "wallpanel",
		},
		Logging:      LoggingConfig{Level: "info", Format: "text"},
		Database:     DatabaseConfig{Path: "wallpanel.db"},
		PollInterval: Duration(wallpanel.DefaultPollInterval),
	}
}

// Load reads path on top of the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	for i := range cfg.Devices {
		cfg.Devices[i] = cfg.Devices[i].WithDefaults()
	}

	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("WALLPANEL_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid WALLPANEL_HTTP_PORT: %w", err)
		}
		c.HTTP.Port = port
	}
	if v := os.Getenv("WALLPANEL_DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("WALLPANEL_MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
		c.MQTT.Enabled = true
	}
	if v := os.Getenv("WALLPANEL_MQTT_USERNAME"); v != "" {
		c.MQTT.Username = v
	}
	if v := os.Getenv("WALLPANEL_MQTT_PASSWORD"); v != "" {
		c.MQTT.Password = v
	}
	if v := os.Getenv("WALLPANEL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

func (c Config) Validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}
	if time.Duration(c.PollInterval) < wallpanel.MinTimeBetweenUpdates {
		return fmt.Errorf("poll_interval must be at least %s", wallpanel.MinTimeBetweenUpdates)
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt broker cannot be empty")
		}
		if strings.Contains(c.MQTT.TopicRoot, "+") || strings.Contains(c.MQTT.TopicRoot, "#") {
			return fmt.Errorf("mqtt topic_root cannot contain wildcards")
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("invalid mqtt qos: %d", c.MQTT.QoS)
		}
	}
	for i, d := range c.Devices {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("devices[%d]: %w", i, err)
		}
	}
	return nil
}
