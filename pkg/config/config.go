// Package config loads bridge configuration. Sources are layered:
// defaults < YAML file < .env file < environment < CLI flags (applied by
// the caller after Load).
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/splattner/wled-bridge/pkg/wled"
)

const envPrefix = "WLED_BRIDGE"

var loadDotEnvOnce sync.Once

// loadDotEnv loads a .env file if present, without overriding variables
// already set in the environment.
func loadDotEnv() {
	loadDotEnvOnce.Do(func() {
		for _, f := range []string{".env", "configs/.env"} {
			if _, err := os.Stat(f); err == nil {
				_ = godotenv.Load(f)
				return
			}
		}
	})
}

// StaticDevice is one manually configured WLED device.
type StaticDevice struct {
	Host string `mapstructure:"host"`
	Name string `mapstructure:"name"`
}

// MQTTConfig holds the broker connection settings.
type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	ClientID string `mapstructure:"clientid"`
}

// Config is the full bridge configuration.
type Config struct {
	MQTT MQTTConfig `mapstructure:"mqtt"`

	TopicPrefix     string `mapstructure:"topicprefix"`
	DiscoveryPrefix string `mapstructure:"discoveryprefix"`

	Devices []StaticDevice `mapstructure:"devices"`

	PollInterval      time.Duration `mapstructure:"pollinterval"`
	PresetsInterval   time.Duration `mapstructure:"presetsinterval"`
	DiscoveryInterval time.Duration `mapstructure:"discoveryinterval"`

	DiscoveryEnabled bool `mapstructure:"discoveryenabled"`
	SocketEnabled    bool `mapstructure:"socketenabled"`
}

// Load reads configuration from the optional YAML file at path plus .env
// and environment variables. Callers apply CLI flag overrides and then call
// Validate.
func Load(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.clientid", "wled-bridge")
	v.SetDefault("topicprefix", "wled-bridge")
	v.SetDefault("discoveryprefix", "homeassistant")
	v.SetDefault("pollinterval", wled.DefaultPollInterval)
	v.SetDefault("presetsinterval", wled.DefaultPresetsInterval)
	v.SetDefault("discoveryinterval", 5*time.Minute)
	v.SetDefault("discoveryenabled", true)
	v.SetDefault("socketenabled", true)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for values the bridge cannot run with.
func (c *Config) Validate() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.PresetsInterval <= 0 {
		return fmt.Errorf("presets interval must be positive")
	}
	if c.DiscoveryEnabled && c.DiscoveryInterval <= 0 {
		return fmt.Errorf("discovery interval must be positive")
	}
	for _, dev := range c.Devices {
		if err := wled.ValidateHost(dev.Host); err != nil {
			return fmt.Errorf("device %q: %w", dev.Host, err)
		}
	}
	return nil
}
