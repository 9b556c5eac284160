// Package config loads the YAML configuration shared by the mmbts tools.
//
//	port: /dev/ttyUSB0
//	pulse:
//	  value: 1
//	  duration: 50ms
//	  interval: 500ms
//	  log: false
//	mqtt:
//	  broker: mqtt://localhost:1883/lab/mmbts/
//	  client_id: mmbts-bridge
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/samuelventura/go-mmbts"
	"github.com/samuelventura/go-mmbts/pulse"
)

type Config struct {
	Port  string         `yaml:"port"`
	Pulse pulse.Settings `yaml:"pulse"`
	MQTT  MQTT           `yaml:"mqtt"`
}

type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

func Default() *Config {
	return &Config{
		Port:  mmbts.DefaultPortName,
		Pulse: pulse.DefaultSettings(),
		MQTT: MQTT{
			Broker:   "mqtt://localhost:1883/mmbts/",
			ClientID: "mmbts-bridge",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	conf := Default()
	if path == "" {
		return conf, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, conf); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return conf, nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	return c.Pulse.Validate()
}
