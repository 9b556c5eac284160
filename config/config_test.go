package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelventura/go-mmbts"
)

func write(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "mmbts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	conf, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, mmbts.DefaultPortName, conf.Port)
	assert.Equal(t, byte(1), conf.Pulse.Value)
	assert.Equal(t, 50*time.Millisecond, conf.Pulse.Duration)
	assert.Equal(t, 500*time.Millisecond, conf.Pulse.Interval)
	assert.False(t, conf.Pulse.Log)
	assert.NoError(t, conf.Validate())
}

func TestLoadFile(t *testing.T) {
	path := write(t, `
port: COM3
pulse:
  value: 128
  duration: 100ms
  log: true
mqtt:
  broker: mqtt://broker:1883/lab/
`)
	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "COM3", conf.Port)
	assert.Equal(t, byte(128), conf.Pulse.Value)
	assert.Equal(t, 100*time.Millisecond, conf.Pulse.Duration)
	//not in file, keeps default
	assert.Equal(t, 500*time.Millisecond, conf.Pulse.Interval)
	assert.True(t, conf.Pulse.Log)
	assert.Equal(t, "mqtt://broker:1883/lab/", conf.MQTT.Broker)
	assert.Equal(t, "mmbts-bridge", conf.MQTT.ClientID)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(write(t, "pulse:\n  value: 0\n"))
	assert.Error(t, err)

	_, err = Load(write(t, "pulse:\n  duration: 1h\n"))
	assert.Error(t, err)

	_, err = Load(write(t, "port: [\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
