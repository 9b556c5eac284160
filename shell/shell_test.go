package shell

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelventura/go-mmbts"
	"github.com/samuelventura/go-mmbts/pulse"
	"github.com/samuelventura/go-mmbts/serial"
)

type loopPort struct {
	mu      sync.Mutex
	written []byte
	closed  bool
}

func (p *loopPort) SetReadTimeout(int) error  { return nil }
func (p *loopPort) SetWriteTimeout(int) error { return nil }

//echoes the last written byte
func (p *loopPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.EOF
	}
	if len(p.written) == 0 {
		return 0, nil
	}
	b[0] = p.written[len(p.written)-1]
	return 1, nil
}

func (p *loopPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.EOF
	}
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *loopPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *loopPort) sent() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written...)
}

func newTestShell(t *testing.T) (*Shell, *loopPort) {
	port := &loopPort{}
	box := mmbts.NewBox(func(name string, mode *serial.Mode) (serial.Port, error) {
		if name == "missing" {
			return nil, errors.New("no such port")
		}
		return port, nil
	})
	settings := pulse.Settings{Value: 4, Duration: pulse.MinDuration, Interval: pulse.MinDuration}
	s := New(box, settings)
	s.ListPorts = func() ([]string, error) { return []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}, nil }
	t.Cleanup(func() { s.Shutdown() })
	return s, port
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue("255")
	require.NoError(t, err)
	assert.Equal(t, byte(255), v)
	_, err = ParseValue("256")
	assert.Error(t, err)
	_, err = ParseValue("a")
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("50ms")
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, d)
	d, err = ParseDuration("0.5")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d)
	_, err = ParseDuration("soon")
	assert.Error(t, err)
}

func TestApplySetting(t *testing.T) {
	s := pulse.DefaultSettings()
	s, err := ApplySetting(s, "value", "9")
	require.NoError(t, err)
	s, err = ApplySetting(s, "duration", "0.1")
	require.NoError(t, err)
	s, err = ApplySetting(s, "interval", "1s")
	require.NoError(t, err)
	s, err = ApplySetting(s, "log", "true")
	require.NoError(t, err)
	assert.Equal(t, pulse.Settings{Value: 9, Duration: 100 * time.Millisecond, Interval: time.Second, Log: true}, s)
	_, err = ApplySetting(s, "color", "red")
	assert.Error(t, err)
}

func TestPortsLine(t *testing.T) {
	s, _ := newTestShell(t)
	line, err := s.PortsLine()
	require.NoError(t, err)
	assert.Equal(t, "Available ports: /dev/ttyUSB0 ; /dev/ttyUSB1", line)
	s.ListPorts = func() ([]string, error) { return nil, nil }
	line, err = s.PortsLine()
	require.NoError(t, err)
	assert.Equal(t, "Available ports: none", line)
}

func TestSendAndRead(t *testing.T) {
	s, port := newTestShell(t)
	assert.ErrorIs(t, s.Send("1"), mmbts.ErrNotConnected)
	require.NoError(t, s.Connect("/dev/ttyUSB0"))
	require.NoError(t, s.Send("17"))
	assert.Error(t, s.Send("300"))
	value, err := s.Box.ReadTrigger()
	require.NoError(t, err)
	assert.Equal(t, byte(17), value)
	require.NoError(t, s.Pulse([]string{"3", "10ms"}))
	assert.Equal(t, []byte{17, 3, 0}, port.sent())
	assert.Error(t, s.Pulse(nil))
}

func TestPulseOutOfRange(t *testing.T) {
	s, port := newTestShell(t)
	require.NoError(t, s.Connect("/dev/ttyUSB0"))
	for _, args := range [][]string{
		{"0"},
		{"0", "-5s"},
		{"5", "-5s"},
		{"5", "1e9"},
		{"5", "5ms"},
	} {
		start := time.Now()
		assert.Error(t, s.Pulse(args), args)
		assert.Less(t, time.Since(start), time.Second, args)
	}
	assert.Empty(t, port.sent())
}

func TestConnectError(t *testing.T) {
	s, _ := newTestShell(t)
	assert.Error(t, s.Connect("missing"))
	assert.Contains(t, s.Status(), "port: none")
}

func TestLoopLifecycle(t *testing.T) {
	s, port := newTestShell(t)
	require.NoError(t, s.Connect("/dev/ttyUSB0"))
	require.NoError(t, s.Start())
	assert.Contains(t, s.Status(), "loop: running")
	assert.ErrorIs(t, s.Connect("/dev/ttyUSB1"), errLoopRunning)

	require.NoError(t, s.Set("value", "8"))
	assert.Equal(t, byte(8), s.Loop.Settings().Value)
	assert.Error(t, s.Set("duration", "5s"))

	require.Eventually(t, func() bool { return s.Loop.Count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
	sent := port.sent()
	assert.Equal(t, byte(0), sent[len(sent)-1])
	assert.Contains(t, s.Status(), "loop: stopped")
}

func TestDisconnectStopsLoop(t *testing.T) {
	s, port := newTestShell(t)
	require.NoError(t, s.Connect("/dev/ttyUSB0"))
	require.NoError(t, s.Start())
	require.NoError(t, s.Disconnect())
	assert.False(t, s.Loop.Running())
	assert.False(t, s.Box.IsConnected())
	sent := port.sent()
	require.NotEmpty(t, sent)
	assert.Equal(t, byte(0), sent[len(sent)-1])
	assert.NoError(t, s.Disconnect())
}

func TestSetLog(t *testing.T) {
	s, _ := newTestShell(t)
	require.NoError(t, s.SetLog("on"))
	assert.True(t, s.Settings.Log)
	require.NoError(t, s.SetLog("off"))
	assert.False(t, s.Settings.Log)
	assert.Error(t, s.SetLog("maybe"))
}
