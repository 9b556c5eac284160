// Package shell is an interactive harness for exercising a trigger box by
// hand: connect to a port, send and read single triggers, and run a
// repeated pulse loop with adjustable value, duration and interval.
package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"
	"github.com/hashicorp/go-multierror"

	"github.com/samuelventura/go-mmbts"
	"github.com/samuelventura/go-mmbts/pulse"
	"github.com/samuelventura/go-mmbts/serial"
)

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var errLoopRunning = errors.New("stop sending triggers first")

// Shell provides ishell backed interactive shell.
type Shell struct {
	Shell     *ishell.Shell
	Box       *mmbts.Box
	Loop      *pulse.Loop
	Settings  pulse.Settings
	ListPorts func() ([]string, error)
}

// New creates a shell around box. The ishell instance is created by Run.
func New(box *mmbts.Box, settings pulse.Settings) *Shell {
	return &Shell{
		Box:       box,
		Loop:      pulse.NewLoop(box),
		Settings:  settings,
		ListPorts: serial.GetPortsList,
	}
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if !ShellFrom(c).Box.IsConnected() {
			c.Err(mmbts.ErrNotConnected)
			return
		}
		fn(c)
	}
}

func (s *Shell) setPrompt() {
	if s.Shell == nil {
		return
	}
	if name := s.Box.PortName(); name != "" {
		s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", name))
		return
	}
	s.Shell.SetPrompt(unconnectedPrompt)
}

// PortsLine lists the available serial ports on one line.
func (s *Shell) PortsLine() (string, error) {
	ports, err := s.ListPorts()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "Available ports: none", nil
	}
	return "Available ports: " + strings.Join(ports, " ; "), nil
}

// Connect (re)connects the box. The port cannot change while the
// pulse loop runs.
func (s *Shell) Connect(name string) error {
	if s.Loop.Running() {
		return errLoopRunning
	}
	defer s.setPrompt()
	return s.Box.Connect(name)
}

// Disconnect stops the pulse loop, if any, and closes the port.
func (s *Shell) Disconnect() error {
	var result *multierror.Error
	if s.Loop.Running() {
		if err := s.Loop.Stop(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := s.Box.Disconnect(); err != nil {
		result = multierror.Append(result, err)
	}
	s.setPrompt()
	return result.ErrorOrNil()
}

func (s *Shell) Send(arg string) error {
	value, err := ParseValue(arg)
	if err != nil {
		return err
	}
	return s.Box.SendTrigger(value)
}

func (s *Shell) Pulse(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: pulse VALUE [DURATION]")
	}
	value, err := ParseValue(args[0])
	if err != nil {
		return err
	}
	duration := s.Settings.Duration
	if len(args) > 1 {
		if duration, err = ParseDuration(args[1]); err != nil {
			return err
		}
	}
	if err := pulse.ValidatePulse(value, duration); err != nil {
		return err
	}
	return pulse.Pulse(context.Background(), s.Box, value, duration)
}

// Start runs the pulse loop with the current settings.
func (s *Shell) Start() error {
	return s.Loop.Start(context.Background(), s.Settings)
}

// Stop ends the pulse loop and resets the trigger lines.
func (s *Shell) Stop() error {
	return s.Loop.Stop()
}

// Set changes one pulse setting, applied live when the loop runs.
func (s *Shell) Set(name, arg string) error {
	settings, err := ApplySetting(s.Settings, name, arg)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	s.Settings = settings
	if s.Loop.Running() {
		return s.Loop.Update(settings)
	}
	return nil
}

func (s *Shell) SetLog(arg string) error {
	switch strings.ToLower(arg) {
	case "on", "true", "1":
		return s.Set("log", "true")
	case "off", "false", "0":
		return s.Set("log", "false")
	}
	return fmt.Errorf("usage: log on|off")
}

// Status describes connection, loop and settings.
func (s *Shell) Status() string {
	port := s.Box.PortName()
	if port == "" {
		port = "none"
	}
	state := "stopped"
	if s.Loop.Running() {
		state = fmt.Sprintf("running (%d sent)", s.Loop.Count())
	}
	return fmt.Sprintf("port: %s\nloop: %s\nvalue: %d\nduration: %v\ninterval: %v\nlog: %v",
		port, state, s.Settings.Value, s.Settings.Duration, s.Settings.Interval, s.Settings.Log)
}

// Shutdown releases the loop and the port.
func (s *Shell) Shutdown() error {
	return s.Disconnect()
}

// ParseValue parses a trigger value 0..255.
func ParseValue(arg string) (byte, error) {
	v, err := strconv.ParseUint(arg, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid trigger value %q", arg)
	}
	return byte(v), nil
}

// ParseDuration accepts Go durations ("50ms") or plain seconds ("0.05").
func ParseDuration(arg string) (time.Duration, error) {
	if d, err := time.ParseDuration(arg); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", arg)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// ApplySetting returns settings with the named field changed.
func ApplySetting(settings pulse.Settings, name, arg string) (pulse.Settings, error) {
	var err error
	switch name {
	case "value":
		settings.Value, err = ParseValue(arg)
	case "duration":
		settings.Duration, err = ParseDuration(arg)
	case "interval":
		settings.Interval, err = ParseDuration(arg)
	case "log":
		settings.Log, err = strconv.ParseBool(arg)
	default:
		err = fmt.Errorf("unknown setting %q", name)
	}
	return settings, err
}

// Run runs the shell. With args it runs a single command and returns.
func (s *Shell) Run(args ...string) error {
	s.Shell = ishell.New()
	s.Shell.Set(shellKey, s)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	s.setPrompt()
	defer func() {
		if err := s.Shutdown(); err != nil {
			glog.Errorf("shutdown: %v", err)
		}
	}()

	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if line, err := s.PortsLine(); err != nil {
		glog.Warningf("list ports: %v", err)
	} else {
		s.Shell.Println(line)
	}
	s.Shell.Run()
	return nil
}
