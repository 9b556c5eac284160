// Package pulse shapes trigger pulses on a trigger sender: a value held
// for a duration and then reset to zero, optionally repeated at an
// interval.
package pulse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/hashicorp/go-multierror"
)

const reset = byte(0)

// Limits accepted by Settings.Validate.
const (
	MinValue    = 1
	MaxValue    = 255
	MinDuration = 10 * time.Millisecond
	MaxDuration = 2 * time.Second
)

var (
	ErrRunning    = errors.New("pulse: loop already running")
	ErrNotRunning = errors.New("pulse: loop not running")
)

// Sender is satisfied by *mmbts.Box.
type Sender interface {
	SendTrigger(value byte) error
}

// Settings of a repeated trigger pulse.
type Settings struct {
	Value    byte          `yaml:"value"`
	Duration time.Duration `yaml:"duration"`
	Interval time.Duration `yaml:"interval"`
	Log      bool          `yaml:"log"`
}

func DefaultSettings() Settings {
	return Settings{
		Value:    1,
		Duration: 50 * time.Millisecond,
		Interval: 500 * time.Millisecond,
	}
}

func (s Settings) Validate() error {
	if err := ValidatePulse(s.Value, s.Duration); err != nil {
		return err
	}
	return validateDuration("interval", s.Interval)
}

// ValidatePulse checks a single pulse against the value and duration limits.
func ValidatePulse(value byte, duration time.Duration) error {
	if value < MinValue {
		return fmt.Errorf("pulse: value %d out of range [%d, %d]", value, MinValue, MaxValue)
	}
	return validateDuration("duration", duration)
}

func validateDuration(name string, d time.Duration) error {
	if d < MinDuration || d > MaxDuration {
		return fmt.Errorf("pulse: %s %v out of range [%v, %v]", name, d, MinDuration, MaxDuration)
	}
	return nil
}

// Pulse sends value, holds it for duration and sends the reset value.
// The reset is sent even when ctx ends during the hold.
func Pulse(ctx context.Context, s Sender, value byte, duration time.Duration) error {
	if err := s.SendTrigger(value); err != nil {
		return err
	}
	hold := sleep(ctx, duration)
	if err := s.SendTrigger(reset); err != nil {
		return err
	}
	return hold
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loop repeats pulses until stopped. Settings may be updated while
// running and take effect on the next pulse.
type Loop struct {
	sender Sender

	mu       sync.Mutex
	settings Settings
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
	count    uint64
}

func NewLoop(s Sender) *Loop {
	return &Loop{sender: s, settings: DefaultSettings()}
}

// Start runs the loop in a new goroutine.
func (l *Loop) Start(ctx context.Context, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done != nil {
		select {
		case <-l.done:
		default:
			return ErrRunning
		}
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.settings = settings
	l.err = nil
	l.count = 0
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	go l.run(ctx, l.done)
	return nil
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		s := l.Settings()
		err := l.sender.SendTrigger(s.Value)
		if err != nil {
			l.fail(err)
			return
		}
		if s.Log {
			glog.Infof("trigger sent: %d", s.Value)
		}
		hold := sleep(ctx, s.Duration)
		err = l.sender.SendTrigger(reset)
		if err != nil {
			l.fail(err)
			return
		}
		if s.Log {
			glog.Info("trigger reset (0)")
		}
		l.mu.Lock()
		l.count++
		l.mu.Unlock()
		if hold != nil {
			return
		}
		if sleep(ctx, s.Interval) != nil {
			return
		}
	}
}

func (l *Loop) fail(err error) {
	glog.Warningf("pulse loop stopped: %v", err)
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

// Update replaces the settings used by the next pulse.
func (l *Loop) Update(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	l.settings = settings
	l.mu.Unlock()
	return nil
}

func (l *Loop) Settings() Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings
}

func (l *Loop) Running() bool {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Count returns the number of complete pulses of the current or last run.
func (l *Loop) Count() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Err returns the send error that ended the last run, if any.
func (l *Loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Stop ends the loop, waits for it and leaves the trigger lines reset.
// The reset is attempted even when a send error ended the loop earlier,
// and that error is returned along with any reset error.
func (l *Loop) Stop() error {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if done == nil {
		return ErrNotRunning
	}
	cancel()
	<-done
	var result *multierror.Error
	if err := l.Err(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := l.sender.SendTrigger(reset); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
