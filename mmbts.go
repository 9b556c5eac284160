// Package mmbts drives the NeuroSpec MMBT-S trigger interface box.
//
// The box forwards every byte written to its serial port to the parallel
// trigger lines of the attached acquisition system. A trigger is sent by
// writing its value and cleared by writing ResetValue.
//
//	box := mmbts.NewBox(nil)
//	if err := box.Connect("/dev/ttyUSB0"); err != nil {
//		log.Fatal(err)
//	}
//	defer box.Close()
//	box.SendTrigger(12)
//	time.Sleep(50 * time.Millisecond)
//	box.SendTrigger(mmbts.ResetValue)
package mmbts

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/samuelventura/go-mmbts/serial"
)

const (
	BaudRate = 9600
	// Timeouts only keep a broken port from blocking the caller,
	// they carry no trigger timing meaning.
	ReadTimeout  = 500 * time.Millisecond
	WriteTimeout = 500 * time.Millisecond
	ResetValue   = byte(0)
)

// ErrNotConnected is returned by operations on a box with no open port.
var ErrNotConnected = errors.New("mmbts: not connected")

// OpenFunc opens a serial port. serial.Open satisfies it.
type OpenFunc func(name string, mode *serial.Mode) (serial.Port, error)

// Box is a connection to one MMBT-S box. It is safe for concurrent use.
type Box struct {
	mu   sync.Mutex
	open OpenFunc
	port serial.Port
	name string
}

// NewBox returns a disconnected Box. A nil open uses serial.Open.
func NewBox(open OpenFunc) *Box {
	if open == nil {
		open = serial.Open
	}
	return &Box{open: open}
}

// Mode is the fixed serial configuration of the box: 9600 8N1,
// no handshake, DTR asserted and RTS cleared.
func Mode() *serial.Mode {
	return &serial.Mode{
		BaudRate:  BaudRate,
		DataBits:  8,
		Parity:    serial.NoParity,
		StopBits:  serial.OneStopBit,
		Handshake: serial.NoHandshake,
		DTR:       true,
		RTS:       false,
	}
}

// Connect opens the named port, closing any previous connection first.
// It can be called any number of times. An empty name selects
// DefaultPortName.
func (b *Box) Connect(name string) error {
	if name == "" {
		name = DefaultPortName
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.disconnect(); err != nil {
		trace("disconnect", b.name, err)
	}

	port, err := b.open(name, Mode())
	if err != nil {
		return fmt.Errorf("mmbts: connect %s: %w", name, err)
	}
	if err := port.SetReadTimeout(int(ReadTimeout / time.Millisecond)); err != nil {
		port.Close()
		return fmt.Errorf("mmbts: connect %s: read timeout: %w", name, err)
	}
	if err := port.SetWriteTimeout(int(WriteTimeout / time.Millisecond)); err != nil {
		port.Close()
		return fmt.Errorf("mmbts: connect %s: write timeout: %w", name, err)
	}
	b.port = port
	b.name = name
	trace("connected", name)
	return nil
}

// Disconnect closes the port. Calling it on a disconnected box is a no-op.
func (b *Box) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disconnect()
}

func (b *Box) disconnect() error {
	if b.port == nil {
		return nil
	}
	err := b.port.Close()
	trace("disconnected", b.name, err)
	b.port = nil
	b.name = ""
	if err != nil {
		return fmt.Errorf("mmbts: disconnect: %w", err)
	}
	return nil
}

// Close implements io.Closer.
func (b *Box) Close() error {
	return b.Disconnect()
}

func (b *Box) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.port != nil
}

// PortName returns the connected port name or "" when disconnected.
func (b *Box) PortName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.name
}

// current returns the open port without holding the lock during I/O,
// a concurrent Disconnect surfaces as io.EOF from the port.
func (b *Box) current() serial.Port {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.port
}

// SendTrigger writes a single trigger byte.
func (b *Box) SendTrigger(value byte) error {
	port := b.current()
	if port == nil {
		return ErrNotConnected
	}
	n, err := port.Write([]byte{value})
	if err == io.EOF {
		return ErrNotConnected
	}
	if err != nil {
		return fmt.Errorf("mmbts: send %d: %w", value, err)
	}
	if n != 1 {
		return fmt.Errorf("mmbts: send %d: %w", value, io.ErrShortWrite)
	}
	trace("send", value)
	return nil
}

// ReadTrigger reads a single byte from the box. A read timeout yields
// ResetValue and no error. A disconnected box yields ResetValue and
// ErrNotConnected.
func (b *Box) ReadTrigger() (byte, error) {
	port := b.current()
	if port == nil {
		return ResetValue, ErrNotConnected
	}
	buf := []byte{ResetValue}
	n, err := port.Read(buf)
	if err == io.EOF {
		return ResetValue, ErrNotConnected
	}
	if err != nil {
		return ResetValue, fmt.Errorf("mmbts: read: %w", err)
	}
	if n == 0 {
		trace("read timeout")
		return ResetValue, nil
	}
	trace("read", buf[0])
	return buf[0], nil
}
