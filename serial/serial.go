package serial

import "errors"

//only expected errors are timeout and eof
//despite different, closed will be reported as EOF
//SetReadTimeout, SetWriteTimeout, Read, and Write must detect EOF
type Port interface {
	SetReadTimeout(toms int) error
	SetWriteTimeout(toms int) error
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
}

// ErrTimeout is returned by Write when the line did not accept
// data within the write timeout. Read reports timeouts as 0 bytes.
var ErrTimeout = errors.New("serial: write timeout")

type Mode struct {
	BaudRate  int       // platform dependant
	DataBits  int       // 7 or 8
	Parity    Parity    // None, Odd and Even
	StopBits  StopBits  // 1, 1.5, 2
	Handshake Handshake // None or RTS/CTS
	DTR       bool      // assert DTR after open
	RTS       bool      // assert RTS after open, ignored with RTS/CTS
}

type Parity int

const (
	NoParity Parity = iota
	OddParity
	EvenParity
)

type StopBits int

const (
	OneStopBit StopBits = iota
	OnePointFiveStopBits
	TwoStopBits
)

type Handshake int

const (
	NoHandshake Handshake = iota
	RtsCtsHandshake
)
