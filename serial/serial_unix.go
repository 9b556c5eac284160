//go:build linux || darwin

package serial

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

type portDto struct {
	mu       sync.Mutex
	settings *unix.Termios
	name     string
	handle   int
	wtoms    int
}

func GetPortsList() (ports []string, err error) {
	files, err := os.ReadDir(devFolder)
	if err != nil {
		return
	}

	filter, err := regexp.Compile(regexFilter)
	if err != nil {
		return
	}
	ports = make([]string, 0, len(files))
	for _, f := range files {
		// Skip folders
		if f.IsDir() {
			continue
		}
		// Keep only devices with the correct name
		if !filter.MatchString(f.Name()) {
			continue
		}
		ports = append(ports, devFolder+"/"+f.Name())
	}
	return
}

func Open(portName string, mode *Mode) (Port, error) {
	h, err := unix.Open(portName,
		unix.O_RDWR|unix.O_NOCTTY|unix.O_NDELAY,
		0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", portName, err)
	}
	port := &portDto{
		handle: h,
		name:   portName,
	}
	// prevent handle leaks
	if err := port.configure(mode); err != nil {
		unix.Close(h)
		return nil, fmt.Errorf("configure %s: %w", portName, err)
	}
	trace("open", portName, mode.BaudRate, mode.DataBits, mode.Parity, mode.StopBits)
	return port, nil
}

func (port *portDto) configure(mode *Mode) (err error) {
	h := port.handle
	err = unix.SetNonblock(h, false)
	if err != nil {
		return
	}

	settings, err := getTermSettings(h)
	if err != nil {
		return
	}
	port.settings = settings

	err = setTermSettingsBaudrate(mode.BaudRate, settings)
	if err != nil {
		return
	}
	err = setTermSettingsParity(mode.Parity, settings)
	if err != nil {
		return
	}
	err = setTermSettingsDataBits(mode.DataBits, settings)
	if err != nil {
		return
	}
	err = setTermSettingsStopBits(mode.StopBits, settings)
	if err != nil {
		return
	}
	err = setTermSettingsHandshake(mode.Handshake, settings)
	if err != nil {
		return
	}
	setTermSettingsRaw(settings)

	err = setTermSettings(h, settings)
	if err != nil {
		return
	}

	err = setModemLine(h, unix.TIOCM_DTR, mode.DTR)
	if err != nil {
		return
	}
	if mode.Handshake == NoHandshake {
		err = setModemLine(h, unix.TIOCM_RTS, mode.RTS)
		if err != nil {
			return
		}
	}

	//stale input would be read back as a response
	return flushInput(h)
}

func (port *portDto) SetReadTimeout(toms int) (err error) {
	// http://unixwiz.net/techtips/termios-vmin-vtime.html
	// < 0 blocking, wait for at least 1 char
	// 0 poll, read what is readily available
	// > 0 fully timed
	vmin := uint8(0)
	vtime := uint8(0)
	if toms < 0 {
		vmin = 1
	}
	if toms > 0 {
		vtime = uint8(min(toms/100, 255))
		if vtime == 0 {
			//ensure some time when some required
			vtime = 1
		}
	}

	port.mu.Lock()
	defer port.mu.Unlock()
	if port.handle < 0 {
		return io.EOF
	}
	port.settings.Cc[unix.VMIN] = vmin
	port.settings.Cc[unix.VTIME] = vtime
	err = setTermSettings(port.handle, port.settings)
	err = tryConvertToEof(err)
	return
}

// SetWriteTimeout bounds how long Write waits for the line
// to accept data. Zero or negative blocks.
func (port *portDto) SetWriteTimeout(toms int) error {
	port.mu.Lock()
	defer port.mu.Unlock()
	if port.handle < 0 {
		return io.EOF
	}
	port.wtoms = toms
	return nil
}

//mutex to allow safe multi close from go routines
func (port *portDto) Close() (err error) {
	port.mu.Lock()
	defer port.mu.Unlock()
	if port.handle < 0 {
		return nil
	}
	err = unix.Close(port.handle)
	port.handle = -1
	trace("close", port.name, err)
	return
}

func (port *portDto) Read(p []byte) (n int, err error) {
	h, _ := port.state()
	n, err = unix.Read(h, p)
	err = tryConvertToEof(err)
	// Do not return -1 unix errors
	if n < 0 {
		n = 0
	}
	return
}

func (port *portDto) Write(p []byte) (n int, err error) {
	h, wtoms := port.state()
	if wtoms > 0 {
		err = waitWritable(h, wtoms)
		if err != nil {
			return 0, tryConvertToEof(err)
		}
	}
	n, err = unix.Write(h, p)
	err = tryConvertToEof(err)
	// Do not return -1 unix errors
	if n < 0 {
		n = 0
	}
	return
}

func (port *portDto) state() (int, int) {
	port.mu.Lock()
	defer port.mu.Unlock()
	return port.handle, port.wtoms
}

func waitWritable(h int, toms int) error {
	if h < 0 {
		return syscall.EBADF
	}
	fds := []unix.PollFd{{Fd: int32(h), Events: unix.POLLOUT}}
	for {
		n, err := unix.Poll(fds, toms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrTimeout
		}
		if fds[0].Revents&unix.POLLNVAL != 0 {
			return syscall.EBADF
		}
		return nil
	}
}

func tryConvertToEof(in error) (out error) {
	out = in
	if in != nil {
		errno, ok := in.(syscall.Errno)
		//bad file descriptor
		if ok && errno == syscall.EBADF {
			out = io.EOF
		}
	}
	return
}

func setTermSettingsBaudrate(speed int, settings *unix.Termios) (err error) {
	baudrate, ok := baudrateMap[speed]
	if !ok {
		err = fmt.Errorf("invalid speed %d", speed)
		return
	}
	setTermiosSpeed(baudrate, settings)
	return nil
}

func setTermSettingsParity(parity Parity, settings *unix.Termios) (err error) {
	switch parity {
	case NoParity:
		settings.Cflag &^= unix.PARENB
		settings.Cflag &^= unix.PARODD
		settings.Cflag &^= tcCMSPAR
		settings.Iflag &^= unix.INPCK
	case OddParity:
		settings.Cflag |= unix.PARENB
		settings.Cflag |= unix.PARODD
		settings.Cflag &^= tcCMSPAR
		settings.Iflag |= unix.INPCK
	case EvenParity:
		settings.Cflag |= unix.PARENB
		settings.Cflag &^= unix.PARODD
		settings.Cflag &^= tcCMSPAR
		settings.Iflag |= unix.INPCK
	default:
		err = fmt.Errorf("invalid parity %d", parity)
	}
	return
}

func setTermSettingsDataBits(bits int, settings *unix.Termios) (err error) {
	databits, ok := databitsMap[bits]
	if !ok {
		err = fmt.Errorf("invalid databits %d", bits)
		return
	}
	// Remove previous databits setting
	settings.Cflag &^= unix.CSIZE
	// Set requested databits
	settings.Cflag |= databits
	return nil
}

func setTermSettingsStopBits(bits StopBits, settings *unix.Termios) (err error) {
	switch bits {
	case OneStopBit:
		settings.Cflag &^= unix.CSTOPB
	case TwoStopBits:
		settings.Cflag |= unix.CSTOPB
	default:
		err = fmt.Errorf("invalid stopbits %d", bits)
	}
	return
}

func setTermSettingsHandshake(handshake Handshake, settings *unix.Termios) (err error) {
	switch handshake {
	case NoHandshake:
		settings.Cflag &^= tcCRTSCTS
	case RtsCtsHandshake:
		settings.Cflag |= tcCRTSCTS
	default:
		err = fmt.Errorf("invalid handshake %d", handshake)
	}
	return
}

func setTermSettingsRaw(settings *unix.Termios) {
	// Set local mode
	settings.Cflag |= unix.CREAD
	settings.Cflag |= unix.CLOCAL

	// Set raw mode
	settings.Lflag &^= unix.ICANON
	settings.Lflag &^= unix.ECHO
	settings.Lflag &^= unix.ECHOE
	settings.Lflag &^= unix.ECHOK
	settings.Lflag &^= unix.ECHONL
	settings.Lflag &^= unix.ECHOCTL
	settings.Lflag &^= unix.ECHOPRT
	settings.Lflag &^= unix.ECHOKE
	settings.Lflag &^= unix.ISIG
	settings.Lflag &^= unix.IEXTEN

	settings.Iflag &^= unix.IXON
	settings.Iflag &^= unix.IXOFF
	settings.Iflag &^= unix.IXANY
	settings.Iflag &^= unix.IGNPAR
	settings.Iflag &^= unix.PARMRK
	settings.Iflag &^= unix.ISTRIP
	settings.Iflag &^= unix.IGNBRK
	settings.Iflag &^= unix.BRKINT
	settings.Iflag &^= unix.INLCR
	settings.Iflag &^= unix.IGNCR
	settings.Iflag &^= unix.ICRNL
	settings.Iflag &^= tcIUCLC

	settings.Oflag &^= unix.OPOST

	// Block reads until at least one char is available (no timeout)
	settings.Cc[unix.VMIN] = 1
	settings.Cc[unix.VTIME] = 0
}

// native syscall wrapper functions

func getTermSettings(h int) (*unix.Termios, error) {
	return unix.IoctlGetTermios(h, ioctlTcgetattr)
}

func setTermSettings(h int, settings *unix.Termios) error {
	return unix.IoctlSetTermios(h, ioctlTcsetattr, settings)
}

// setModemLine is a no-op on ttys without modem control, such as ptys.
func setModemLine(h int, line int, on bool) error {
	req := uint(unix.TIOCMBIC)
	if on {
		req = unix.TIOCMBIS
	}
	err := unix.IoctlSetPointerInt(h, req, line)
	if errors.Is(err, unix.ENOTTY) || errors.Is(err, unix.EINVAL) {
		trace("no modem lines", line, err)
		return nil
	}
	return err
}
