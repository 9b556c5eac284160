//go:build windows

package serial

/*
// MSDN article on Serial Communications:
// http://msdn.microsoft.com/en-us/library/ff802693.aspx
// (alternative link) https://msdn.microsoft.com/en-us/library/ms810467.aspx
// Arduino Playground article on serial communication with Windows API:
// http://playground.arduino.cc/Interfacing/CPPWindows
*/

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

type portDto struct {
	mu     sync.Mutex
	name   string
	handle windows.Handle
	rtoms  int
	wtoms  int
}

func GetPortsList() (list []string, err error) {
	list = []string{}
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, `HARDWARE\DEVICEMAP\SERIALCOMM\`, registry.READ)
	if errors.Is(err, registry.ErrNotExist) {
		//no serial driver loaded
		return list, nil
	}
	if err != nil {
		return
	}
	defer key.Close()

	names, err := key.ReadValueNames(0)
	if err != nil {
		return
	}
	for _, name := range names {
		value, _, verr := key.GetStringValue(name)
		if verr != nil {
			err = verr
			return
		}
		list = append(list, value)
	}
	return
}

func Open(portName string, mode *Mode) (Port, error) {
	path, err := windows.UTF16PtrFromString("\\\\.\\" + portName)
	if err != nil {
		return nil, err
	}
	handle, err := windows.CreateFile(
		path,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0, nil,
		windows.OPEN_EXISTING,
		0,
		0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", portName, err)
	}

	port := &portDto{
		name:   portName,
		handle: handle,
		rtoms:  -1,
	}
	// prevent handle leaks
	if err := port.configure(mode); err != nil {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("configure %s: %w", portName, err)
	}
	trace("open", portName, mode.BaudRate, mode.DataBits, mode.Parity, mode.StopBits)
	return port, nil
}

func (port *portDto) configure(mode *Mode) (err error) {
	params := windows.DCB{}
	params.DCBlength = uint32(unsafe.Sizeof(params))
	err = windows.GetCommState(port.handle, &params)
	if err != nil {
		return
	}
	parity, ok := parityMap[mode.Parity]
	if !ok {
		return fmt.Errorf("invalid parity %d", mode.Parity)
	}
	stopBits, ok := stopBitsMap[mode.StopBits]
	if !ok {
		return fmt.Errorf("invalid stopbits %d", mode.StopBits)
	}
	if mode.DataBits < 5 || mode.DataBits > 8 {
		return fmt.Errorf("invalid databits %d", mode.DataBits)
	}
	params.BaudRate = uint32(mode.BaudRate)
	params.ByteSize = byte(mode.DataBits)
	params.StopBits = stopBits
	params.Parity = parity
	params.Flags = dcbFlags(params.Flags, mode)
	err = windows.SetCommState(port.handle, &params)
	if err != nil {
		return
	}

	err = port.applyTimeouts()
	if err != nil {
		return
	}

	//stale input would be read back as a response
	return windows.PurgeComm(port.handle, purgeRxClear)
}

func dcbFlags(flags uint32, mode *Mode) uint32 {
	flags &^= dcbParity | dcbOutxCtsFlow | dcbOutxDsrFlow |
		dcbDtrControlMask | dcbDsrSensitivity | dcbOutX | dcbInX |
		dcbErrorChar | dcbNull | dcbRtsControlMask | dcbAbortOnError
	flags |= dcbBinary
	if mode.Parity != NoParity {
		flags |= dcbParity
	}
	if mode.DTR {
		flags |= dcbDtrControlEnable
	}
	switch {
	case mode.Handshake == RtsCtsHandshake:
		flags |= dcbOutxCtsFlow | dcbRtsControlHandshake
	case mode.RTS:
		flags |= dcbRtsControlEnable
	}
	return flags
}

func (port *portDto) SetReadTimeout(toms int) error {
	port.mu.Lock()
	defer port.mu.Unlock()
	port.rtoms = toms
	return tryConvertToEof(port.applyTimeouts())
}

func (port *portDto) SetWriteTimeout(toms int) error {
	port.mu.Lock()
	defer port.mu.Unlock()
	port.wtoms = toms
	return tryConvertToEof(port.applyTimeouts())
}

func (port *portDto) applyTimeouts() error {
	if port.handle == 0 {
		return windows.ERROR_INVALID_HANDLE
	}
	timeouts := &windows.CommTimeouts{}
	switch {
	case port.rtoms < 0:
		timeouts.ReadTotalTimeoutConstant = 0xFFFFFFFF - 1
	case port.rtoms == 0:
		//return immediately with whatever is buffered
		timeouts.ReadIntervalTimeout = 0xFFFFFFFF
	default:
		timeouts.ReadTotalTimeoutConstant = uint32(port.rtoms)
	}
	if port.wtoms > 0 {
		timeouts.WriteTotalTimeoutConstant = uint32(port.wtoms)
	}
	return windows.SetCommTimeouts(port.handle, timeouts)
}

func (port *portDto) Read(p []byte) (n int, err error) {
	var count uint32
	err = windows.ReadFile(port.current(), p, &count, nil)
	err = tryConvertToEof(err)
	n = int(count)
	return
}

func (port *portDto) Write(p []byte) (n int, err error) {
	var count uint32
	err = windows.WriteFile(port.current(), p, &count, nil)
	err = tryConvertToEof(err)
	n = int(count)
	if err == nil && n < len(p) {
		err = ErrTimeout
	}
	return
}

func (port *portDto) current() windows.Handle {
	port.mu.Lock()
	defer port.mu.Unlock()
	return port.handle
}

//mutex to allow safe multi close from go routines
func (port *portDto) Close() (err error) {
	port.mu.Lock()
	defer func() {
		port.handle = 0
		port.mu.Unlock()
	}()
	if port.handle == 0 {
		return nil
	}
	err = windows.CloseHandle(port.handle)
	trace("close", port.name, err)
	return
}

func tryConvertToEof(in error) (out error) {
	out = in
	if in != nil {
		//The handle is invalid
		if errors.Is(in, windows.ERROR_INVALID_HANDLE) {
			out = io.EOF
		}
	}
	return
}

// DCB.Flags bitfield
//  fBinary            :1
//  fParity            :1
//  fOutxCtsFlow       :1
//  fOutxDsrFlow       :1
//  fDtrControl        :2
//  fDsrSensitivity    :1
//  fTXContinueOnXoff  :1
//  fOutX              :1
//  fInX               :1
//  fErrorChar         :1
//  fNull              :1
//  fRtsControl        :2
//  fAbortOnError      :1
//  fDummy2            :17
const (
	dcbBinary              = 0x00000001
	dcbParity              = 0x00000002
	dcbOutxCtsFlow         = 0x00000004
	dcbOutxDsrFlow         = 0x00000008
	dcbDtrControlMask      = 0x00000030
	dcbDtrControlEnable    = 0x00000010
	dcbDsrSensitivity      = 0x00000040
	dcbOutX                = 0x00000100
	dcbInX                 = 0x00000200
	dcbErrorChar           = 0x00000400
	dcbNull                = 0x00000800
	dcbRtsControlMask      = 0x00003000
	dcbRtsControlEnable    = 0x00001000
	dcbRtsControlHandshake = 0x00002000
	dcbAbortOnError        = 0x00004000
)

const purgeRxClear = 0x0008

const (
	noParity   = 0
	oddParity  = 1
	evenParity = 2
)

var parityMap = map[Parity]byte{
	NoParity:   noParity,
	OddParity:  oddParity,
	EvenParity: evenParity,
}

const (
	oneStopBit   = 0
	one5StopBits = 1
	twoStopBits  = 2
)

var stopBitsMap = map[StopBits]byte{
	OneStopBit:           oneStopBit,
	OnePointFiveStopBits: one5StopBits,
	TwoStopBits:          twoStopBits,
}
