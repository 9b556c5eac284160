// See README.txt for copyright notices

package serial

import "golang.org/x/sys/unix"

const devFolder = "/dev"
const regexFilter = "^(cu|tty)\\..*"

const ioctlTcgetattr = unix.TIOCGETA
const ioctlTcsetattr = unix.TIOCSETA
const ioctlTcflsh = unix.TIOCFLUSH

// not available on darwin
const tcCMSPAR = 0
const tcIUCLC = 0

const tcCRTSCTS = unix.CRTSCTS

// FREAD from sys/fcntl.h
const flushRead = 0x1

var baudrateMap = map[int]uint64{
	50:     unix.B50,
	75:     unix.B75,
	110:    unix.B110,
	134:    unix.B134,
	150:    unix.B150,
	200:    unix.B200,
	300:    unix.B300,
	600:    unix.B600,
	1200:   unix.B1200,
	1800:   unix.B1800,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

var databitsMap = map[int]uint64{
	5: unix.CS5,
	6: unix.CS6,
	7: unix.CS7,
	8: unix.CS8,
}

// speed lives in c_ispeed/c_ospeed only, c_cflag holds no rate bits
func setTermiosSpeed(baudrate uint64, settings *unix.Termios) {
	settings.Ispeed = baudrate
	settings.Ospeed = baudrate
}

func flushInput(h int) error {
	return unix.IoctlSetPointerInt(h, ioctlTcflsh, flushRead)
}
