package serial

import "golang.org/x/sys/unix"

const devFolder = "/dev"
const regexFilter = "^(ttyS|ttyHS|ttyUSB|ttyACM|ttyAMA|rfcomm|ttyO|ttymxc)[0-9]{1,3}$"

const ioctlTcgetattr = unix.TCGETS
const ioctlTcsetattr = unix.TCSETS
const ioctlTcflsh = unix.TCFLSH

const tcCMSPAR = unix.CMSPAR
const tcIUCLC = unix.IUCLC
const tcCRTSCTS = unix.CRTSCTS

var baudrateMap = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
}

var databitsMap = map[int]uint32{
	5: unix.CS5,
	6: unix.CS6,
	7: unix.CS7,
	8: unix.CS8,
}

func setTermiosSpeed(baudrate uint32, settings *unix.Termios) {
	// revert old baudrate
	settings.Cflag &^= unix.CBAUD | unix.CBAUDEX
	// set new baudrate
	settings.Cflag |= baudrate
	settings.Ispeed = baudrate
	settings.Ospeed = baudrate
}

func flushInput(h int) error {
	return unix.IoctlSetInt(h, ioctlTcflsh, unix.TCIFLUSH)
}
