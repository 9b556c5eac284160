//go:build windows

package serial

// com0com-2.2.2.0-x64-fre-signed
// No need to check any setup flags
// set MMBTS_PORT1=COM98 and MMBTS_PORT2=COM99

import (
	"log"
	"os"
	"sort"
	"testing"
)

var (
	PORT1 = os.Getenv("MMBTS_PORT1")
	PORT2 = os.Getenv("MMBTS_PORT2")
)

const missingPort = "COM250"

func TestSerialFound(t *testing.T) {
	defer logPanic()
	requireLoopback(t)
	log.SetFlags(log.Lmicroseconds)
	ports, err := GetPortsList()
	fatalIfError(t, err)
	sort.Strings(ports)
	np := len(ports)
	log.Println(np, ports)
	if np == 0 {
		t.Fatalf("Ports not found %d", np)
	}
	testSerialFound(t, ports, PORT1)
	testSerialFound(t, ports, PORT2)
}

func testSerialFound(t *testing.T, ports []string, name string) {
	n := sort.SearchStrings(ports, name)
	if n >= len(ports) || ports[n] != name {
		t.Fatalf("Port not found %s", name)
	}
}

func TestDcbFlags(t *testing.T) {
	m := mode()
	flags := dcbFlags(0xFFFFFFFF, m)
	if flags&dcbBinary == 0 {
		t.Fatalf("binary not set %x", flags)
	}
	if flags&dcbDtrControlMask != dcbDtrControlEnable {
		t.Fatalf("dtr not enabled %x", flags)
	}
	if flags&dcbRtsControlMask != 0 {
		t.Fatalf("rts not disabled %x", flags)
	}
	if flags&(dcbOutxCtsFlow|dcbOutX|dcbInX|dcbParity) != 0 {
		t.Fatalf("handshake not disabled %x", flags)
	}
	//null bytes are valid trigger values
	if flags&(dcbNull|dcbErrorChar) != 0 {
		t.Fatalf("null stripping or error char not disabled %x", flags)
	}
	m.Handshake = RtsCtsHandshake
	flags = dcbFlags(0, m)
	if flags&dcbRtsControlMask != dcbRtsControlHandshake || flags&dcbOutxCtsFlow == 0 {
		t.Fatalf("rts/cts not set %x", flags)
	}
}
