package serial

import (
	"io"
	"log"
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialEof(t *testing.T) {
	defer logPanic()
	requireLoopback(t)
	log.SetFlags(log.Lmicroseconds)
	log.Println("PORT1", PORT1)
	log.Println("PORT2", PORT2)
	testSerialEof(t, PORT1)
	testSerialEof(t, PORT2)
}

func testSerialEof(t *testing.T, name string) {
	port := open(t, name)
	defer port.Close()
	err := port.SetReadTimeout(100)
	fatalIfError(t, err)
	err = port.Close()
	fatalIfError(t, err)
	//second close is a no-op
	err = port.Close()
	fatalIfError(t, err)
	err = port.SetReadTimeout(100)
	if err != io.EOF {
		t.Fatalf("setReadTimeout EOF not detected %v", err)
	}
	_, err = port.Read([]byte{0})
	if err != io.EOF {
		t.Fatalf("read EOF not detected %v", err)
	}
	_, err = port.Write([]byte{0})
	if err != io.EOF {
		t.Fatalf("write EOF not detected %v", err)
	}
}

func TestSerialSingleByte(t *testing.T) {
	defer logPanic()
	requireLoopback(t)
	port1 := open(t, PORT1)
	defer port1.Close()
	port2 := open(t, PORT2)
	defer port2.Close()
	fatalIfError(t, port1.SetWriteTimeout(500))
	fatalIfError(t, port2.SetReadTimeout(500))

	for _, b := range []byte{1, 0x7f, 0xff, 0} {
		n, err := port1.Write([]byte{b})
		require.NoError(t, err)
		require.Equal(t, 1, n)
		buf := []byte{0}
		n, err = port2.Read(buf)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		assert.Equal(t, b, buf[0])
	}
}

func TestSerialReadTimeout(t *testing.T) {
	defer logPanic()
	requireLoopback(t)
	port := open(t, PORT2)
	defer port.Close()
	fatalIfError(t, port.SetReadTimeout(200))
	start := time.Now()
	n, err := port.Read([]byte{0})
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestOpenMissing(t *testing.T) {
	port, err := Open(missingPort, mode())
	assert.Error(t, err)
	assert.Nil(t, port)
}

//startech ftdi bit corruption at 57600 & 115200 on MacOS
func mode() *Mode {
	mode := &Mode{}
	mode.BaudRate = 9600
	mode.DataBits = 8
	mode.Parity = NoParity
	mode.StopBits = OneStopBit
	mode.Handshake = NoHandshake
	mode.DTR = true
	return mode
}

func open(t *testing.T, name string) Port {
	mode := mode()
	port, err := Open(name, mode)
	fatalIfError(t, err)
	return port
}

func requireLoopback(t *testing.T) {
	if PORT1 == "" || PORT2 == "" {
		t.Skip("no loopback port pair configured")
	}
}

//TOOLS/////////////////////////////////////

func logPanic() {
	if r := recover(); r != nil {
		log.Println(r, string(debug.Stack()))
	}
}

func fatalIfError(t *testing.T, err error) {
	if err != nil {
		t.Fatal(err)
	}
}
