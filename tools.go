package mmbts

import (
	"log"
	"sync/atomic"

	"github.com/samuelventura/go-mmbts/serial"
)

// EnableTrace logs driver and port activity through the standard logger.
func EnableTrace(enable bool) {
	traceEnabled.Store(enable)
	serial.EnableTrace(enable)
}

var traceEnabled atomic.Bool

func trace(args ...interface{}) {
	if traceEnabled.Load() {
		args = append([]interface{}{"mmbts"}, args...)
		log.Println(args...)
	}
}
