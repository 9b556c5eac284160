package serial

import (
	"log"
	"sync/atomic"
)

func EnableTrace(enable bool) {
	traceEnabled.Store(enable)
}

var traceEnabled atomic.Bool

func trace(args ...interface{}) {
	if traceEnabled.Load() {
		log.Println(args...)
	}
}
