package main

import (
	"log"
	"os"
	"time"

	"github.com/samuelventura/go-mmbts"
)

//(cd sample; go run . /dev/ttyUSB0)
func main() {
	log.SetFlags(log.Lmicroseconds)
	name := mmbts.DefaultPortName
	if len(os.Args) > 1 {
		name = os.Args[1]
	}
	mmbts.EnableTrace(true)
	box := mmbts.NewBox(nil)
	err := box.Connect(name)
	if err != nil {
		log.Fatal(err)
	}
	defer box.Close()
	for {
		err = box.SendTrigger(1)
		if err != nil {
			log.Fatal(err)
		}
		time.Sleep(100 * time.Millisecond)
		err = box.SendTrigger(mmbts.ResetValue)
		if err != nil {
			log.Fatal(err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
