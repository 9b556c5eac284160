package main

import (
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/samuelventura/go-mmbts"
	"github.com/samuelventura/go-mmbts/config"
	"github.com/samuelventura/go-mmbts/shell"
)

var (
	configPath string
	portName   string
	autoConn   bool
	trace      bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "YAML configuration file.")
	flag.StringVar(&portName, "port", "", "Serial port, overrides the configuration.")
	flag.BoolVar(&autoConn, "connect", false, "Connect to the port before running commands.")
	flag.BoolVar(&trace, "trace", false, "Trace serial activity.")
}

func main() {
	flag.Parse()
	defer glog.Flush()
	if err := runMain(); err != nil {
		glog.Error(err)
		glog.Flush()
		os.Exit(1)
	}
}

func runMain() error {
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if portName != "" {
		conf.Port = portName
	}
	mmbts.EnableTrace(trace)

	s := shell.New(mmbts.NewBox(nil), conf.Pulse)
	if autoConn {
		if err := s.Connect(conf.Port); err != nil {
			return err
		}
	}
	return s.Run(flag.Args()...)
}
