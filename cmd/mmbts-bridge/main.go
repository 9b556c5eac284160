package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/hashicorp/go-multierror"

	"github.com/samuelventura/go-mmbts"
	"github.com/samuelventura/go-mmbts/bridge"
	"github.com/samuelventura/go-mmbts/config"
)

var (
	configPath string
	portName   string
	brokerURL  string
)

func init() {
	flag.StringVar(&configPath, "config", "", "YAML configuration file.")
	flag.StringVar(&portName, "port", "", "Serial port, overrides the configuration.")
	flag.StringVar(&brokerURL, "broker", "", "Broker URL mqtt://host:port/prefix/, overrides the configuration.")
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

func runMain() (err error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if portName != "" {
		conf.Port = portName
	}
	if brokerURL != "" {
		conf.MQTT.Broker = brokerURL
	}

	box := mmbts.NewBox(nil)
	if err := box.Connect(conf.Port); err != nil {
		return err
	}
	glog.Infof("connected to %s", conf.Port)

	b, err := bridge.New(conf.MQTT.Broker, conf.MQTT.ClientID, box)
	if err != nil {
		box.Close()
		return err
	}
	defer func() {
		var result *multierror.Error
		result = multierror.Append(result, b.Close())
		result = multierror.Append(result, box.SendTrigger(mmbts.ResetValue))
		result = multierror.Append(result, box.Close())
		if cerr := result.ErrorOrNil(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := b.Connect(); err != nil {
		return err
	}
	glog.Infof("bridging %s to %s", conf.MQTT.Broker, conf.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	s := <-sig
	glog.Infof("%v received, shutting down", s)
	return nil
}
