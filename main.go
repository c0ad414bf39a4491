package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	log "github.com/sirupsen/logrus"

	"github.com/splattner/wled-bridge/pkg/config"
)

const envLogLevel = "LOG_LEVEL"
const defaultLogLevel = log.InfoLevel

func main() {

	logLevel := getLogLevel()
	log.SetLevel(logLevel)

	p := argparse.NewParser("wled-bridge", "Bridge WLED devices to Home Assistant via MQTT discovery")

	configFile := p.String("c", "config", &argparse.Options{Required: false, Help: "Path to a YAML config file"})

	mqttBroker := p.String("", "mqttbroker", &argparse.Options{Required: false, Help: "MQTT broker to connect to, e.g. tcp://host:1883"})
	mqttUsername := p.String("", "mqttusername", &argparse.Options{Required: false, Help: "MQTT Username"})
	mqttPassword := p.String("", "mqttpassword", &argparse.Options{Required: false, Help: "MQTT Password"})
	mqttClientID := p.String("", "mqttclientid", &argparse.Options{Required: false, Help: "MQTT Client ID"})

	topicPrefix := p.String("", "topicprefix", &argparse.Options{Required: false, Help: "Topic prefix for entity state and commands"})
	discoveryPrefix := p.String("", "discoveryprefix", &argparse.Options{Required: false, Help: "Home Assistant MQTT discovery prefix"})

	devices := p.StringList("d", "device", &argparse.Options{Required: false, Help: "Static WLED device host or IP, repeatable"})

	discoveryDisabled := p.Flag("", "discoveryDisabled", &argparse.Options{Required: false, Help: "disable mDNS discovery"})
	socketDisabled := p.Flag("", "socketDisabled", &argparse.Options{Required: false, Help: "disable the per-device WebSocket listener"})

	err := p.Parse(os.Args)
	if err != nil {
		// In case of error print error and print usage
		// This can also be done by passing -h or --help flags
		fmt.Print(p.Usage(err))
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.WithError(err).Fatal("Loading configuration failed")
	}

	// Flags beat everything the config loader layered up.
	if *mqttBroker != "" {
		cfg.MQTT.Broker = *mqttBroker
	}
	if *mqttUsername != "" {
		cfg.MQTT.Username = *mqttUsername
	}
	if *mqttPassword != "" {
		cfg.MQTT.Password = *mqttPassword
	}
	if *mqttClientID != "" {
		cfg.MQTT.ClientID = *mqttClientID
	}
	if *topicPrefix != "" {
		cfg.TopicPrefix = *topicPrefix
	}
	if *discoveryPrefix != "" {
		cfg.DiscoveryPrefix = *discoveryPrefix
	}
	for _, host := range *devices {
		cfg.Devices = append(cfg.Devices, config.StaticDevice{Host: host})
	}
	if *discoveryDisabled {
		cfg.DiscoveryEnabled = false
	}
	if *socketDisabled {
		cfg.SocketEnabled = false
	}

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	bridge := new(WledBridge)
	bridge.NewWledBridge(cfg)

}

func getLogLevel() log.Level {
	levelString, exists := os.LookupEnv(envLogLevel)
	if !exists {
		return defaultLogLevel
	}

	level, err := log.ParseLevel(levelString)
	if err != nil {
		log.Errorf("error parsing %s: %v", envLogLevel, err)
		return defaultLogLevel
	}

	return level
}
