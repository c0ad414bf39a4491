package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/splattner/wled-bridge/pkg/config"
	"github.com/splattner/wled-bridge/pkg/discovery"
	"github.com/splattner/wled-bridge/pkg/homeassistant"
	"github.com/splattner/wled-bridge/pkg/wled"
)

const probeTimeout = 30 * time.Second

// WledBridge wires everything together: the MQTT connection, one
// coordinator plus entity set per device, and the discovery loop.
type WledBridge struct {
	mqttClient mqtt.Client
	wg         sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	devicesMu sync.Mutex
	devices   map[string]*bridgeDevice

	config *config.Config
}

// bridgeDevice is one adopted WLED device and its running parts.
type bridgeDevice struct {
	host     string
	entities *homeassistant.Entities
}

// NewWledBridge connects, adopts the configured devices, starts discovery
// and blocks until the bridge is shut down by a signal.
func (e *WledBridge) NewWledBridge(cfg *config.Config) {

	e.config = cfg
	e.devices = make(map[string]*bridgeDevice)
	e.ctx, e.cancel = context.WithCancel(context.Background())

	log.Infof("Connecting to MQTT Broker: %s", cfg.MQTT.Broker)

	opts := mqtt.NewClientOptions().AddBroker(cfg.MQTT.Broker).SetClientID(cfg.MQTT.ClientID)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetProtocolVersion(3)
	opts.SetOrderMatters(false)
	opts.SetUsername(cfg.MQTT.Username)
	opts.SetPassword(cfg.MQTT.Password)
	opts.SetWill(e.bridgeAvailabilityTopic(), "offline", 0, true)

	e.mqttClient = mqtt.NewClient(opts)
	if token := e.mqttClient.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal("MQTT connect failed: ", token.Error())
	}
	e.publish(e.bridgeAvailabilityTopic(), "online")

	for _, dev := range cfg.Devices {
		e.adoptDevice(dev.Host, dev.Name)
	}

	if cfg.DiscoveryEnabled {
		browser := discovery.NewBrowser(cfg.DiscoveryInterval, func(candidate discovery.Candidate) {
			e.adoptDevice(candidate.Host, candidate.Name)
		})
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			browser.Run(e.ctx)
		}()
	}

	e.waitForShutdown()
}

// adoptDevice validates and probes a host and, when it is a reachable WLED
// device the bridge does not know yet, starts its coordinator, entities and
// socket listener. Duplicates are detected by MAC, so a device reached
// through two different hosts is adopted once.
func (e *WledBridge) adoptDevice(host, name string) {

	if err := wled.ValidateHost(host); err != nil {
		log.WithError(err).Warnf("Rejecting device host %q", host)
		return
	}

	client := wled.NewClient(host)

	probeCtx, cancel := context.WithTimeout(e.ctx, probeTimeout)
	defer cancel()

	info, err := client.GetInfo(probeCtx)
	if err != nil {
		log.WithError(err).Warnf("Device %s not reachable, not adopting", host)
		return
	}

	id := info.UniqueID()
	if id == "" {
		log.Warnf("Device %s reports no MAC, not adopting", host)
		return
	}

	e.devicesMu.Lock()
	if _, exists := e.devices[id]; exists {
		e.devicesMu.Unlock()
		log.Debugf("Device %s (%s) already adopted", id, host)
		return
	}

	displayName := info.DisplayName()
	if name != "" {
		displayName = name
	}
	log.Infof("Adopting WLED device %s (%s, %s)", displayName, host, id)

	coordinator := wled.NewCoordinator(client)
	coordinator.PollInterval = e.config.PollInterval
	coordinator.PresetsInterval = e.config.PresetsInterval

	entities := homeassistant.NewEntities(e.mqttClient, coordinator, info, host, e.config.TopicPrefix, e.config.DiscoveryPrefix)
	entities.Start(e.ctx)

	e.devices[id] = &bridgeDevice{host: host, entities: entities}
	e.devicesMu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		coordinator.Run(e.ctx)
	}()

	if e.config.SocketEnabled {
		listener := wled.NewSocketListener(host, coordinator)
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			listener.Run(e.ctx)
		}()
	}
}

func (e *WledBridge) waitForShutdown() {

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	log.Infof("Received %s, shutting down", sig)

	e.cancel()
	e.wg.Wait()

	e.devicesMu.Lock()
	for _, dev := range e.devices {
		dev.entities.Stop()
	}
	e.devicesMu.Unlock()

	e.publish(e.bridgeAvailabilityTopic(), "offline")
	e.mqttClient.Disconnect(250)
}

func (e *WledBridge) publish(topic, payload string) {
	if token := e.mqttClient.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		log.Error("MQTT publish failed: ", token.Error())
	}
}

func (e *WledBridge) bridgeAvailabilityTopic() string {
	return fmt.Sprintf("%s/bridge/availability", e.config.TopicPrefix)
}
