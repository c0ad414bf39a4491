package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/splattner/wled-bridge/pkg/wled"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
	optionNone     = "None"

	commandTimeout = 30 * time.Second
)

// Entities publishes one WLED device to Home Assistant: a light plus
// preset, playlist and palette selects, with availability, all via MQTT
// discovery. Commands received on the set topics are translated into WLED
// API calls through the coordinator.
type Entities struct {
	mqttClient  mqtt.Client
	coordinator *wled.Coordinator

	deviceID        string
	host            string
	name            string
	topicPrefix     string
	discoveryPrefix string

	ctx context.Context
	log *log.Entry

	mu             sync.Mutex
	effectList     []string
	presetOptions  []string
	playlistOpts   []string
	paletteOptions []string
	configured     bool
}

// NewEntities creates the entity set for one device. info is the probe
// result used for the discovery device block; live state follows through the
// coordinator callbacks.
func NewEntities(mqttClient mqtt.Client, coordinator *wled.Coordinator, info *wled.Info, host, topicPrefix, discoveryPrefix string) *Entities {
	return &Entities{
		mqttClient:      mqttClient,
		coordinator:     coordinator,
		deviceID:        info.UniqueID(),
		host:            host,
		name:            info.DisplayName(),
		topicPrefix:     topicPrefix,
		discoveryPrefix: discoveryPrefix,
		log:             log.WithField("wled", host),
	}
}

// Start subscribes to the command topics and registers for coordinator
// updates. ctx bounds the lifetime of command executions.
func (e *Entities) Start(ctx context.Context) {
	e.ctx = ctx

	e.subscribe(e.commandTopic("light"), e.handleLightCommand)
	e.subscribe(e.commandTopic("preset"), e.handleSelectCommand("preset"))
	e.subscribe(e.commandTopic("playlist"), e.handleSelectCommand("playlist"))
	e.subscribe(e.commandTopic("palette"), e.handleSelectCommand("palette"))

	e.coordinator.OnUpdate(e.publishState)
	e.coordinator.OnAvailability(e.publishAvailability)
}

// Stop marks the device offline and removes the retained discovery configs
// so Home Assistant drops the entities.
func (e *Entities) Stop() {
	e.publishAvailability(false)
	for _, topic := range e.configTopics() {
		e.publish(topic, []byte{}, true)
	}
}

// publishState pushes discovery configs (when the option lists changed) and
// the current entity states.
func (e *Entities) publishState(snap wled.Snapshot) {
	if snap.Full == nil {
		return
	}

	e.publishDiscovery(snap)

	state := LightState{State: "OFF"}
	if snap.Full.State.On {
		state.State = "ON"
	}
	bri := snap.Full.State.Brightness
	state.Brightness = &bri
	if name := snap.Full.EffectName(); name != "" {
		state.Effect = name
	}
	if r, g, b, ok := snap.Full.State.PrimaryColor(); ok {
		state.Color = &LightColor{R: &r, G: &g, B: &b}
	}

	payload, err := json.Marshal(state)
	if err != nil {
		e.log.WithError(err).Error("Encoding light state failed")
		return
	}
	e.publish(e.stateTopic("light"), payload, true)

	e.publish(e.stateTopic("preset"), []byte(e.currentOption(snap, "preset")), true)
	e.publish(e.stateTopic("playlist"), []byte(e.currentOption(snap, "playlist")), true)
	e.publish(e.stateTopic("palette"), []byte(e.currentOption(snap, "palette")), true)
}

func (e *Entities) currentOption(snap wled.Snapshot, kind string) string {
	switch kind {
	case "preset":
		if snap.Presets != nil && snap.Full.State.Preset > 0 {
			if name := snap.Presets.PresetName(snap.Full.State.Preset); name != "" {
				return name
			}
		}
	case "playlist":
		if snap.Presets != nil && snap.Full.State.Playlist > 0 {
			if name := snap.Presets.PlaylistName(snap.Full.State.Playlist); name != "" {
				return name
			}
		}
	case "palette":
		if name := snap.Full.PaletteName(); name != "" {
			return name
		}
	}
	return optionNone
}

// publishDiscovery sends the retained discovery configs. Reissued whenever
// an option list changes so Home Assistant picks up new presets, effects or
// palettes.
func (e *Entities) publishDiscovery(snap wled.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	effects := snap.Full.Effects
	palettes := optionsWithNone(snap.Full.Palettes)
	var presets, playlists []string
	if snap.Presets != nil {
		presets = optionsWithNone(snap.Presets.PresetNames())
		playlists = optionsWithNone(snap.Presets.PlaylistNames())
	} else {
		presets = []string{optionNone}
		playlists = []string{optionNone}
	}

	if e.configured &&
		equalOptions(effects, e.effectList) &&
		equalOptions(presets, e.presetOptions) &&
		equalOptions(playlists, e.playlistOpts) &&
		equalOptions(palettes, e.paletteOptions) {
		return
	}
	e.effectList = effects
	e.presetOptions = presets
	e.playlistOpts = playlists
	e.paletteOptions = palettes
	e.configured = true

	device := DeviceInfo{
		Identifiers:      []string{e.deviceID},
		Name:             e.name,
		Manufacturer:     snap.Full.Info.Brand,
		Model:            snap.Full.Info.Product,
		SWVersion:        snap.Full.Info.Version,
		ConfigurationURL: fmt.Sprintf("http://%s", e.host),
	}

	light := LightConfig{
		Name:                e.name,
		UniqueID:            fmt.Sprintf("wled_%s_light", e.deviceID),
		Schema:              "json",
		StateTopic:          e.stateTopic("light"),
		CommandTopic:        e.commandTopic("light"),
		AvailabilityTopic:   e.availabilityTopic(),
		Brightness:          true,
		Effect:              true,
		EffectList:          effects,
		SupportedColorModes: []string{"rgb"},
		Device:              device,
	}
	e.publishConfig("light", "light", light)

	selects := []struct {
		object  string
		label   string
		options []string
	}{
		{"preset", "Preset", presets},
		{"playlist", "Playlist", playlists},
		{"palette", "Palette", palettes},
	}
	for _, sel := range selects {
		config := SelectConfig{
			Name:              fmt.Sprintf("%s %s", e.name, sel.label),
			UniqueID:          fmt.Sprintf("wled_%s_%s", e.deviceID, sel.object),
			StateTopic:        e.stateTopic(sel.object),
			CommandTopic:      e.commandTopic(sel.object),
			AvailabilityTopic: e.availabilityTopic(),
			Options:           sel.options,
			Device:            device,
		}
		e.publishConfig("select", sel.object, config)
	}
}

func (e *Entities) publishConfig(component, object string, config interface{}) {
	payload, err := json.Marshal(config)
	if err != nil {
		e.log.WithError(err).Errorf("Encoding %s config failed", object)
		return
	}
	e.publish(e.discoveryTopic(component, object), payload, true)
}

func (e *Entities) publishAvailability(available bool) {
	payload := payloadOffline
	if available {
		payload = payloadOnline
	}
	e.publish(e.availabilityTopic(), []byte(payload), true)
}

func (e *Entities) handleLightCommand(_ mqtt.Client, msg mqtt.Message) {
	snap := e.coordinator.Data()
	if !snap.Available || snap.Full == nil {
		e.log.Warn("Dropping light command, device unavailable")
		return
	}

	var cmd LightState
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		e.log.WithError(err).Warn("Dropping unparseable light command")
		return
	}

	update, err := e.lightUpdate(cmd, snap)
	if err != nil {
		e.log.WithError(err).Warn("Dropping light command")
		return
	}

	e.send(func(ctx context.Context, client *wled.Client) error {
		return client.SetState(ctx, update)
	})
}

// lightUpdate translates a Home Assistant light command into a WLED state
// patch. Transition comes in seconds and WLED wants 100ms units.
func (e *Entities) lightUpdate(cmd LightState, snap wled.Snapshot) (wled.StateUpdate, error) {
	var update wled.StateUpdate

	switch strings.ToUpper(cmd.State) {
	case "ON":
		on := true
		update.On = &on
	case "OFF":
		on := false
		update.On = &on
	case "":
	default:
		return update, fmt.Errorf("unknown state %q", cmd.State)
	}

	update.Brightness = cmd.Brightness
	if cmd.Transition != nil {
		t := int(*cmd.Transition * 10)
		update.Transition = &t
	}

	var seg wled.SegmentUpdate
	if cmd.Effect != "" {
		idx := indexOf(snap.Full.Effects, cmd.Effect)
		if idx < 0 {
			return update, fmt.Errorf("unknown effect %q", cmd.Effect)
		}
		seg.Effect = &idx
	}
	if cmd.Color != nil {
		r, g, b, err := resolveColor(*cmd.Color)
		if err != nil {
			return update, err
		}
		seg.Colors = [][]int{{r, g, b}}
	}
	if seg.Effect != nil || len(seg.Colors) > 0 {
		update.Segments = []wled.SegmentUpdate{seg}
	}

	return update, nil
}

func (e *Entities) handleSelectCommand(kind string) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		snap := e.coordinator.Data()
		if !snap.Available || snap.Full == nil {
			e.log.Warnf("Dropping %s command, device unavailable", kind)
			return
		}

		option := string(msg.Payload())
		cmd, err := e.selectCommand(kind, option, snap)
		if err != nil {
			e.log.WithError(err).Warnf("Dropping %s command", kind)
			return
		}
		e.send(cmd)
	}
}

func (e *Entities) selectCommand(kind, option string, snap wled.Snapshot) (func(context.Context, *wled.Client) error, error) {
	switch kind {
	case "preset":
		if option == optionNone {
			return func(ctx context.Context, client *wled.Client) error {
				return client.SetPreset(ctx, -1)
			}, nil
		}
		if snap.Presets == nil {
			return nil, fmt.Errorf("no presets known")
		}
		preset, ok := snap.Presets.PresetByName(option)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q", option)
		}
		return func(ctx context.Context, client *wled.Client) error {
			return client.SetPreset(ctx, preset.ID)
		}, nil

	case "playlist":
		if option == optionNone {
			return func(ctx context.Context, client *wled.Client) error {
				return client.ActivatePlaylist(ctx, 0)
			}, nil
		}
		if snap.Presets == nil {
			return nil, fmt.Errorf("no playlists known")
		}
		playlist, ok := snap.Presets.PlaylistByName(option)
		if !ok {
			return nil, fmt.Errorf("unknown playlist %q", option)
		}
		return func(ctx context.Context, client *wled.Client) error {
			return client.ActivatePlaylist(ctx, playlist.ID)
		}, nil

	case "palette":
		idx := indexOf(snap.Full.Palettes, option)
		if idx < 0 {
			return nil, fmt.Errorf("unknown palette %q", option)
		}
		return func(ctx context.Context, client *wled.Client) error {
			return client.SetState(ctx, wled.StateUpdate{
				Segments: []wled.SegmentUpdate{{Palette: &idx}},
			})
		}, nil
	}
	return nil, fmt.Errorf("unknown select %q", kind)
}

func (e *Entities) send(cmd func(context.Context, *wled.Client) error) {
	ctx, cancel := context.WithTimeout(e.ctx, commandTimeout)
	defer cancel()
	if err := e.coordinator.SendCommand(ctx, cmd); err != nil {
		e.log.WithError(err).Error("Command failed")
	}
}

func (e *Entities) subscribe(topic string, handler mqtt.MessageHandler) {
	if token := e.mqttClient.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
		e.log.WithError(token.Error()).Errorf("MQTT subscribe to %s failed", topic)
	}
}

func (e *Entities) publish(topic string, payload []byte, retained bool) {
	if token := e.mqttClient.Publish(topic, 0, retained, payload); token.Wait() && token.Error() != nil {
		e.log.WithError(token.Error()).Errorf("MQTT publish to %s failed", topic)
	}
}

func (e *Entities) stateTopic(object string) string {
	return fmt.Sprintf("%s/%s/%s/state", e.topicPrefix, e.deviceID, object)
}

func (e *Entities) commandTopic(object string) string {
	return fmt.Sprintf("%s/%s/%s/set", e.topicPrefix, e.deviceID, object)
}

func (e *Entities) availabilityTopic() string {
	return fmt.Sprintf("%s/%s/availability", e.topicPrefix, e.deviceID)
}

func (e *Entities) discoveryTopic(component, object string) string {
	return fmt.Sprintf("%s/%s/wled_%s/%s/config", e.discoveryPrefix, component, e.deviceID, object)
}

func (e *Entities) configTopics() []string {
	return []string{
		e.discoveryTopic("light", "light"),
		e.discoveryTopic("select", "preset"),
		e.discoveryTopic("select", "playlist"),
		e.discoveryTopic("select", "palette"),
	}
}

func optionsWithNone(options []string) []string {
	return append([]string{optionNone}, options...)
}

func equalOptions(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func indexOf(list []string, value string) int {
	for i, v := range list {
		if v == value {
			return i
		}
	}
	return -1
}
