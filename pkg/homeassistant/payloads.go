// Package homeassistant exposes WLED devices to Home Assistant through MQTT
// discovery: one JSON-schema light and preset, playlist and palette selects
// per device.
package homeassistant

// DeviceInfo is the shared device block embedded in every discovery config,
// so Home Assistant groups all entities under one device.
type DeviceInfo struct {
	Identifiers      []string `json:"identifiers"`
	Name             string   `json:"name"`
	Manufacturer     string   `json:"manufacturer,omitempty"`
	Model            string   `json:"model,omitempty"`
	SWVersion        string   `json:"sw_version,omitempty"`
	ConfigurationURL string   `json:"configuration_url,omitempty"`
}

// LightConfig is the discovery payload for a JSON-schema MQTT light.
type LightConfig struct {
	Name                string     `json:"name"`
	UniqueID            string     `json:"unique_id"`
	Schema              string     `json:"schema"`
	StateTopic          string     `json:"state_topic"`
	CommandTopic        string     `json:"command_topic"`
	AvailabilityTopic   string     `json:"availability_topic"`
	Brightness          bool       `json:"brightness"`
	Effect              bool       `json:"effect"`
	EffectList          []string   `json:"effect_list,omitempty"`
	SupportedColorModes []string   `json:"supported_color_modes,omitempty"`
	Device              DeviceInfo `json:"device"`
}

// SelectConfig is the discovery payload for an MQTT select.
type SelectConfig struct {
	Name              string     `json:"name"`
	UniqueID          string     `json:"unique_id"`
	StateTopic        string     `json:"state_topic"`
	CommandTopic      string     `json:"command_topic"`
	AvailabilityTopic string     `json:"availability_topic"`
	Options           []string   `json:"options"`
	Device            DeviceInfo `json:"device"`
}

// LightState is the JSON-schema light state payload, published on the state
// topic and received on the command topic.
type LightState struct {
	State      string      `json:"state,omitempty"`
	Brightness *int        `json:"brightness,omitempty"`
	Transition *float64    `json:"transition,omitempty"`
	Effect     string      `json:"effect,omitempty"`
	Color      *LightColor `json:"color,omitempty"`
}

// LightColor carries either RGB components or hue/saturation, depending on
// what Home Assistant sends.
type LightColor struct {
	R *int     `json:"r,omitempty"`
	G *int     `json:"g,omitempty"`
	B *int     `json:"b,omitempty"`
	H *float64 `json:"h,omitempty"`
	S *float64 `json:"s,omitempty"`
}
