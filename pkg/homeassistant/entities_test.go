package homeassistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splattner/wled-bridge/pkg/wled"
)

func testEntities(t *testing.T) *Entities {
	t.Helper()
	info := &wled.Info{
		Name:    "Desk",
		MAC:     "aa:bb:cc:dd:ee:ff",
		Brand:   "WLED",
		Product: "FOSS",
		Version: "0.14.0",
	}
	return NewEntities(nil, nil, info, "192.168.1.50", "wled-bridge", "homeassistant")
}

func testSnapshot(t *testing.T) wled.Snapshot {
	t.Helper()
	presets, err := wled.ParsePresets([]byte(`{"1":{"n":"Sunset"},"2":{"n":"Party","playlist":{"ps":[1]}}}`))
	require.NoError(t, err)

	return wled.Snapshot{
		Full: &wled.FullState{
			State: wled.State{
				On:         true,
				Brightness: 128,
				Preset:     1,
				Segments:   []wled.Segment{{ID: 0, Effect: 1, Palette: 2, Colors: [][]int{{255, 0, 0}}}},
			},
			Info:     wled.Info{Name: "Desk"},
			Effects:  []string{"Solid", "Blink", "Breathe"},
			Palettes: []string{"Default", "Random", "Rainbow"},
		},
		Presets:   presets,
		Available: true,
	}
}

func TestTopics(t *testing.T) {
	e := testEntities(t)

	assert.Equal(t, "wled-bridge/aabbccddeeff/light/state", e.stateTopic("light"))
	assert.Equal(t, "wled-bridge/aabbccddeeff/light/set", e.commandTopic("light"))
	assert.Equal(t, "wled-bridge/aabbccddeeff/availability", e.availabilityTopic())
	assert.Equal(t, "homeassistant/light/wled_aabbccddeeff/light/config", e.discoveryTopic("light", "light"))
	assert.Equal(t, "homeassistant/select/wled_aabbccddeeff/preset/config", e.discoveryTopic("select", "preset"))
}

func TestLightUpdate(t *testing.T) {
	e := testEntities(t)
	snap := testSnapshot(t)

	bri := 200
	transition := 1.5
	update, err := e.lightUpdate(LightState{
		State:      "ON",
		Brightness: &bri,
		Transition: &transition,
		Effect:     "Blink",
	}, snap)
	require.NoError(t, err)

	require.NotNil(t, update.On)
	assert.True(t, *update.On)
	assert.Equal(t, 200, *update.Brightness)
	// seconds to WLED 100ms units
	assert.Equal(t, 15, *update.Transition)
	require.Len(t, update.Segments, 1)
	assert.Equal(t, 1, *update.Segments[0].Effect)
}

func TestLightUpdateOff(t *testing.T) {
	e := testEntities(t)

	update, err := e.lightUpdate(LightState{State: "OFF"}, testSnapshot(t))
	require.NoError(t, err)
	require.NotNil(t, update.On)
	assert.False(t, *update.On)
	assert.Empty(t, update.Segments)
}

func TestLightUpdateColor(t *testing.T) {
	e := testEntities(t)

	r, g, b := 0, 128, 255
	update, err := e.lightUpdate(LightState{Color: &LightColor{R: &r, G: &g, B: &b}}, testSnapshot(t))
	require.NoError(t, err)
	require.Len(t, update.Segments, 1)
	assert.Equal(t, [][]int{{0, 128, 255}}, update.Segments[0].Colors)
}

func TestLightUpdateRejectsUnknownEffect(t *testing.T) {
	e := testEntities(t)

	_, err := e.lightUpdate(LightState{Effect: "Nope"}, testSnapshot(t))
	assert.ErrorContains(t, err, "unknown effect")
}

func TestLightUpdateRejectsUnknownState(t *testing.T) {
	e := testEntities(t)

	_, err := e.lightUpdate(LightState{State: "MAYBE"}, testSnapshot(t))
	assert.ErrorContains(t, err, "unknown state")
}

func TestSelectCommandLookups(t *testing.T) {
	e := testEntities(t)
	snap := testSnapshot(t)

	tests := []struct {
		name    string
		kind    string
		option  string
		wantErr string
	}{
		{name: "known preset", kind: "preset", option: "Sunset"},
		{name: "preset none", kind: "preset", option: "None"},
		{name: "unknown preset", kind: "preset", option: "Nope", wantErr: "unknown preset"},
		{name: "known playlist", kind: "playlist", option: "Party"},
		{name: "playlist none", kind: "playlist", option: "None"},
		{name: "unknown playlist", kind: "playlist", option: "Nope", wantErr: "unknown playlist"},
		{name: "known palette", kind: "palette", option: "Rainbow"},
		{name: "unknown palette", kind: "palette", option: "Nope", wantErr: "unknown palette"},
		{name: "unknown kind", kind: "nope", option: "x", wantErr: "unknown select"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := e.selectCommand(tt.kind, tt.option, snap)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.NotNil(t, cmd)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestCurrentOption(t *testing.T) {
	e := testEntities(t)
	snap := testSnapshot(t)

	assert.Equal(t, "Sunset", e.currentOption(snap, "preset"))
	assert.Equal(t, "None", e.currentOption(snap, "playlist"))
	assert.Equal(t, "Rainbow", e.currentOption(snap, "palette"))

	snap.Full.State.Preset = 0
	assert.Equal(t, "None", e.currentOption(snap, "preset"))
}

func TestOptionsWithNone(t *testing.T) {
	assert.Equal(t, []string{"None", "A", "B"}, optionsWithNone([]string{"A", "B"}))
	assert.Equal(t, []string{"None"}, optionsWithNone(nil))
}
