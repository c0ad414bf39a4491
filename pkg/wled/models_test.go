package wled

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainSeg(t *testing.T) {
	state := State{
		MainSegment: 1,
		Segments: []Segment{
			{ID: 0, Effect: 1},
			{ID: 1, Effect: 2},
		},
	}
	seg := state.MainSeg()
	require.NotNil(t, seg)
	assert.Equal(t, 2, seg.Effect)
}

func TestMainSegFallsBackToFirst(t *testing.T) {
	state := State{
		MainSegment: 5,
		Segments:    []Segment{{ID: 0, Effect: 7}},
	}
	seg := state.MainSeg()
	require.NotNil(t, seg)
	assert.Equal(t, 7, seg.Effect)

	empty := State{}
	assert.Nil(t, empty.MainSeg())
}

func TestPrimaryColor(t *testing.T) {
	state := State{
		Segments: []Segment{{ID: 0, Colors: [][]int{{255, 128, 0, 64}}}},
	}
	r, g, b, ok := state.PrimaryColor()
	require.True(t, ok)
	assert.Equal(t, []int{255, 128, 0}, []int{r, g, b})

	noColor := State{Segments: []Segment{{ID: 0}}}
	_, _, _, ok = noColor.PrimaryColor()
	assert.False(t, ok)
}

func TestUniqueID(t *testing.T) {
	info := Info{MAC: "AA:BB:CC:DD:EE:FF"}
	assert.Equal(t, "aabbccddeeff", info.UniqueID())

	info = Info{MAC: "aa-bb-cc-dd-ee-ff"}
	assert.Equal(t, "aabbccddeeff", info.UniqueID())

	assert.Equal(t, "", (&Info{}).UniqueID())
}

func TestDisplayNameFallbackChain(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{name: "configured name", info: Info{Name: "Kitchen", MAC: "aabbccddeeff"}, want: "Kitchen"},
		{name: "mac fallback", info: Info{MAC: "aa:bb:cc:dd:ee:ff"}, want: "WLED-DDEEFF"},
		{name: "arch fallback", info: Info{Arch: "esp32"}, want: "WLED esp32"},
		{name: "last resort", info: Info{}, want: "WLED Device"},
		{name: "whitespace name ignored", info: Info{Name: "   ", Arch: "esp8266"}, want: "WLED esp8266"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.DisplayName())
		})
	}
}

func TestEffectAndPaletteNameOutOfRange(t *testing.T) {
	full := FullState{
		State:    State{Segments: []Segment{{ID: 0, Effect: 10, Palette: 10}}},
		Effects:  []string{"Solid"},
		Palettes: []string{"Default"},
	}
	assert.Equal(t, "", full.EffectName())
	assert.Equal(t, "", full.PaletteName())
}

func TestStateUpdateMarshalsOnlySetFields(t *testing.T) {
	update := StateUpdate{
		On:       boolPtr(true),
		Segments: []SegmentUpdate{{Effect: intPtr(2)}},
	}
	data, err := json.Marshal(update)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))

	want := map[string]interface{}{
		"on":  true,
		"seg": []interface{}{map[string]interface{}{"fx": float64(2)}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestStateUpdateIsZero(t *testing.T) {
	assert.True(t, StateUpdate{}.IsZero())
	assert.True(t, StateUpdate{Segments: []SegmentUpdate{{}}}.IsZero())
	assert.False(t, StateUpdate{On: boolPtr(false)}.IsZero())
	assert.False(t, StateUpdate{Segments: []SegmentUpdate{{Palette: intPtr(1)}}}.IsZero())
}
