package wled

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePresets(t *testing.T) {
	doc := `{
		"0": {},
		"1": {"n": "Sunset"},
		"2": {},
		"3": {"n": "Party Mix", "playlist": {"ps": [1, 2], "dur": [100, 200], "transition": [7, 7], "repeat": 3, "r": 1}},
		"not-a-number": {"n": "Garbage"},
		"5": "malformed entry"
	}`

	presets, err := ParsePresets([]byte(doc))
	require.NoError(t, err)

	// slot 0, the non-numeric key and the malformed entry are skipped
	assert.Len(t, presets.Presets, 2)
	assert.Len(t, presets.Playlists, 1)

	assert.Equal(t, "Sunset", presets.Presets[1].Name)
	assert.Equal(t, "Preset 2", presets.Presets[2].Name)

	playlist := presets.Playlists[3]
	assert.Equal(t, "Party Mix", playlist.Name)
	assert.Equal(t, []int{1, 2}, playlist.Presets)
	assert.Equal(t, []int{100, 200}, playlist.Durations)
	assert.Equal(t, 3, playlist.Repeat)
	assert.True(t, playlist.Shuffle)
}

func TestParsePresetsNotAnObject(t *testing.T) {
	_, err := ParsePresets([]byte(`[1, 2, 3]`))
	assert.Error(t, err)
}

func TestPresetNamesOrderedBySlot(t *testing.T) {
	presets, err := ParsePresets([]byte(`{"9": {"n": "Last"}, "1": {"n": "First"}, "4": {"n": "Middle"}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "Middle", "Last"}, presets.PresetNames())
}

func TestPresetLookups(t *testing.T) {
	presets, err := ParsePresets([]byte(`{"1": {"n": "Sunset"}, "2": {"n": "Party", "playlist": {"ps": [1]}}}`))
	require.NoError(t, err)

	preset, ok := presets.PresetByName("Sunset")
	require.True(t, ok)
	assert.Equal(t, 1, preset.ID)

	playlist, ok := presets.PlaylistByName("Party")
	require.True(t, ok)
	assert.Equal(t, 2, playlist.ID)

	_, ok = presets.PresetByName("Party")
	assert.False(t, ok)

	assert.Equal(t, "", presets.PresetName(99))
	assert.Equal(t, "", presets.PlaylistName(1))
}
