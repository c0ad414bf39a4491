package wled

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Preset is a stored light configuration slot on the device.
type Preset struct {
	ID   int
	Name string
}

// Playlist is a stored preset sequence. On the wire it is a preset entry
// that carries a playlist object.
type Playlist struct {
	ID          int
	Name        string
	Presets     []int
	Durations   []int
	Transitions []int
	Repeat      int
	Shuffle     bool
}

// Presets holds everything parsed from /presets.json, split into plain
// presets and playlists.
type Presets struct {
	Presets   map[int]Preset
	Playlists map[int]Playlist
}

type presetEntry struct {
	Name     string             `json:"n"`
	Playlist *playlistEntryBody `json:"playlist"`
}

type playlistEntryBody struct {
	Presets     []int `json:"ps"`
	Durations   []int `json:"dur"`
	Transitions []int `json:"transition"`
	Repeat      int   `json:"repeat"`
	Shuffle     int   `json:"r"`
}

// ParsePresets decodes a raw /presets.json document. Slot 0 is the empty
// working slot and is skipped, as are keys that are not preset ids and
// entries that fail to decode. Only a document that is not a JSON object at
// all is an error.
func ParsePresets(data []byte) (*Presets, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	presets := &Presets{
		Presets:   make(map[int]Preset),
		Playlists: make(map[int]Playlist),
	}

	for key, value := range raw {
		id, err := strconv.Atoi(key)
		if err != nil || id <= 0 {
			continue
		}

		var entry presetEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			log.WithError(err).Warnf("Skipping invalid preset %d", id)
			continue
		}

		name := entry.Name
		if name == "" {
			name = fmt.Sprintf("Preset %d", id)
		}

		if entry.Playlist != nil {
			presets.Playlists[id] = Playlist{
				ID:          id,
				Name:        name,
				Presets:     entry.Playlist.Presets,
				Durations:   entry.Playlist.Durations,
				Transitions: entry.Playlist.Transitions,
				Repeat:      entry.Playlist.Repeat,
				Shuffle:     entry.Playlist.Shuffle != 0,
			}
			continue
		}

		presets.Presets[id] = Preset{ID: id, Name: name}
	}

	return presets, nil
}

// PresetNames returns all preset names ordered by slot id.
func (p *Presets) PresetNames() []string {
	ids := make([]int, 0, len(p.Presets))
	for id := range p.Presets {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, p.Presets[id].Name)
	}
	return names
}

// PlaylistNames returns all playlist names ordered by slot id.
func (p *Presets) PlaylistNames() []string {
	ids := make([]int, 0, len(p.Playlists))
	for id := range p.Playlists {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, p.Playlists[id].Name)
	}
	return names
}

// PresetByName looks up a preset by its display name.
func (p *Presets) PresetByName(name string) (Preset, bool) {
	for _, preset := range p.Presets {
		if preset.Name == name {
			return preset, true
		}
	}
	return Preset{}, false
}

// PlaylistByName looks up a playlist by its display name.
func (p *Presets) PlaylistByName(name string) (Playlist, bool) {
	for _, playlist := range p.Playlists {
		if playlist.Name == name {
			return playlist, true
		}
	}
	return Playlist{}, false
}

// PresetName returns the name for a preset id, or an empty string when the
// id is not a known preset.
func (p *Presets) PresetName(id int) string {
	if preset, ok := p.Presets[id]; ok {
		return preset.Name
	}
	return ""
}

// PlaylistName returns the name for a playlist id, or an empty string when
// the id is not a known playlist.
func (p *Presets) PlaylistName(id int) string {
	if playlist, ok := p.Playlists[id]; ok {
		return playlist.Name
	}
	return ""
}
