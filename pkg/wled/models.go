package wled

import (
	"fmt"
	"strings"
)

// State is the device state as returned by /json/state.
type State struct {
	On           bool      `json:"on"`
	Brightness   int       `json:"bri"`
	Transition   int       `json:"transition"`
	Preset       int       `json:"ps"`
	Playlist     int       `json:"pl"`
	LiveOverride int       `json:"lor"`
	MainSegment  int       `json:"mainseg"`
	Segments     []Segment `json:"seg"`
}

// Segment is one LED segment within a state.
type Segment struct {
	ID         int     `json:"id"`
	Start      int     `json:"start"`
	Stop       int     `json:"stop"`
	Length     int     `json:"len"`
	On         bool    `json:"on"`
	Brightness int     `json:"bri"`
	Colors     [][]int `json:"col"`
	Effect     int     `json:"fx"`
	Speed      int     `json:"sx"`
	Intensity  int     `json:"ix"`
	Palette    int     `json:"pal"`
	Selected   bool    `json:"sel"`
	Reversed   bool    `json:"rev"`
}

// MainSeg returns the segment the device treats as primary, or nil when the
// state carries no segments.
func (s *State) MainSeg() *Segment {
	for i := range s.Segments {
		if s.Segments[i].ID == s.MainSegment {
			return &s.Segments[i]
		}
	}
	if len(s.Segments) > 0 {
		return &s.Segments[0]
	}
	return nil
}

// PrimaryColor returns the RGB components of the main segment's first color
// slot. Extra components (the white channel on RGBW strips) are dropped.
func (s *State) PrimaryColor() (r, g, b int, ok bool) {
	seg := s.MainSeg()
	if seg == nil || len(seg.Colors) == 0 || len(seg.Colors[0]) < 3 {
		return 0, 0, 0, false
	}
	c := seg.Colors[0]
	return c[0], c[1], c[2], true
}

// Info is the device metadata as returned by /json/info.
type Info struct {
	Name         string  `json:"name"`
	Version      string  `json:"ver"`
	BuildID      int64   `json:"vid"`
	MAC          string  `json:"mac"`
	IP           string  `json:"ip"`
	Arch         string  `json:"arch"`
	Brand        string  `json:"brand"`
	Product      string  `json:"product"`
	UDPPort      int     `json:"udpport"`
	EffectCount  int     `json:"fxcount"`
	PaletteCount int     `json:"palcount"`
	Uptime       int64   `json:"uptime"`
	FreeHeap     int64   `json:"freeheap"`
	LEDs         LEDInfo `json:"leds"`
}

// LEDInfo describes the LED hardware attached to a device.
type LEDInfo struct {
	Count       int  `json:"count"`
	RGBW        bool `json:"rgbw"`
	FPS         int  `json:"fps"`
	Power       int  `json:"pwr"`
	MaxPower    int  `json:"maxpwr"`
	MaxSegments int  `json:"maxseg"`
}

// UniqueID returns the normalized MAC address used to identify a device, or
// an empty string when the device did not report one.
func (i *Info) UniqueID() string {
	mac := strings.ToLower(i.MAC)
	mac = strings.ReplaceAll(mac, ":", "")
	mac = strings.ReplaceAll(mac, "-", "")
	return mac
}

// DisplayName returns a human readable device name. Devices without a
// configured name fall back to a MAC derived name, then to the architecture.
func (i *Info) DisplayName() string {
	if name := strings.TrimSpace(i.Name); name != "" {
		return name
	}
	if mac := i.UniqueID(); len(mac) >= 6 {
		return fmt.Sprintf("WLED-%s", strings.ToUpper(mac[len(mac)-6:]))
	}
	if i.Arch != "" {
		return fmt.Sprintf("WLED %s", i.Arch)
	}
	return "WLED Device"
}

// FullState is the combined response of /json: state, metadata and the
// device's effect and palette name tables.
type FullState struct {
	State    State    `json:"state"`
	Info     Info     `json:"info"`
	Effects  []string `json:"effects"`
	Palettes []string `json:"palettes"`
}

// EffectName resolves the main segment's active effect against the effect
// table. Returns an empty string when the index is out of range.
func (f *FullState) EffectName() string {
	seg := f.State.MainSeg()
	if seg == nil || seg.Effect < 0 || seg.Effect >= len(f.Effects) {
		return ""
	}
	return f.Effects[seg.Effect]
}

// PaletteName resolves the main segment's active palette against the palette
// table. Returns an empty string when the index is out of range.
func (f *FullState) PaletteName() string {
	seg := f.State.MainSeg()
	if seg == nil || seg.Palette < 0 || seg.Palette >= len(f.Palettes) {
		return ""
	}
	return f.Palettes[seg.Palette]
}

// StateUpdate is a partial state sent to /json/state. Only set fields are
// transmitted, everything else keeps its current value on the device.
type StateUpdate struct {
	On         *bool           `json:"on,omitempty"`
	Brightness *int            `json:"bri,omitempty"`
	Transition *int            `json:"transition,omitempty"`
	Preset     *int            `json:"ps,omitempty"`
	Playlist   *int            `json:"pl,omitempty"`
	Segments   []SegmentUpdate `json:"seg,omitempty"`
}

// SegmentUpdate is a partial segment within a StateUpdate. Without an ID the
// device applies it to its first segment.
type SegmentUpdate struct {
	ID        *int    `json:"id,omitempty"`
	Colors    [][]int `json:"col,omitempty"`
	Effect    *int    `json:"fx,omitempty"`
	Speed     *int    `json:"sx,omitempty"`
	Intensity *int    `json:"ix,omitempty"`
	Palette   *int    `json:"pal,omitempty"`
}

// IsZero reports whether the update carries no fields at all.
func (u StateUpdate) IsZero() bool {
	if u.On != nil || u.Brightness != nil || u.Transition != nil || u.Preset != nil || u.Playlist != nil {
		return false
	}
	for _, seg := range u.Segments {
		if seg.ID != nil || len(seg.Colors) > 0 || seg.Effect != nil || seg.Speed != nil || seg.Intensity != nil || seg.Palette != nil {
			return false
		}
	}
	return true
}

func boolPtr(v bool) *bool {
	return &v
}

func intPtr(v int) *int {
	return &v
}
