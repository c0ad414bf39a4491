package homeassistant

import "fmt"

// resolveColor turns a command color into RGB. Home Assistant sends either
// r/g/b directly or hue/saturation, depending on the color mode it picked.
func resolveColor(c LightColor) (int, int, int, error) {
	if c.R != nil && c.G != nil && c.B != nil {
		return clampByte(*c.R), clampByte(*c.G), clampByte(*c.B), nil
	}
	if c.H != nil && c.S != nil {
		r, g, b := hsvToRgb(float32(*c.H), float32(*c.S), 100)
		return r, g, b, nil
	}
	return 0, 0, 0, fmt.Errorf("color carries neither rgb nor hue/saturation")
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// hsvToRgb converts HSV (hue 0-360, sat 0-100, val 0-100) to RGB (0-255)
func hsvToRgb(h, s, v float32) (int, int, int) {
	s = s / 100
	v = v / 100
	c := v * s
	x := c * (1 - float32(absInt(int((h/60))%2-1)))
	m := v - c
	var r, g, b float32
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return int((r+m)*255 + 0.5), int((g+m)*255 + 0.5), int((b+m)*255 + 0.5)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
