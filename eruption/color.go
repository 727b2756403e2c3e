package eruption

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Color is one RGBA value, one byte per channel.
type Color struct {
	R, G, B, A uint8
}

// RGBA builds a Color from its four channels.
func RGBA(r, g, b, a uint8) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// ParseColor accepts "#rrggbb", "#rrggbbaa", "r,g,b" or "r,g,b,a". Alpha
// defaults to 255 when omitted.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return parseHexColor(s)
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	channels := []uint8{0, 0, 0, 255}
	for i, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q: channel %d out of range 0-255", ErrInvalidColor, s, i)
		}
		channels[i] = uint8(v)
	}

	return RGBA(channels[0], channels[1], channels[2], channels[3]), nil
}

func parseHexColor(s string) (Color, error) {
	digits := strings.TrimPrefix(s, "#")
	if len(digits) != 6 && len(digits) != 8 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	raw, err := hex.DecodeString(digits)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	if len(raw) == 3 {
		raw = append(raw, 255)
	}

	return RGBA(raw[0], raw[1], raw[2], raw[3]), nil
}

// String renders the color as "#rrggbbaa".
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
