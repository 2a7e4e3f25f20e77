// Package color converts CSS-style hex colour codes.
package color

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidHex is returned for input that is not a 3 or 6 digit hex colour.
var ErrInvalidHex = errors.New("invalid hex color")

// RGB is a colour with 8-bit channels.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// String renders the colour as "(r, g, b)".
func (c RGB) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.R, c.G, c.B)
}

// HexToRGB parses "#RRGGBB", "RRGGBB" or the "#RGB" shorthand.
func HexToRGB(s string) (RGB, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")

	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}

	return RGB{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}, nil
}
