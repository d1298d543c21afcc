// Package palette quantizes 24-bit colors to the 8 ANSI background colors.
//
// Each channel contributes one bit (set when the channel is 128 or more), so
// every color maps to the nearest corner of the RGB cube. The mapping is a
// pure function with no tunable threshold.
package palette

import (
	"errors"
	"fmt"
	"strconv"
)

// Reset clears all terminal attributes.
const Reset = "\x1b[0m"

// Glyph is the visible character of every [Cell].
const Glyph = " "

// ErrInvalidColor indicates a color string that is not of the form #rrggbb.
var ErrInvalidColor = errors.New("invalid color")

// Color is one of the 8 standard ANSI colors, numbered as in SGR codes 40-47.
type Color uint8

// The eight corners of the RGB cube.
const (
	Black Color = iota
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
)

var (
	names = [...]string{"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white"}

	// byIndex maps the R<<2|G<<1|B index to the ANSI color, whose own bit
	// order is B<<2|G<<1|R.
	byIndex = [8]Color{Black, Blue, Green, Cyan, Red, Magenta, Yellow, White}

	backgrounds = func() [8]string {
		var bg [8]string
		for c := range bg {
			bg[c] = "\x1b[4" + strconv.Itoa(c) + ";1m"
		}

		return bg
	}()
)

// Background returns the bright background escape sequence for c.
func (c Color) Background() string {
	return backgrounds[c&7]
}

func (c Color) String() string {
	return names[c&7]
}

// Index returns the 3-bit cube index of c (red in bit 2, green in bit 1, blue
// in bit 0).
func (c Color) Index() int {
	for i, bc := range byIndex {
		if bc == c {
			return i
		}
	}

	return 0
}

// Cell is a single terminal cell: a background color behind one [Glyph].
type Cell struct {
	Color Color
}

func (c Cell) String() string {
	return c.Color.Background() + Glyph
}

// QuantizeRGB maps an RGB triple to its [Color].
func QuantizeRGB(r, g, b uint8) Color {
	return byIndex[int(r>>7)<<2|int(g>>7)<<1|int(b>>7)]
}

// Quantize parses a "#rrggbb" color and maps it to its [Color].
func Quantize(hex string) (Color, error) {
	if len(hex) != 7 || hex[0] != '#' {
		return Black, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}

	var rgb [3]uint8

	for i := range rgb {
		v, err := strconv.ParseUint(hex[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return Black, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
		}

		rgb[i] = uint8(v)
	}

	return QuantizeRGB(rgb[0], rgb[1], rgb[2]), nil
}
