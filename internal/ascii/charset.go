package ascii

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Charset is an ordered glyph ramp, dimmest first.
type Charset []rune

// ErrInvalidCharset reports a ramp that cannot be used for rendering.
var ErrInvalidCharset = errors.New("invalid charset")

// ParseCharset validates ramp and returns it as a Charset. The ramp needs at
// least two glyphs, each occupying a single terminal cell.
func ParseCharset(ramp string) (Charset, error) {
	if !utf8.ValidString(ramp) {
		return nil, fmt.Errorf("%w: not valid UTF-8", ErrInvalidCharset)
	}
	cs := Charset([]rune(ramp))
	if len(cs) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 glyphs, got %d", ErrInvalidCharset, len(cs))
	}
	for _, r := range cs {
		if r == '\n' || r == '\r' {
			return nil, fmt.Errorf("%w: line breaks are not glyphs", ErrInvalidCharset)
		}
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			return nil, fmt.Errorf("%w: %q is double-width", ErrInvalidCharset, r)
		}
	}
	return cs, nil
}

// MustParseCharset is ParseCharset for compile-time constants.
func MustParseCharset(ramp string) Charset {
	cs, err := ParseCharset(ramp)
	if err != nil {
		panic(err)
	}
	return cs
}

// Map returns the glyph for brightness. Values outside [0,1] are clamped and
// NaN counts as black. The index is floor(b*(len-1)), so only a brightness of
// exactly 1.0 selects the last glyph.
func (c Charset) Map(brightness float64) rune {
	if len(c) == 0 {
		return ' '
	}
	last := len(c) - 1
	switch {
	case math.IsNaN(brightness) || brightness <= 0:
		return c[0]
	case brightness >= 1:
		return c[last]
	}
	idx := int(math.Floor(brightness * float64(last)))
	if idx < 0 {
		idx = 0
	}
	if idx > last {
		idx = last
	}
	return c[idx]
}

func (c Charset) String() string {
	return string(c)
}
