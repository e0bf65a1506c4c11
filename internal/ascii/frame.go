package ascii

import (
	"fmt"
	"strings"
)

// FrameBuffer is a row-major grid of brightness samples in [0,1].
type FrameBuffer struct {
	Width   int
	Height  int
	Samples []float64
}

// Decode converts a raw 8-bit grayscale stream into a buffer of the requested
// size. A short stream leaves the missing samples at 0 and surplus bytes are
// ignored. Non-positive dimensions yield an empty 0x0 buffer.
func Decode(raw []byte, width, height int) FrameBuffer {
	if width <= 0 || height <= 0 {
		return FrameBuffer{}
	}
	samples := make([]float64, width*height)
	n := min(len(raw), len(samples))
	for i := 0; i < n; i++ {
		samples[i] = float64(raw[i]) / 255
	}
	return FrameBuffer{Width: width, Height: height, Samples: samples}
}

// Frame is the text form of one video frame: Height lines of Width glyphs
// joined by newlines, with no trailing newline.
type Frame struct {
	Width  int
	Height int
	Text   string
}

func (f Frame) String() string {
	return f.Text
}

// Render maps every sample of buf through cs. Samples missing from a
// hand-built buffer render as black.
func Render(buf FrameBuffer, cs Charset) Frame {
	if buf.Width <= 0 || buf.Height <= 0 {
		return Frame{}
	}
	var sb strings.Builder
	sb.Grow((buf.Width + 1) * buf.Height)
	for y := 0; y < buf.Height; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < buf.Width; x++ {
			var sample float64
			if i := y*buf.Width + x; i < len(buf.Samples) {
				sample = buf.Samples[i]
			}
			sb.WriteRune(cs.Map(sample))
		}
	}
	return Frame{Width: buf.Width, Height: buf.Height, Text: sb.String()}
}

// Blank returns a frame of the darkest glyph, used when a frame cannot be
// decoded.
func Blank(width, height int, cs Charset) Frame {
	return Render(Decode(nil, width, height), cs)
}

// TextName is the artifact file name of the text frame with sequence number
// seq.
func TextName(seq int) string {
	return fmt.Sprintf("ascii_%06d.txt", seq)
}
