package ffmpeg

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteConcatList writes an ffconcat script that shows each image for one
// frame period. The last image is listed twice because the demuxer ignores the
// duration of the final entry.
func WriteConcatList(w io.Writer, frames []string, fps int) error {
	if len(frames) == 0 {
		return errors.New("concat list: no frames")
	}
	if fps <= 0 {
		return fmt.Errorf("concat list: invalid frame rate %d", fps)
	}
	duration := strconv.FormatFloat(1/float64(fps), 'f', 6, 64)

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "ffconcat version 1.0")
	for _, frame := range frames {
		fmt.Fprintf(bw, "file %s\n", quote(frame))
		fmt.Fprintf(bw, "duration %s\n", duration)
	}
	fmt.Fprintf(bw, "file %s\n", quote(frames[len(frames)-1]))
	return bw.Flush()
}

// quote escapes a path for the concat demuxer's single-quoted strings.
func quote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}
