// Package term drives the output side of a spinner: escape sequences,
// display-width math and best-effort probes of the surrounding terminal.
//
// Everything here is forgiving. Writes are attempted and forgotten,
// probes fall back to safe defaults, and failures surface only on the
// debug log. A progress indicator must never take the host program down
// with it.
package term

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	xterm "golang.org/x/term"

	"snurr/internal/grapheme"
)

// Control sequences understood by every ANSI-capable terminal.
const (
	hideCursor = "\x1b[?25l"
	showCursor = "\x1b[?25h"
	eraseToEnd = "\x1b[K"
)

const defaultScreenWidth = 80

// cursorReportTimeout bounds how long CursorColumn waits for the
// terminal to answer a position query.
const cursorReportTimeout = 100 * time.Millisecond

// Writer serializes spinner bytes onto a single output stream.
type Writer struct {
	out io.Writer
	log zerolog.Logger
}

// NewWriter wraps out. Failed writes and probes are reported through log
// at debug level and otherwise swallowed.
func NewWriter(out io.Writer, log zerolog.Logger) *Writer {
	return &Writer{out: out, log: log}
}

// WriteString emits s as-is. Best effort.
func (w *Writer) WriteString(s string) {
	if _, err := io.WriteString(w.out, s); err != nil {
		w.log.Debug().Err(err).Msg("terminal write failed")
	}
}

// HideCursor makes the cursor invisible until ShowCursor is called.
func (w *Writer) HideCursor() { w.WriteString(hideCursor) }

// ShowCursor restores cursor visibility.
func (w *Writer) ShowCursor() { w.WriteString(showCursor) }

// EraseToEnd clears from the cursor to the end of the line. The cursor
// does not move.
func (w *Writer) EraseToEnd() { w.WriteString(eraseToEnd) }

// CursorLeft moves the cursor n columns to the left. n <= 0 is a no-op.
func (w *Writer) CursorLeft(n int) {
	if n <= 0 {
		return
	}
	w.WriteString(fmt.Sprintf("\x1b[%dD", n))
}

// ScreenWidth reports the column count of the terminal behind the
// output stream, or 80 when the stream is not a terminal or the size
// cannot be read.
func (w *Writer) ScreenWidth() int {
	f, ok := w.out.(*os.File)
	if !ok || !xterm.IsTerminal(int(f.Fd())) {
		return defaultScreenWidth
	}

	cols, _, err := xterm.GetSize(int(f.Fd()))
	if err != nil || cols <= 0 {
		w.log.Debug().Err(err).Msg("terminal size probe failed")
		return defaultScreenWidth
	}
	return cols
}

// CursorColumn reports how many columns are already occupied to the
// left of the cursor. It queries the terminal with a cursor position
// report and reads the reply from stdin, which has to be switched to
// raw mode for the duration. Any failure yields 0, i.e. a fresh line.
func (w *Writer) CursorColumn() int {
	f, ok := w.out.(*os.File)
	if !ok || !xterm.IsTerminal(int(f.Fd())) {
		return 0
	}

	stdin := int(os.Stdin.Fd())
	state, err := xterm.MakeRaw(stdin)
	if err != nil {
		w.log.Debug().Err(err).Msg("cursor probe: raw mode failed")
		return 0
	}
	defer func() { _ = xterm.Restore(stdin, state) }()

	// The reply never arrives if the deadline cannot be armed, so bail
	// rather than risk blocking forever.
	if err := os.Stdin.SetReadDeadline(time.Now().Add(cursorReportTimeout)); err != nil {
		w.log.Debug().Err(err).Msg("cursor probe: no read deadline support")
		return 0
	}
	defer func() { _ = os.Stdin.SetReadDeadline(time.Time{}) }()

	if _, err := f.WriteString("\x1b[6n"); err != nil {
		return 0
	}

	buf := make([]byte, 32)
	n, err := os.Stdin.Read(buf)
	if err != nil || n == 0 {
		w.log.Debug().Err(err).Msg("cursor probe: no report")
		return 0
	}
	return parseCursorReport(string(buf[:n]))
}

// parseCursorReport extracts the column from a report of the form
// ESC [ row ; col R. Terminals report 1-based positions; the result
// counts occupied columns, so column 1 maps to 0.
func parseCursorReport(report string) int {
	start := strings.Index(report, "\x1b[")
	if start < 0 {
		return 0
	}
	rest := report[start+2:]

	end := strings.IndexByte(rest, 'R')
	if end < 0 {
		return 0
	}

	_, col, ok := strings.Cut(rest[:end], ";")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(col)
	if err != nil || n < 1 {
		return 0
	}
	return n - 1
}

// Columns reports how many terminal columns s occupies. Width is summed
// per grapheme cluster (1 for narrow, 2 for wide and emoji glyphs) so
// multi-codepoint clusters are never double-counted.
func Columns(s string) int {
	cols := 0
	for cluster := range grapheme.All(s) {
		cols += runewidth.StringWidth(cluster)
	}
	return cols
}
