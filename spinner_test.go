package snurr

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snurr/internal/term"
)

// newTestSpinner builds a spinner writing into out, with the terminal
// probes pinned to a 40-column line starting at column zero.
func newTestSpinner(t *testing.T, out io.Writer, opts ...Option) *Spinner {
	t.Helper()

	s, err := New(append(opts, WithOutput(out))...)
	require.NoError(t, err)
	s.screenWidth = func() int { return 40 }
	s.cursorColumn = func() int { return 0 }
	return s
}

var escapePattern = regexp.MustCompile(`\x1b\[[0-9;?]*[@-~]`)

// stripEscapes drops control sequences, leaving glyphs in emission order.
func stripEscapes(s string) string {
	return escapePattern.ReplaceAllString(s, "")
}

// replayTerminal interprets the sequences the spinner emits (cursor
// left, erase to end of line) against a single-width character grid. It
// returns every line completed by a newline plus the final line as the
// last element. Single-width interpretation is enough for the ASCII
// content these tests render.
func replayTerminal(raw string) []string {
	var (
		lines []string
		line  []rune
		col   int
	)

	for i := 0; i < len(raw); {
		if strings.HasPrefix(raw[i:], "\x1b[") {
			j := i + 2
			for j < len(raw) && (raw[j] < 0x40 || raw[j] > 0x7e) {
				j++
			}
			if j == len(raw) {
				break // truncated sequence
			}
			switch raw[j] {
			case 'D':
				n, err := strconv.Atoi(raw[i+2 : j])
				if err != nil || n < 1 {
					n = 1
				}
				col = max(col-n, 0)
			case 'K':
				if col < len(line) {
					line = line[:col]
				}
			}
			i = j + 1
			continue
		}

		r, size := utf8.DecodeRuneInString(raw[i:])
		i += size
		switch r {
		case '\n':
			lines = append(lines, string(line))
			line = line[:0]
			col = 0
		case '\r':
			col = 0
		default:
			for col >= len(line) {
				line = append(line, ' ')
			}
			line[col] = r
			col++
		}
	}

	return append(lines, string(line))
}

// syncBuffer lets tests read captured output while the background loop
// is still writing.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestReplayTerminal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"plain", "abc", []string{"abc"}},
		{"newline splits", "ab\ncd", []string{"ab", "cd"}},
		{"overwrite in place", "/\x1b[1D-\x1b[1D", []string{"-"}},
		{"erase to end", "abcd\x1b[2D\x1b[K", []string{"ab"}},
		{"carriage return", "abcd\rxy", []string{"xycd"}},
		{"cursor sequences ignored", "\x1b[?25la\x1b[?25h", []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, replayTerminal(tt.raw))
		})
	}
}

func TestSpinner_StartStopIdempotent(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSpinner(t, &buf, WithDelay(time.Millisecond))

	s.Start()
	s.Start()
	assert.True(t, s.Running())

	s.Stop()
	s.Stop()
	assert.False(t, s.Running())

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "\x1b[?25l"), "cursor hidden once")
	assert.Equal(t, 1, strings.Count(out, "\x1b[?25h"), "cursor shown once")
}

func TestSpinner_CursorPairingAcrossRestarts(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSpinner(t, &buf, WithDelay(time.Millisecond))

	for range 3 {
		s.Start()
		s.SetStatus("round")
		s.Println("log line")
		s.Stop()
	}

	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, "\x1b[?25l"))
	assert.Equal(t, 3, strings.Count(out, "\x1b[?25h"))
}

func TestSpinner_ConcurrentStartStop(t *testing.T) {
	var buf syncBuffer
	s := newTestSpinner(t, &buf, WithDelay(time.Millisecond))

	for range 200 {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Start()
		}()
		go func() {
			defer wg.Done()
			s.Stop()
		}()
		wg.Wait()

		// Whichever call won, the cursor state must match the
		// lifecycle state once both have returned.
		out := buf.String()
		lastHide := strings.LastIndex(out, "\x1b[?25l")
		lastShow := strings.LastIndex(out, "\x1b[?25h")
		if s.Running() {
			require.Greater(t, lastHide, lastShow, "running spinner must leave the cursor hidden")
		} else {
			require.Greater(t, lastShow, lastHide, "stopped spinner must leave the cursor shown")
		}
	}

	s.Stop()
	out := buf.String()
	assert.Equal(t, strings.Count(out, "\x1b[?25l"), strings.Count(out, "\x1b[?25h"))
	assert.False(t, s.Running())
}

func TestSpinner_StopInterruptsLongDelay(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSpinner(t, &buf, WithDelay(time.Hour))

	s.Start()
	start := time.Now()
	s.Stop()

	assert.Less(t, time.Since(start), time.Second, "stop must not wait out the delay")
}

func TestSpinner_ZeroDelayStopsPromptly(t *testing.T) {
	var buf syncBuffer
	s := newTestSpinner(t, &buf, WithFrames("AB"), WithDelay(0))

	s.Start()
	require.Eventually(t, func() bool {
		stripped := stripEscapes(buf.String())
		return strings.Contains(stripped, "A") && strings.Contains(stripped, "B")
	}, time.Second, time.Millisecond, "zero delay must advance frames")

	start := time.Now()
	s.Stop()

	assert.Less(t, time.Since(start), time.Second, "stop must get through even with the timer permanently ready")
	assert.False(t, s.Running())

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "\x1b[?25l"))
	assert.Equal(t, 1, strings.Count(out, "\x1b[?25h"))

	lines := replayTerminal(out)
	assert.Empty(t, lines[len(lines)-1], "no glyph survives cleanup")
}

func TestSpinner_BothFramesAppear(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSpinner(t, &buf, WithFrames("AB"), WithDelay(time.Millisecond))

	s.Start()
	time.Sleep(25 * time.Millisecond)
	s.Stop()

	out := buf.String()
	assert.Contains(t, stripEscapes(out), "A")
	assert.Contains(t, stripEscapes(out), "B")

	lines := replayTerminal(out)
	assert.Empty(t, lines[len(lines)-1], "no glyph survives cleanup")
	assert.Equal(t, 1, strings.Count(out, "\x1b[?25l"))
	assert.Equal(t, 1, strings.Count(out, "\x1b[?25h"))
}

func TestSpinner_StatusRendersBeforeFrame(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSpinner(t, &buf, WithFrames("_"), WithDelay(time.Hour))

	s.Start()
	s.SetStatus("Working")
	s.Stop()

	stripped := stripEscapes(buf.String())
	i := strings.Index(stripped, "Working")
	j := strings.LastIndex(stripped, "_")
	require.GreaterOrEqual(t, i, 0, "status must be rendered")
	assert.Less(t, i, j, "status precedes the frame")
}

func TestSpinner_InitialStatusRendered(t *testing.T) {
	var buf syncBuffer
	s := newTestSpinner(t, &buf, WithStatus("warming up"), WithFrames("/"), WithDelay(time.Hour))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return strings.Contains(stripEscapes(buf.String()), "warming up /")
	}, time.Second, time.Millisecond)
}

func TestSpinner_SetStatusWhileStopped(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSpinner(t, &buf)

	s.SetStatus("queued")

	assert.Equal(t, "queued", s.Status())
	assert.Empty(t, buf.String(), "no bytes while stopped")
}

func TestSpinner_WriteOrderingWithTicks(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSpinner(t, &buf, WithFrames("/"), WithDelay(time.Millisecond))

	s.Start()
	s.Println("Start")
	time.Sleep(3 * time.Millisecond)
	s.Println("Middle")
	time.Sleep(3 * time.Millisecond)
	s.Println("End")
	s.Stop()

	lines := replayTerminal(buf.String())
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"Start", "Middle", "End"}, lines[:3])
	assert.Empty(t, lines[3], "spinner line cleaned up")
}

func TestSpinner_ConcurrentCallers(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSpinner(t, &buf, WithDelay(time.Millisecond))

	s.Start()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.SetStatus(fmt.Sprintf("status %d", n))
			s.Println(fmt.Sprintf("line %d", n))
		}(i)
	}
	wg.Wait()
	s.Stop()

	var got []string
	lines := replayTerminal(buf.String())
	for _, line := range lines[:len(lines)-1] {
		require.Regexp(t, `^line \d+$`, line, "every committed line stays intact")
		got = append(got, line)
	}
	assert.Len(t, got, 20)
	assert.Empty(t, lines[len(lines)-1])
}

func TestSpinner_AppendMode(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSpinner(t, &buf, WithAppend(), WithFrames("/"), WithDelay(time.Hour))

	s.Start()
	s.Print("Text")
	s.Print("More")
	s.Stop()

	lines := replayTerminal(buf.String())
	assert.Equal(t, "TextMore", lines[len(lines)-1], "separator and frame fully erased")
}

func TestSpinner_StartRecomputesWidth(t *testing.T) {
	tests := []struct {
		name   string
		screen int
		column int
		opts   []Option
		want   int
	}{
		{"full line", 40, 0, nil, 40},
		{"mid line", 40, 5, nil, 35},
		{"append reserves separator", 40, 0, []Option{WithAppend()}, 39},
		{"floored at zero", 10, 30, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := newTestSpinner(t, &buf, append(tt.opts, WithDelay(time.Hour))...)
			s.screenWidth = func() int { return tt.screen }
			s.cursorColumn = func() int { return tt.column }

			s.Start()
			s.mu.Lock()
			got := s.maxWidth
			s.mu.Unlock()
			s.Stop()

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSpinner_RestartResetsFrame(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSpinner(t, &buf, WithFrames("AB"), WithDelay(time.Hour))

	s.Start()
	s.Stop()

	s.mu.Lock()
	s.frame = 1
	s.mu.Unlock()

	s.Start()
	s.mu.Lock()
	got := s.frame
	s.mu.Unlock()
	s.Stop()

	assert.Equal(t, 0, got, "start rewinds to the first frame")
}

func TestSpinner_Truncation(t *testing.T) {
	tests := []struct {
		name     string
		frames   string
		status   string
		maxWidth int
		want     string
	}{
		{"fits untouched", "/", "ok", 10, "ok /"},
		{"status trimmed to budget", "🌍", strings.Repeat("s", 20), 10, "sssssss 🌍"},
		{"frame wider than line", "🌍", "status", 2, "🌍"},
		{"frame never truncated", "🌍", "status", 1, "🌍"},
		{"zero width line", "/", "status", 0, "/"},
		{"wide clusters drop whole", "/", "あいう", 7, "あい /"},
		{"status emptied drops separator", "/", "x", 2, "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(WithFrames(tt.frames), WithStatus(tt.status))
			require.NoError(t, err)
			s.maxWidth = tt.maxWidth

			got := s.composeLocked()

			assert.Equal(t, tt.want, got)
			assert.True(t, strings.HasSuffix(got, s.frames[0]), "content ends with the frame")
		})
	}
}

func TestSpinner_TruncationBoundaryWidth(t *testing.T) {
	// max_available_width 10, frame width 2, status width 20
	s, err := New(WithFrames("🌍"), WithStatus(strings.Repeat("s", 20)))
	require.NoError(t, err)
	s.maxWidth = 10

	got := s.composeLocked()

	assert.LessOrEqual(t, term.Columns(got), 10)
	assert.True(t, strings.HasSuffix(got, "🌍"))
}

func TestSpinner_While(t *testing.T) {
	t.Run("returns the function's error", func(t *testing.T) {
		var buf bytes.Buffer
		s := newTestSpinner(t, &buf, WithDelay(time.Millisecond))

		wantErr := fmt.Errorf("work failed")
		err := s.While(func() error {
			assert.True(t, s.Running())
			return wantErr
		})

		assert.Equal(t, wantErr, err)
		assert.False(t, s.Running())
	})

	t.Run("stops on success", func(t *testing.T) {
		var buf bytes.Buffer
		s := newTestSpinner(t, &buf, WithDelay(time.Millisecond))

		require.NoError(t, s.While(func() error { return nil }))

		assert.False(t, s.Running())
		out := buf.String()
		assert.Equal(t, strings.Count(out, "\x1b[?25l"), strings.Count(out, "\x1b[?25h"))
	})

	t.Run("stops when the function panics", func(t *testing.T) {
		var buf bytes.Buffer
		s := newTestSpinner(t, &buf, WithDelay(time.Millisecond))

		assert.Panics(t, func() {
			_ = s.While(func() error { panic("boom") })
		})

		assert.False(t, s.Running())
		out := buf.String()
		assert.Equal(t, strings.Count(out, "\x1b[?25l"), strings.Count(out, "\x1b[?25h"),
			"cursor restored despite the panic")
	})
}
