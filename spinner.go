// Package snurr renders a non-blocking spinner animation on the current
// terminal line. A background goroutine advances the frames while status
// updates and interleaved writes from the caller serialize against it,
// so concurrent output never corrupts the line.
//
// The usual shape is
//
//	s, err := snurr.New(snurr.WithFrames(snurr.Styles["EARTH"]))
//	if err != nil {
//		return err
//	}
//	err = s.While(func() error {
//		s.SetStatus("Fetching")
//		return fetch()
//	})
//
// or, when the scope does not map to a single function, an explicit
// Start paired with a deferred Stop. Stop must run on every exit path;
// it is what restores the cursor.
package snurr

import (
	"strings"
	"sync"
	"time"

	"snurr/internal/grapheme"
	"snurr/internal/term"
)

// Spinner animates a frame sequence on the current terminal line. All
// methods are safe for concurrent use: rendering, status changes and
// caller writes take one lock, so their byte sequences never interleave,
// and Start/Stop serialize separately so a restart cannot overlap a stop
// that is still waiting for the background loop.
type Spinner struct {
	delay      time.Duration
	frames     []string
	appendMode bool

	// lifecycleMu serializes Start and Stop in full, the stop-side join
	// included. Lock order: lifecycleMu before mu; the worker never
	// takes it.
	lifecycleMu sync.Mutex

	mu       sync.Mutex
	out      *term.Writer
	status   string
	frame    int
	maxWidth int
	running  bool
	rendered bool
	stopCh   chan struct{}
	doneCh   chan struct{}

	// terminal probes, swappable in tests
	screenWidth  func() int
	cursorColumn func() int
}

// New builds a spinner from the given options. The default spins the
// classic four-frame set every 100ms on stdout with no status text.
func New(opts ...Option) (*Spinner, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	out := term.NewWriter(cfg.out, cfg.log)
	return &Spinner{
		delay:        cfg.delay,
		frames:       grapheme.Clusters(cfg.frames),
		appendMode:   cfg.appendMode,
		out:          out,
		status:       cfg.status,
		screenWidth:  out.ScreenWidth,
		cursorColumn: out.CursorColumn,
	}, nil
}

// Start begins the animation. It measures the room left on the current
// line once, hides the cursor and launches the background loop. Start on
// a running spinner is a no-op.
func (s *Spinner) Start() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.frame = 0
	s.maxWidth = s.screenWidth() - s.cursorColumn()
	if s.appendMode {
		s.maxWidth-- // separator column
	}
	s.maxWidth = max(s.maxWidth, 0)

	s.out.HideCursor()
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.spin(s.stopCh, s.doneCh)
}

// Stop halts the animation, waits until the background loop has exited,
// erases whatever the spinner left on screen and restores the cursor.
// Stop on a stopped spinner is a no-op. A Start racing a Stop blocks
// until the stop has fully finished.
func (s *Spinner) Stop() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	s.eraseLocked()
	s.out.ShowCursor()
}

// Running reports whether the background animation is active.
func (s *Spinner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the current status message.
func (s *Spinner) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetStatus replaces the status message. A running spinner re-renders
// immediately with the frame currently on screen, so the change is
// visible before the next tick. A stopped spinner only stores the text
// for the next Start.
func (s *Spinner) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eraseLocked()
	s.status = status
	if s.running {
		s.renderLocked()
	}
}

// Print writes text through the spinner without corrupting the
// animation. The rendered spinner is erased first; in append mode it
// reappears right after the text, otherwise the next tick redraws it.
func (s *Spinner) Print(text string) { s.print(text, "") }

// Println writes text and a trailing newline through the spinner. See
// Print.
func (s *Spinner) Println(text string) { s.print(text, "\n") }

func (s *Spinner) print(text, terminator string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.eraseLocked()
	s.out.WriteString(text + terminator)
	if s.running && s.appendMode {
		s.renderLocked()
	}
}

// While runs fn with the spinner active and guarantees Stop on every
// exit path, panics included.
func (s *Spinner) While(fn func() error) error {
	s.Start()
	defer s.Stop()
	return fn()
}

// spin is the background loop: render, wait one delay, advance. Shared
// state is only touched under the lock, and the lock is never held
// across the wait, so Stop and caller writes get in between ticks.
func (s *Spinner) spin(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	for {
		s.mu.Lock()
		if s.running {
			s.renderLocked()
		}
		s.mu.Unlock()

		select {
		case <-stopCh:
			return
		case <-timer.C:
			timer.Reset(s.delay)
		}

		s.mu.Lock()
		s.frame = (s.frame + 1) % len(s.frames)
		s.mu.Unlock()
	}
}

// renderLocked draws the composed content at the cursor and moves the
// cursor back to the start of what it drew, so the next render
// overwrites in place. Append mode writes its separator column first
// unless one is already on screen.
func (s *Spinner) renderLocked() {
	if s.appendMode && !s.rendered {
		s.out.WriteString(" ")
	}
	content := s.composeLocked()
	s.out.WriteString(content)
	s.out.CursorLeft(term.Columns(content))
	s.rendered = true
}

// eraseLocked removes whatever renderLocked put on screen, including the
// append-mode separator. The cursor already sits at the content start,
// so one erase-to-end covers the full rendered width regardless of wide
// glyphs.
func (s *Spinner) eraseLocked() {
	if !s.rendered {
		return
	}
	if s.appendMode {
		s.out.CursorLeft(1)
	}
	s.out.EraseToEnd()
	s.rendered = false
}

// composeLocked builds one tick's content: status, separator, frame. The
// frame always survives; when the line is too narrow the status loses
// grapheme clusters from its end until the rest fits, and a status
// emptied that way drops the separator too.
func (s *Spinner) composeLocked() string {
	frame := s.frames[s.frame]
	if s.status == "" {
		return frame
	}

	frameWidth := term.Columns(frame)
	if frameWidth >= s.maxWidth {
		return frame
	}

	budget := s.maxWidth - frameWidth - 1
	clusters := grapheme.Clusters(s.status)
	width := term.Columns(s.status)
	for len(clusters) > 0 && width > budget {
		width -= term.Columns(clusters[len(clusters)-1])
		clusters = clusters[:len(clusters)-1]
	}
	if len(clusters) == 0 {
		return frame
	}
	return strings.Join(clusters, "") + " " + frame
}
