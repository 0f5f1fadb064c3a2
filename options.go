package snurr

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"snurr/internal/grapheme"
)

// ErrInvalidConfig reports a spinner configuration rejected by New.
var ErrInvalidConfig = errors.New("invalid spinner configuration")

// DefaultDelay is the pause between frame advances when WithDelay is not
// given.
const DefaultDelay = 100 * time.Millisecond

// maxFrames bounds how many frames a spinner accepts.
const maxFrames = 100

type config struct {
	delay      time.Duration
	frames     string
	status     string
	appendMode bool
	out        io.Writer
	log        zerolog.Logger
}

func defaultConfig() config {
	return config{
		delay:  DefaultDelay,
		frames: Styles["CLASSIC"],
		out:    os.Stdout,
		log:    zerolog.Nop(),
	}
}

// Option adjusts a spinner at construction time.
type Option func(*config)

// WithDelay sets the pause between frame advances. Zero removes the
// pause entirely; negative values are rejected by New.
func WithDelay(d time.Duration) Option {
	return func(c *config) { c.delay = d }
}

// WithFrames sets the animation frames, one grapheme cluster per frame.
// The Styles table provides ready-made sets.
func WithFrames(frames string) Option {
	return func(c *config) { c.frames = frames }
}

// WithStatus sets the initial status message.
func WithStatus(status string) Option {
	return func(c *config) { c.status = status }
}

// WithAppend renders the spinner after existing line content, behind a
// single separator column, instead of at the cursor's own position.
func WithAppend() Option {
	return func(c *config) { c.appendMode = true }
}

// WithOutput directs spinner output to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(c *config) { c.out = w }
}

// WithLogger installs a logger for otherwise-swallowed terminal errors.
// Without it nothing is logged.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) { c.log = log }
}

func (c *config) validate() error {
	if c.delay < 0 {
		return fmt.Errorf("%w: delay must be non-negative", ErrInvalidConfig)
	}
	if c.frames == "" {
		return fmt.Errorf("%w: frames cannot be empty", ErrInvalidConfig)
	}
	if n := grapheme.Count(c.frames); n > maxFrames {
		return fmt.Errorf("%w: frames too long (%d frames, max %d)", ErrInvalidConfig, n, maxFrames)
	}
	return nil
}
