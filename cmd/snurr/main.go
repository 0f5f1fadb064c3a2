package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"snurr"
	"snurr/internal/script"
)

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14")).
			MarginTop(1)

	styleNameStyle = lipgloss.NewStyle().
			Bold(true)

	noteStyle = lipgloss.NewStyle().
			Faint(true)
)

type CLI struct {
	Delay time.Duration `help:"Time between spinner frames" default:"100ms"`
	Debug bool          `help:"Log swallowed terminal errors to stderr"`

	Demo    DemoCmd    `cmd:"" default:"withargs" help:"Guided tour of the spinner (default)"`
	Styles  StylesCmd  `cmd:"" help:"Preview built-in spinner styles"`
	Pick    PickCmd    `cmd:"" help:"Pick a style interactively and preview it"`
	Play    PlayCmd    `cmd:"" help:"Play a scripted scenario from a YAML file"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// logger builds the spinner's debug logger. Terminal probe and write
// failures are invisible by default; --debug routes them to stderr.
func (c *CLI) logger() zerolog.Logger {
	if !c.Debug {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().
		Level(zerolog.DebugLevel)
}

// spinnerOptions assembles the options every subcommand shares. An empty
// frames string keeps the default style.
func (c *CLI) spinnerOptions(frames string) []snurr.Option {
	opts := []snurr.Option{
		snurr.WithDelay(c.Delay),
		snurr.WithLogger(c.logger()),
	}
	if frames != "" {
		opts = append(opts, snurr.WithFrames(frames))
	}
	return opts
}

// pause sleeps for d unless ctx ends first.
func pause(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

type DemoCmd struct{}

func (c *DemoCmd) Run(cli *CLI, ctx context.Context) error {
	fmt.Println(headingStyle.Render("Basic usage"))
	s, err := snurr.New(cli.spinnerOptions("")...)
	if err != nil {
		return err
	}
	if err := s.While(func() error {
		s.SetStatus("Working...")
		return pause(ctx, 2*time.Second)
	}); err != nil {
		return err
	}

	fmt.Println(headingStyle.Render("Status updates"))
	earth, err := snurr.New(cli.spinnerOptions(snurr.Styles["EARTH"])...)
	if err != nil {
		return err
	}
	if err := earth.While(func() error {
		for _, status := range []string{
			"Starting up...",
			"Processing files...",
			"Analyzing data...",
			"Finishing up...",
		} {
			earth.SetStatus(status)
			if err := pause(ctx, time.Second); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	fmt.Println(headingStyle.Render("Interleaved output"))
	dots, err := snurr.New(cli.spinnerOptions(snurr.Styles["DOTS"])...)
	if err != nil {
		return err
	}
	if err := dots.While(func() error {
		dots.SetStatus("long process")
		dots.Println("Starting a long process...")
		if err := pause(ctx, time.Second); err != nil {
			return err
		}
		dots.Println("Step 1: data processing")
		if err := pause(ctx, time.Second); err != nil {
			return err
		}
		dots.Println("Step 2: analysis")
		return pause(ctx, time.Second)
	}); err != nil {
		return err
	}

	fmt.Println(headingStyle.Render("Spinner at end of line"))
	tail, err := snurr.New(append(cli.spinnerOptions(""), snurr.WithAppend())...)
	if err != nil {
		return err
	}
	if err := tail.While(func() error {
		for i := range 3 {
			tail.Print(fmt.Sprintf("\rline %d printed behind the spinner", i+1))
			if err := pause(ctx, time.Second); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	fmt.Println()

	fmt.Println(noteStyle.Render("Demo completed."))
	return nil
}

type StylesCmd struct {
	Duration time.Duration `help:"How long to spin each style" default:"1.5s"`
	Names    []string      `arg:"" optional:"" help:"Styles to preview (default: all)"`
}

func (c *StylesCmd) Run(cli *CLI, ctx context.Context) error {
	names := c.Names
	if len(names) == 0 {
		names = snurr.StyleNames()
	}

	for _, name := range names {
		frames, ok := snurr.Styles[name]
		if !ok {
			return fmt.Errorf("unknown style %q, pick one of %v", name, snurr.StyleNames())
		}

		label := name
		if name == "CLASSIC" {
			label += " (default)"
		}
		fmt.Println(styleNameStyle.Render("Style: " + label))

		s, err := snurr.New(cli.spinnerOptions(frames)...)
		if err != nil {
			return err
		}
		if err := s.While(func() error {
			return pause(ctx, c.Duration)
		}); err != nil {
			return err
		}
	}
	return nil
}

type PickCmd struct {
	Duration time.Duration `help:"How long to spin the preview" default:"3s"`
}

func (c *PickCmd) Run(cli *CLI, ctx context.Context) error {
	name, err := pickStyle(nil)
	if err != nil {
		return err
	}

	fmt.Println(noteStyle.Render("Previewing " + name))
	s, err := snurr.New(append(cli.spinnerOptions(snurr.Styles[name]), snurr.WithStatus(name))...)
	if err != nil {
		return err
	}
	return s.While(func() error {
		return pause(ctx, c.Duration)
	})
}

// pickStyle asks for one of the built-in style names. A non-nil input
// switches the form to accessible mode, which keeps it scriptable in
// tests.
func pickStyle(input io.Reader) (string, error) {
	var name string

	options := make([]huh.Option[string], 0, len(snurr.Styles))
	for _, n := range snurr.StyleNames() {
		options = append(options, huh.NewOption(fmt.Sprintf("%-12s %s", n, snurr.Styles[n]), n))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Spinner style").
				Options(options...).
				Value(&name),
		),
	).WithTheme(huh.ThemeCatppuccin())

	if input != nil {
		form = form.WithInput(input).WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return "", fmt.Errorf("prompt cancelled: %w", err)
	}
	return name, nil
}

type PlayCmd struct {
	File string `arg:"" help:"Scenario file (YAML)" type:"path"`
}

func (c *PlayCmd) Run(cli *CLI, ctx context.Context) error {
	sc, err := script.Load(c.File)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	return script.Play(ctx, sc, snurr.WithLogger(cli.logger()))
}

type VersionCmd struct{}

func (c *VersionCmd) Run(cli *CLI) error {
	fmt.Printf("snurr %s (commit: %s, built: %s)\n", Version, Commit, Date)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("snurr"),
		kong.Description("Terminal spinner playground and scenario player"),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	if err := kctx.Run(&cli); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\ninterrupted")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
