// Package script loads and plays scripted spinner scenarios: YAML files
// describing a spinner setup and a sequence of timed status updates and
// writes.
package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"snurr"
)

// Scenario is a scripted spinner session.
type Scenario struct {
	Version string   `yaml:"version"`
	Style   string   `yaml:"style,omitempty"`
	Frames  string   `yaml:"frames,omitempty"`
	Delay   Duration `yaml:"delay,omitempty"`
	Append  bool     `yaml:"append,omitempty"`
	Status  string   `yaml:"status,omitempty"`
	Steps   []Step   `yaml:"steps"`
}

// Step is one scenario action. Status, write and sleep may be combined;
// they apply in that order.
type Step struct {
	Status string   `yaml:"status,omitempty"`
	Write  string   `yaml:"write,omitempty"`
	Sleep  Duration `yaml:"sleep,omitempty"`
}

// Duration unmarshals YAML strings like "250ms" or "1s".
type Duration time.Duration

// UnmarshalYAML implements duration parsing for scenario fields.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	if parsed < 0 {
		return fmt.Errorf("duration %q is negative", raw)
	}
	*d = Duration(parsed)
	return nil
}

// Load reads and validates a scenario file from the given path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if sc.Version == "" {
		return nil, errors.New("scenario missing version field")
	}
	if sc.Version != "1" {
		return nil, fmt.Errorf("unsupported scenario version: %s", sc.Version)
	}

	if sc.Style != "" && sc.Frames != "" {
		return nil, errors.New("style and frames are mutually exclusive")
	}
	if sc.Style != "" {
		if _, ok := snurr.Styles[sc.Style]; !ok {
			return nil, fmt.Errorf("unknown style %q, pick one of %v", sc.Style, snurr.StyleNames())
		}
	}

	if len(sc.Steps) == 0 {
		return nil, errors.New("scenario has no steps")
	}
	for i, step := range sc.Steps {
		if step.Status == "" && step.Write == "" && step.Sleep == 0 {
			return nil, fmt.Errorf("step %d: needs at least one of status, write or sleep", i+1)
		}
	}

	return &sc, nil
}

// Options translates the scenario's spinner settings, with extra
// appended last so callers can redirect output or attach a logger.
func (sc *Scenario) Options(extra ...snurr.Option) []snurr.Option {
	var opts []snurr.Option
	if sc.Style != "" {
		opts = append(opts, snurr.WithFrames(snurr.Styles[sc.Style]))
	}
	if sc.Frames != "" {
		opts = append(opts, snurr.WithFrames(sc.Frames))
	}
	if sc.Delay > 0 {
		opts = append(opts, snurr.WithDelay(time.Duration(sc.Delay)))
	}
	if sc.Append {
		opts = append(opts, snurr.WithAppend())
	}
	if sc.Status != "" {
		opts = append(opts, snurr.WithStatus(sc.Status))
	}
	return append(opts, extra...)
}

// expandPath resolves a leading ~/ against the home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
