package script

import (
	"context"
	"time"

	"snurr"
)

// Play builds a spinner from the scenario and drives it through every
// step. The spinner is stopped on all return paths; cancelling ctx cuts
// the remaining steps short.
func Play(ctx context.Context, sc *Scenario, extra ...snurr.Option) error {
	s, err := snurr.New(sc.Options(extra...)...)
	if err != nil {
		return err
	}

	return s.While(func() error {
		for _, step := range sc.Steps {
			if err := ctx.Err(); err != nil {
				return err
			}
			if step.Status != "" {
				s.SetStatus(step.Status)
			}
			if step.Write != "" {
				s.Println(step.Write)
			}
			if step.Sleep > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Duration(step.Sleep)):
				}
			}
		}
		return nil
	})
}
