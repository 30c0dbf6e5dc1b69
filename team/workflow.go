// Package team composes agents into multi-agent workflows.
package team

import (
	"context"
	"errors"
	"fmt"

	"github.com/JovanVeljanoski/ateam/agent"
	"golang.org/x/sync/errgroup"
)

// Runner is anything that answers a prompt the way an agent does.
type Runner interface {
	Run(ctx context.Context, msg string) (*agent.Result, error)
}

// Sequential calls runners one by one, feeding each output to the next,
// and returns the last result.
func Sequential(ctx context.Context, prompt string, runners ...Runner) (*agent.Result, error) {
	if len(runners) == 0 {
		return nil, errors.New("team: no agents")
	}
	input := prompt
	var res *agent.Result
	for i, r := range runners {
		var err error
		res, err = r.Run(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("team: step %d: %w", i, err)
		}
		input = res.String()
	}
	return res, nil
}

// FanOutFirst runs all runners concurrently on the same prompt and returns
// the first successful result, cancelling the rest. If every runner fails
// the errors are joined.
func FanOutFirst(ctx context.Context, prompt string, runners ...Runner) (*agent.Result, error) {
	if len(runners) == 0 {
		return nil, errors.New("team: no agents")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type res struct {
		r   *agent.Result
		err error
	}
	ch := make(chan res, len(runners))
	for _, r := range runners {
		go func() {
			out, err := r.Run(ctx, prompt)
			ch <- res{out, err}
		}()
	}
	var errs []error
	for range runners {
		got := <-ch
		if got.err == nil {
			return got.r, nil
		}
		errs = append(errs, got.err)
	}
	return nil, errors.Join(errs...)
}

// Gather runs all runners concurrently on the same prompt and returns their
// results in argument order. The first failure cancels the others.
func Gather(ctx context.Context, prompt string, runners ...Runner) ([]*agent.Result, error) {
	out := make([]*agent.Result, len(runners))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range runners {
		g.Go(func() error {
			res, err := r.Run(gctx, prompt)
			if err != nil {
				return fmt.Errorf("team: agent %d: %w", i, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
