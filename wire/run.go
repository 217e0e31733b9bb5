package wire

import (
	"context"
	"log/slog"
	"time"

	"github.com/phil-mansfield/gogrid/mpi"
	"github.com/phil-mansfield/gogrid/stencil"
)

// Outcome is what a wire run produces.
type Outcome struct {
	Result stencil.Result
	// Profile is the final temperature of every element of the wire.
	Profile []float64
	// Kinds lists each fragment's element kinds, by rank.
	Kinds   []string
	Elapsed time.Duration
}

// Run splits the wire across workers ranks and iterates it.
func Run(
	ctx context.Context, workers int, p Params,
	maxCycles int, epsilon float64, samplingInterval int, log *slog.Logger,
) (*Outcome, error) {
	out := &Outcome{Kinds: make([]string, workers)}
	start := time.Now()

	err := mpi.Run(ctx, workers, func(c mpi.Comm) error {
		f, err := NewFragment(c, p, log)
		if err != nil {
			return err
		}
		out.Kinds[c.Rank()] = f.Kinds()

		res, err := f.Run(maxCycles, epsilon, samplingInterval)
		if err != nil {
			return err
		}
		profile, err := f.Gather(0)
		if c.Rank() == 0 {
			out.Result, out.Profile = res, profile
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	out.Elapsed = time.Since(start)
	return out, nil
}
