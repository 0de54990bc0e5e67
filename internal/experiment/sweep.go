package experiment

import (
	"context"
	"sync"

	"github.com/morallab/dilemma/internal/llm"
	"github.com/morallab/dilemma/internal/scenario"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pair is one ordered negotiation match-up. Order matters: the first spec
// speaks first, so each pair is swept in both orderings to isolate
// first-speaker bias.
type Pair struct {
	First  llm.ModelSpec
	Second llm.ModelSpec
}

// Pairs enumerates the ordered pairs of distinct specs. With bothOrders
// set, every unordered pair appears twice, once per speaking order.
func Pairs(specs []llm.ModelSpec, bothOrders bool) []Pair {
	var out []Pair
	for i := range specs {
		for j := range specs {
			if i == j {
				continue
			}
			if !bothOrders && j < i {
				continue
			}
			out = append(out, Pair{First: specs[i], Second: specs[j]})
		}
	}
	return out
}

// Sweep runs negotiations for every pair with bounded parallelism.
// Dialogues within a run stay strictly sequential; independent runs may
// proceed concurrently against the rate-limited providers. Each result is
// handed to emit as it completes; failed pairs are recorded, never fatal.
func (r *Runner) Sweep(ctx context.Context, pairs []Pair, sc *scenario.Scenario, st Settings, parallel int, emit func(*Result)) []*Result {
	if parallel < 1 {
		parallel = 1
	}

	var mu sync.Mutex // serializes emit across runs
	results := make([]*Result, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			r.logger.Info("sweep pair",
				zap.String("first", pair.First.ID()),
				zap.String("second", pair.Second.ID()))
			res := r.RunNegotiation(gctx, []llm.ModelSpec{pair.First, pair.Second}, sc, st)
			results[i] = res
			if emit != nil {
				mu.Lock()
				emit(res)
				mu.Unlock()
			}
			return nil // one pair's failure never stops the sweep
		})
	}
	g.Wait()
	return results
}
