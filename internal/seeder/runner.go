package seeder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/shopfront/shopctl/internal/client"
)

// ProductCreator is the part of the product client the runner needs.
type ProductCreator interface {
	Create(ctx context.Context, fields client.ProductFields, image *client.Upload) (*client.Product, error)
}

// Result summarises a seeding run.
type Result struct {
	Created int
	Failed  int
	IDs     []int64
}

// Runner handles the seeding execution
type Runner struct {
	Config   *Config
	Products ProductCreator
	Logger   zerolog.Logger
}

// NewRunner creates a new seeder runner
func NewRunner(config *Config, products ProductCreator, logger zerolog.Logger) *Runner {
	return &Runner{
		Config:   config,
		Products: products,
		Logger:   logger,
	}
}

// Run creates Count products with up to Concurrency requests in flight.
// Individual failures are counted and logged; a failed session refresh stops
// the run, since every later request would fail the same way.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	d := r.Config.Defaults
	gen := NewGenerator(d)

	r.Logger.Info().
		Int("count", d.Count).
		Int("concurrency", d.Concurrency).
		Dur("interval", d.Interval).
		Bool("images", d.WithImages).
		Msg("starting catalog seeder")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Concurrency)

	var (
		mu     sync.Mutex
		result Result
	)

	progressEvery := d.Count / 10
	if progressEvery < 1 {
		progressEvery = 1
	}

	for i := 0; i < d.Count; i++ {
		if gctx.Err() != nil {
			break
		}

		item := gen.Generate(i)
		g.Go(func() error {
			product, err := r.Products.Create(gctx, item.Fields, item.Image)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				result.Failed++
				r.Logger.Warn().Err(err).Str("name", item.Fields.Name).Msg("failed to create product")
				if errors.Is(err, client.ErrRefreshFailed) {
					return err
				}
				return nil
			}

			result.Created++
			if product != nil && product.ID != 0 {
				result.IDs = append(result.IDs, product.ID)
			}
			if done := result.Created + result.Failed; done%progressEvery == 0 || done == d.Count {
				r.Logger.Info().
					Int("created", result.Created).
					Int("failed", result.Failed).
					Msgf("progress: %d/%d", done, d.Count)
			}
			return nil
		})

		if d.Interval > 0 && i < d.Count-1 {
			select {
			case <-gctx.Done():
			case <-time.After(d.Interval):
			}
		}
	}

	err := g.Wait()

	r.Logger.Info().
		Int("created", result.Created).
		Int("failed", result.Failed).
		Msg("seeding complete")

	if err != nil {
		return &result, fmt.Errorf("seeding aborted: %w", err)
	}
	if ctx.Err() != nil {
		return &result, ctx.Err()
	}
	return &result, nil
}
