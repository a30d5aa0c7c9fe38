package embeddings

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBatchSize is the default number of texts per provider call.
const DefaultBatchSize = 10

// DefaultBatchDelay spaces sequential batch calls to stay under provider
// rate limits.
const DefaultBatchDelay = time.Second

// BatchGenerator runs an Embedder over large inputs in strictly sequential
// batches. Batches are never parallelized; provider rate-limit safety is
// preferred over throughput.
type BatchGenerator struct {
	embedder  Embedder
	batchSize int
	delay     time.Duration
	limiter   *rate.Limiter
}

// BatchOption configures a BatchGenerator.
type BatchOption func(*BatchGenerator)

// WithBatchSize sets the number of texts per provider call.
func WithBatchSize(n int) BatchOption {
	return func(g *BatchGenerator) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between consecutive batch calls.
func WithBatchDelay(d time.Duration) BatchOption {
	return func(g *BatchGenerator) {
		if d >= 0 {
			g.delay = d
		}
	}
}

// WithRateLimit caps sustained provider calls per second.
func WithRateLimit(callsPerSecond float64, burst int) BatchOption {
	return func(g *BatchGenerator) {
		if callsPerSecond > 0 && burst > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(callsPerSecond), burst)
		}
	}
}

// NewBatchGenerator creates a batch generator around the given embedder.
func NewBatchGenerator(embedder Embedder, opts ...BatchOption) *BatchGenerator {
	g := &BatchGenerator{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		delay:     DefaultBatchDelay,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Model returns the underlying embedder's model name.
func (g *BatchGenerator) Model() string { return g.embedder.Name() }

// Dimensions returns the underlying embedder's vector dimensionality.
func (g *BatchGenerator) Dimensions() int { return g.embedder.Dimensions() }

// GenerateAll embeds every text, or none. A failed batch or a short response
// aborts the whole run so that callers never store a partial vector set.
func (g *BatchGenerator) GenerateAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += g.batchSize {
		end := i + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("waiting for rate limiter: %w", err)
			}
		}

		batchVectors, err := g.embedder.Embed(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d: %w", i/g.batchSize+1, err)
		}
		if len(batchVectors) != len(batch) {
			return nil, fmt.Errorf("embedding batch %d: got %d vectors for %d texts", i/g.batchSize+1, len(batchVectors), len(batch))
		}
		vectors = append(vectors, batchVectors...)

		if end < len(texts) && g.delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(g.delay):
			}
		}
	}

	return vectors, nil
}
