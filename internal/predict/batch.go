package predict

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result pairs one input URL with its prediction or failure. Per-URL
// failures never abort the batch; the caller decides how to report them.
type Result struct {
	URL        string
	Prediction Prediction
	Err        error
}

// PredictBatch resolves all URLs with bounded concurrency, preserving input
// order in the returned slice. It returns an error only when ctx is
// cancelled.
func (c *Client) PredictBatch(ctx context.Context, urls []string, concurrency int) ([]Result, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]Result, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			prediction, err := c.Predict(ctx, url)
			results[i] = Result{
				URL:        url,
				Prediction: prediction,
				Err:        err,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
