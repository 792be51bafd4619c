package orchestrator

import (
	"context"
	"sync"

	"github.com/LLLin000/paper-fetcher/internal/paper"
)

// DefaultBatchConcurrency bounds parallel items in a batch. The shared host
// limiter still spaces requests to any one publisher.
const DefaultBatchConcurrency = 3

// BatchItem is the outcome for one identifier in a batch run.
type BatchItem struct {
	Input  string
	Result *paper.FetchResult
	Err    error
}

// FetchBatch resolves identifiers concurrently with a bounded worker pool.
// Per-item failures are isolated into their BatchItem; one identifier
// exhausting every layer never halts the rest. Interactive login is never
// started from a batch, whatever opts says.
func (o *Orchestrator) FetchBatch(ctx context.Context, raws []string, concurrency int, opts FetchOptions) []BatchItem {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	opts.AllowInteractiveLogin = false

	items := make([]BatchItem, len(raws))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				items[i].Input = raws[i]
				if err := ctx.Err(); err != nil {
					items[i].Err = err
					continue
				}
				items[i].Result, items[i].Err = o.Fetch(ctx, raws[i], opts)
			}
		}()
	}

	for i := range raws {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return items
}
