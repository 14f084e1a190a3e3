// Package batch runs a sequence of operation requests against one backend
// client, applying the per-item partial-failure policy.
package batch

import (
	"context"

	"github.com/supabridge/supabridge/internal/dispatch"
	"github.com/supabridge/supabridge/internal/model"
	"github.com/supabridge/supabridge/internal/supabase"
)

// Options controls a single run.
type Options struct {
	// ContinueOnFail converts a failed item into a synthetic error record
	// and proceeds, instead of aborting the whole batch.
	ContinueOnFail bool
	// StrictOperators rejects unrecognized filter operators.
	StrictOperators bool
}

// Run processes items strictly sequentially, by index. Each item yields
// zero or more result items appended in order; no result from one item is
// ever merged with another's. On error, either a synthetic
// {error, itemIndex} record is appended (continue-on-fail) or the batch
// aborts immediately, leaving remaining items unprocessed.
func Run(ctx context.Context, client *supabase.Client, items []model.OperationRequest, opts Options) ([]model.ResultItem, error) {
	results := make([]model.ResultItem, 0, len(items))
	dispatchOpts := dispatch.Options{StrictOperators: opts.StrictOperators}

	for i, item := range items {
		item.ItemIndex = i
		out, err := dispatch.Dispatch(ctx, client, item, dispatchOpts)
		if err != nil {
			if opts.ContinueOnFail {
				results = append(results, model.ErrorItem(i, err))
				continue
			}
			return nil, err
		}
		results = append(results, out...)
	}
	return results, nil
}
