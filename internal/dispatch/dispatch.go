package dispatch

import (
	"context"
	"fmt"

	"github.com/supabridge/supabridge/internal/model"
	"github.com/supabridge/supabridge/internal/supabase"
)

// Options tunes dispatch behavior for a whole batch.
type Options struct {
	// StrictOperators rejects unrecognized filter operators instead of
	// silently degrading them to eq.
	StrictOperators bool
}

// Dispatch executes one operation request against the backend and returns
// its result items. Errors are wrapped with one layer of operation context;
// the underlying error remains reachable through errors.As for
// classification.
func Dispatch(ctx context.Context, c *supabase.Client, req model.OperationRequest, opts Options) ([]model.ResultItem, error) {
	switch req.Resource {
	case model.ResourceDatabase:
		items, err := dispatchDatabase(ctx, c, req, opts)
		if err != nil {
			return nil, fmt.Errorf("Database operation failed: %w", err)
		}
		return items, nil
	case model.ResourceStorage:
		items, err := dispatchStorage(ctx, c, req, opts)
		if err != nil {
			return nil, fmt.Errorf("Storage operation failed: %w", err)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unknown resource %q", req.Resource)
	}
}
