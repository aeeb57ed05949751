package analysis

import "context"

// Engine is the blocking analysis collaborator. Both calls can take multiple
// seconds and must only be invoked through the task pool, never on the
// gateway dispatch path.
type Engine interface {
	// ProcessSingleStock runs the full pipeline for one stock code.
	// Returns errors.ErrEmptyResult when the engine produced nothing.
	ProcessSingleStock(ctx context.Context, code string) (*Result, error)

	// MarketReview generates the plain-text market review report.
	// Returns errors.ErrEmptyResult when no report could be generated.
	MarketReview(ctx context.Context) (string, error)
}
