package analysis

import "context"

// Store is the persistence interface for analysis run records.
type Store interface {
	Get(ctx context.Context, id string) (*Result, bool, error)
	GetByFarm(ctx context.Context, farmCode string) (*Result, bool, error)
	Put(ctx context.Context, result *Result) error
}
