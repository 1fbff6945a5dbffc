package scan

import "context"

// TransitionFunc inspects and mutates a locked record. Returning an error
// aborts the unit of work without writing anything.
type TransitionFunc func(rec *Record) error

type Repository interface {
	// GetByCode returns ErrRecordNotFound when no row has the code.
	GetByCode(ctx context.Context, code string) (*Record, error)

	// Transition locks the row for code, runs fn against it and persists the
	// result in the same transaction. Concurrent calls for one code run one at a time.
	Transition(ctx context.Context, code string, fn TransitionFunc) (*Record, error)

	// ListByActor returns records the actor validated or dispensed, newest first.
	ListByActor(ctx context.Context, actor string, limit int) ([]*Record, error)
}
