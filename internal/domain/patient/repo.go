package patient

import "context"

// VisitRepository is the append-only store of patient visits.
type VisitRepository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id int64) (*Visit, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Visit, int, error)
	LoadAll(ctx context.Context, f Filter) ([]*Visit, error)
}
