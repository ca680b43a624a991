package concrete

import "context"

// ProjectRepository is the project store. Projects are append-only.
type ProjectRepository interface {
	Create(ctx context.Context, p *Project) error
	// Get resolves key as an id when numeric and as a nom_projet otherwise.
	Get(ctx context.Context, key string) (*Project, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Summary, int, error)
	LoadAll(ctx context.Context, f Filter) ([]*Project, error)
}
