package hospital

import "context"

// Repository is the persistence boundary for hospitals.
type Repository interface {
	CreateIfAbsent(ctx context.Context, h *Hospital) (bool, error)
	GetByID(ctx context.Context, id string) (*Hospital, error)
	Update(ctx context.Context, h *Hospital) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Hospital, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Hospital, int, error)
}
