package relations

import (
	"context"

	"github.com/vidhub/backend/internal/models"
)

// Store persists relationship edges. Insert and Remove must be atomic per edge:
// two concurrent inserts of the same edge leave exactly one row and one of them
// fails with ErrAlreadyExists.
type Store interface {
	Exists(ctx context.Context, edge models.Edge) (bool, error)
	Insert(ctx context.Context, edge models.Edge) error
	Remove(ctx context.Context, edge models.Edge) error
	CountByTarget(ctx context.Context, targetID string, kind models.EdgeKind) (int64, error)
	CountByActor(ctx context.Context, actorID string, kind models.EdgeKind) (int64, error)
	ListTargets(ctx context.Context, actorID string, kind models.EdgeKind) ([]string, error)
	ListActors(ctx context.Context, targetID string, kind models.EdgeKind) ([]string, error)
}
