package repositories

import (
	"context"

	"github.com/vsinha/blend/pkg/domain/entities"
)

// BlendRepository persists committed blends.
//
// Commit must reject a lot number that already exists and must consume every
// batch of the blend atomically: if any batch is already used the whole
// commit fails and nothing is written. Delete releases every batch the blend
// referenced in the same transaction that removes the blend.
type BlendRepository interface {
	Commit(ctx context.Context, blend *entities.Blend) (entities.BlendID, error)
	Delete(ctx context.Context, id entities.BlendID) error
	Get(ctx context.Context, id entities.BlendID) (*entities.Blend, error)
	List(ctx context.Context, fiscalYear int) ([]*entities.Blend, error)
}
