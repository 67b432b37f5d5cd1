package port

import (
	"context"

	"memecoin_tracker/internal/domain/entity"
)

// RefreshService performs one incremental refresh pass over the tracked tokens.
type RefreshService interface {
	Run(ctx context.Context) (entity.RunReport, error)
}

// SocialService performs one social search pass over the persisted tokens.
type SocialService interface {
	Run(ctx context.Context) (entity.SocialReport, error)
}
