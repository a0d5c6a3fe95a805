package port

import (
	"context"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
)

// TokenStore keeps issued action tokens until they are consumed or expire
type TokenStore interface {
	Save(ctx context.Context, token *entity.ActionToken) error
	// Take returns and removes the token in one step; nil when unknown
	Take(ctx context.Context, value string) (*entity.ActionToken, error)
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
