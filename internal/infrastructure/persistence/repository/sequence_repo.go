package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/timesheet-invoicing/internal/application/port"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// SequenceRepository implements port.SequenceRepository on the invoice_sequences table
type SequenceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSequenceRepository creates a new sequence repository
func NewSequenceRepository(db *sql.DB, logger *zap.Logger) port.SequenceRepository {
	return &SequenceRepository{
		db:     db,
		logger: logger,
	}
}

// Increment advances the counter in a single upsert statement
func (r *SequenceRepository) Increment(ctx context.Context, scheme, epoch string) (int64, error) {
	query := `
		INSERT INTO invoice_sequences (scheme, epoch, last_value) VALUES (?, ?, 1)
		ON CONFLICT (scheme, epoch) DO UPDATE SET
			last_value = last_value + 1,
			updated_at = CURRENT_TIMESTAMP
		RETURNING last_value
	`

	var value int64
	if err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, scheme, epoch).Scan(&value); err != nil {
		r.logger.Error("Failed to advance invoice sequence",
			zap.String("scheme", scheme),
			zap.String("epoch", epoch),
			zap.Error(err))
		return 0, fmt.Errorf("failed to advance sequence: %w", err)
	}
	return value, nil
}

var _ port.SequenceRepository = (*SequenceRepository)(nil)
