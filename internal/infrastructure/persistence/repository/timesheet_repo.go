package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garyjia/timesheet-invoicing/internal/application/port"
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const timesheetColumns = `
	id, user_id, user_name, customer_id, customer_name, project_id, project_name,
	activity_id, activity_name, description, begin_at, end_at, duration,
	hourly_rate, rate, currency, exported`

// TimesheetRepository implements port.TimesheetRepository
type TimesheetRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTimesheetRepository creates a new timesheet repository
func NewTimesheetRepository(db *sql.DB, logger *zap.Logger) port.TimesheetRepository {
	return &TimesheetRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a timesheet entry
func (r *TimesheetRepository) Create(ctx context.Context, ts *entity.Timesheet) error {
	query := `
		INSERT INTO timesheets (
			user_id, user_name, customer_id, customer_name, project_id, project_name,
			activity_id, activity_name, description, begin_at, end_at, duration,
			hourly_rate, rate, currency, exported
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		ts.UserID, ts.UserName, ts.CustomerID, ts.CustomerName,
		ts.ProjectID, ts.ProjectName, ts.ActivityID, ts.ActivityName,
		ts.Description, ts.Begin.UTC(), ts.End.UTC(), ts.Duration,
		ts.HourlyRate, ts.Rate, ts.Currency, ts.Exported,
	)
	if err != nil {
		r.logger.Error("Failed to create timesheet", zap.Error(err))
		return fmt.Errorf("failed to create timesheet: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	ts.ID = id
	return nil
}

// Find returns the entries matching filter ordered by begin, then id
func (r *TimesheetRepository) Find(ctx context.Context, filter entity.TimesheetFilter) ([]*entity.Timesheet, error) {
	f := filter.Normalize()

	var (
		where []string
		args  []interface{}
	)

	switch f.ExportState {
	case entity.ExportUnbilled:
		where = append(where, "exported = 0")
	case entity.ExportBilled:
		where = append(where, "exported = 1")
	}
	if f.Begin != nil {
		where = append(where, "begin_at >= ?")
		args = append(args, *f.Begin)
	}
	if f.End != nil {
		where = append(where, "begin_at < ?")
		args = append(args, *f.End)
	}

	for _, c := range []struct {
		column string
		ids    []int64
	}{
		{"customer_id", f.CustomerIDs},
		{"project_id", f.ProjectIDs},
		{"activity_id", f.ActivityIDs},
		{"user_id", f.UserIDs},
	} {
		if len(c.ids) == 0 {
			continue
		}
		clause, clauseArgs := inClause(c.column, c.ids)
		where = append(where, clause)
		args = append(args, clauseArgs...)
	}

	query := "SELECT " + timesheetColumns + " FROM timesheets"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY begin_at ASC, id ASC"

	return r.query(ctx, query, args...)
}

// GetByIDs returns the entries with the given ids ordered by begin, then id
func (r *TimesheetRepository) GetByIDs(ctx context.Context, ids []int64) ([]*entity.Timesheet, error) {
	if len(ids) == 0 {
		return []*entity.Timesheet{}, nil
	}

	clause, args := inClause("id", ids)
	query := "SELECT " + timesheetColumns + " FROM timesheets WHERE " + clause + " ORDER BY begin_at ASC, id ASC"
	return r.query(ctx, query, args...)
}

// MarkExported flags the entries that are still unbilled and reports how many changed
func (r *TimesheetRepository) MarkExported(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	clause, args := inClause("id", ids)
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		"UPDATE timesheets SET exported = 1 WHERE exported = 0 AND "+clause, args...)
	if err != nil {
		r.logger.Error("Failed to mark timesheets exported", zap.Int("count", len(ids)), zap.Error(err))
		return 0, fmt.Errorf("failed to mark timesheets exported: %w", err)
	}

	return result.RowsAffected()
}

// UnmarkExported makes the entries billable again
func (r *TimesheetRepository) UnmarkExported(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	clause, args := inClause("id", ids)
	if _, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		"UPDATE timesheets SET exported = 0 WHERE "+clause, args...); err != nil {
		r.logger.Error("Failed to unmark timesheets", zap.Int("count", len(ids)), zap.Error(err))
		return fmt.Errorf("failed to unmark timesheets: %w", err)
	}
	return nil
}

func (r *TimesheetRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Timesheet, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query timesheets", zap.Error(err))
		return nil, fmt.Errorf("failed to query timesheets: %w", err)
	}
	defer rows.Close()

	entries := make([]*entity.Timesheet, 0)
	for rows.Next() {
		var ts entity.Timesheet
		if err := rows.Scan(
			&ts.ID, &ts.UserID, &ts.UserName, &ts.CustomerID, &ts.CustomerName,
			&ts.ProjectID, &ts.ProjectName, &ts.ActivityID, &ts.ActivityName,
			&ts.Description, &ts.Begin, &ts.End, &ts.Duration,
			&ts.HourlyRate, &ts.Rate, &ts.Currency, &ts.Exported,
		); err != nil {
			return nil, fmt.Errorf("failed to scan timesheet: %w", err)
		}
		entries = append(entries, &ts)
	}

	return entries, rows.Err()
}

// inClause renders "column IN (?, ?, ...)" with its arguments
func inClause(column string, ids []int64) (string, []interface{}) {
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return column + " IN (" + strings.Join(placeholders, ", ") + ")", args
}

var _ port.TimesheetRepository = (*TimesheetRepository)(nil)
