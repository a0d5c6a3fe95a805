package service

import (
	"context"
	"fmt"

	"github.com/garyjia/timesheet-invoicing/internal/application/port"
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
)

// TimesheetSelector finds the entries a filter would bill
type TimesheetSelector interface {
	Select(ctx context.Context, filter entity.TimesheetFilter) ([]*entity.Timesheet, error)
}

type timesheetSelectorImpl struct {
	timesheets port.TimesheetRepository
}

// NewTimesheetSelector creates a new TimesheetSelector
func NewTimesheetSelector(timesheets port.TimesheetRepository) TimesheetSelector {
	return &timesheetSelectorImpl{timesheets: timesheets}
}

// Select returns matching entries ordered by begin, then id. An empty
// result is not an error.
func (s *timesheetSelectorImpl) Select(ctx context.Context, filter entity.TimesheetFilter) ([]*entity.Timesheet, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	entries, err := s.timesheets.Find(ctx, filter.Normalize())
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	return entries, nil
}
