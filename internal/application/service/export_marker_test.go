package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"github.com/garyjia/timesheet-invoicing/internal/domain/workflow"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/persistence/sqlite"
)

func TestExportMarker(t *testing.T) {
	h := newHarness(t)
	tpl := h.template(t)
	entries := h.seed(t, 3)
	marker := NewExportMarker(h.timesheets, h.invoices, sqlite.NewDB(h.db.DB, zap.NewNop()))
	ctx := context.Background()

	newInvoice := func(id int64, number string) {
		require.NoError(t, h.invoices.Create(ctx, &entity.Invoice{
			ID:         id,
			Number:     number,
			Status:     workflow.StateNew,
			TemplateID: tpl.ID,
			Currency:   "EUR",
			IssueDate:  fixedNow,
			DueDate:    fixedNow,
		}))
	}
	newInvoice(1, "A-1")
	newInvoice(2, "A-2")

	ids := []int64{entries[0].ID, entries[1].ID}

	t.Run("rejects empty and duplicate lists", func(t *testing.T) {
		var vErr *errs.ValidationError
		assert.ErrorAs(t, marker.MarkExported(ctx, nil, 1), &vErr)
		assert.ErrorAs(t, marker.MarkExported(ctx, []int64{ids[0], ids[0]}, 1), &vErr)
	})

	t.Run("marks entries", func(t *testing.T) {
		require.NoError(t, marker.MarkExported(ctx, ids, 1))
		assert.Len(t, h.unbilled(t), 1)
	})

	t.Run("replay is refused and changes nothing", func(t *testing.T) {
		err := marker.MarkExported(ctx, []int64{entries[1].ID, entries[2].ID}, 2)
		assert.ErrorIs(t, err, errs.ErrAlreadyExported)

		unbilled := h.unbilled(t)
		require.Len(t, unbilled, 1)
		assert.Equal(t, entries[2].ID, unbilled[0].ID)
	})

	t.Run("unmark restores entries", func(t *testing.T) {
		restored, err := marker.UnmarkExported(ctx, 1)
		require.NoError(t, err)
		assert.ElementsMatch(t, ids, restored)
		assert.Len(t, h.unbilled(t), 3)

		restored, err = marker.UnmarkExported(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, restored)
	})
}
