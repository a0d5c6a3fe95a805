package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"github.com/garyjia/timesheet-invoicing/internal/domain/money"
	"github.com/garyjia/timesheet-invoicing/internal/domain/workflow"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/timesheet-invoicing/migrations"
	"github.com/garyjia/timesheet-invoicing/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupDB(t *testing.T) *database.DB {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "invoices.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(migrations.FS))
	return db
}

func seedEntries(t *testing.T, repo *TimesheetRepository, n int, start time.Time) []*entity.Timesheet {
	t.Helper()

	entries := make([]*entity.Timesheet, 0, n)
	for i := 0; i < n; i++ {
		ts := &entity.Timesheet{
			UserID:     1,
			CustomerID: 10,
			ProjectID:  100 + int64(i%2),
			ActivityID: 1000,
			Begin:      start.Add(time.Duration(i) * time.Hour),
			End:        start.Add(time.Duration(i)*time.Hour + 30*time.Minute),
			Duration:   1800,
			HourlyRate: 20000,
			Rate:       10000,
			Currency:   "EUR",
		}
		require.NoError(t, repo.Create(context.Background(), ts))
		entries = append(entries, ts)
	}
	return entries
}

func TestTimesheetRepository_FindFilters(t *testing.T) {
	db := setupDB(t)
	repo := NewTimesheetRepository(db.DB, zap.NewNop()).(*TimesheetRepository)
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	entries := seedEntries(t, repo, 4, start)
	_, err := repo.MarkExported(ctx, []int64{entries[3].ID})
	require.NoError(t, err)

	t.Run("unbilled by default, ordered by begin", func(t *testing.T) {
		got, err := repo.Find(ctx, entity.TimesheetFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, entries[0].ID, got[0].ID)
		assert.Equal(t, entries[2].ID, got[2].ID)
		assert.True(t, got[0].Begin.Equal(start))
	})

	t.Run("re-billing view includes exported", func(t *testing.T) {
		got, err := repo.Find(ctx, entity.TimesheetFilter{ExportState: entity.ExportAll})
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})

	t.Run("billed only", func(t *testing.T) {
		got, err := repo.Find(ctx, entity.TimesheetFilter{ExportState: entity.ExportBilled})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].Exported)
	})

	t.Run("project and date range", func(t *testing.T) {
		end := start.Add(90 * time.Minute)
		got, err := repo.Find(ctx, entity.TimesheetFilter{ProjectIDs: []int64{100}, Begin: &start, End: &end})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, entries[0].ID, got[0].ID)
	})

	t.Run("end is exclusive", func(t *testing.T) {
		end := start.Add(2 * time.Hour)
		got, err := repo.Find(ctx, entity.TimesheetFilter{ExportState: entity.ExportAll, Begin: &start, End: &end})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, entries[1].ID, got[1].ID)
	})
}

func TestTimesheetRepository_FindIncludesLastSecondOfDay(t *testing.T) {
	db := setupDB(t)
	repo := NewTimesheetRepository(db.DB, zap.NewNop()).(*TimesheetRepository)
	ctx := context.Background()

	dayEnd := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	late := seedEntries(t, repo, 1, dayEnd.Add(-500*time.Millisecond))
	next := seedEntries(t, repo, 1, dayEnd)

	begin := dayEnd.AddDate(0, 0, -1)
	got, err := repo.Find(ctx, entity.TimesheetFilter{Begin: &begin, End: &dayEnd})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, late[0].ID, got[0].ID)
	assert.NotEqual(t, next[0].ID, got[0].ID)
}

func TestTimesheetRepository_MarkExportedIsConditional(t *testing.T) {
	db := setupDB(t)
	repo := NewTimesheetRepository(db.DB, zap.NewNop()).(*TimesheetRepository)
	ctx := context.Background()

	entries := seedEntries(t, repo, 3, time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	ids := []int64{entries[0].ID, entries[1].ID}

	n, err := repo.MarkExported(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.MarkExported(ctx, []int64{entries[1].ID, entries[2].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "already exported entries are not counted")

	require.NoError(t, repo.UnmarkExported(ctx, ids))
	got, err := repo.Find(ctx, entity.TimesheetFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestTemplateRepository_CRUD(t *testing.T) {
	db := setupDB(t)
	repo := NewTemplateRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	tpl := &entity.InvoiceTemplate{
		Name:          "Default",
		Company:       "Acme GmbH",
		Calculator:    "default",
		Renderer:      "json",
		TaxRate:       1900,
		NumberFormat:  "{Y}-{cy,4}",
		DueDays:       14,
		ActivityRates: map[int64]money.Amount{7: 12000},
	}
	require.NoError(t, repo.Create(ctx, tpl))
	require.NotZero(t, tpl.ID)

	got, err := repo.GetByID(ctx, tpl.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, money.Rate(1900), got.TaxRate)
	assert.Equal(t, money.Amount(12000), got.ActivityRates[7])

	got.Company = "Acme AG"
	require.NoError(t, repo.Update(ctx, got))

	byName, err := repo.GetByName(ctx, "Default")
	require.NoError(t, err)
	assert.Equal(t, "Acme AG", byName.Company)

	require.Error(t, repo.Create(ctx, &entity.InvoiceTemplate{Name: "Default", Calculator: "default", Renderer: "json", NumberFormat: "{c}"}),
		"names are unique")

	require.NoError(t, repo.Delete(ctx, tpl.ID))
	missing, err := repo.GetByID(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInvoiceRepository_Lifecycle(t *testing.T) {
	db := setupDB(t)
	logger := zap.NewNop()
	ctx := context.Background()
	timesheets := NewTimesheetRepository(db.DB, logger).(*TimesheetRepository)
	templates := NewTemplateRepository(db.DB, logger)
	invoices := NewInvoiceRepository(db.DB, logger)

	tpl := &entity.InvoiceTemplate{Name: "T", Calculator: "default", Renderer: "json", NumberFormat: "{c}"}
	require.NoError(t, templates.Create(ctx, tpl))
	entries := seedEntries(t, timesheets, 2, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))

	inv := &entity.Invoice{
		ID:               1234567890123,
		Number:           "1",
		Status:           workflow.StateNew,
		TemplateID:       tpl.ID,
		Operator:         "alice",
		Currency:         "EUR",
		Subtotal:         20000,
		TaxRate:          1900,
		TaxAmount:        3800,
		Total:            23800,
		IssueDate:        time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		DueDate:          time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC),
		DocumentLocator:  "invoices/1234567890123/document.json",
		DocumentMimeType: "application/json",
		DocumentName:     "1.json",
	}
	require.NoError(t, invoices.Create(ctx, inv))
	require.NoError(t, invoices.AttachEntries(ctx, inv.ID, []int64{entries[0].ID, entries[1].ID}))

	got, err := invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, workflow.StateNew, got.Status)
	assert.Equal(t, []int64{entries[0].ID, entries[1].ID}, got.EntryIDs)
	assert.Nil(t, got.PaymentDate)

	paid := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, invoices.UpdateStatus(ctx, inv.ID, workflow.StateNew, workflow.StatePaid, &paid))
	got, err = invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PaymentDate)
	assert.True(t, got.PaymentDate.Equal(paid))

	// a write based on an outdated status is refused
	err = invoices.UpdateStatus(ctx, inv.ID, workflow.StatePending, workflow.StateNew, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	err = invoices.UpdateStatus(ctx, inv.ID+99, workflow.StateNew, workflow.StatePaid, &paid)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	got, err = invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePaid, got.Status)

	list, err := invoices.List(ctx, entity.InvoiceFilter{Statuses: []workflow.State{workflow.StatePaid}})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	count, err := invoices.CountByTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	dup := *inv
	dup.ID = inv.ID + 1
	assert.Error(t, invoices.Create(ctx, &dup), "numbers are unique")

	ids, err := invoices.DetachEntries(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	require.NoError(t, invoices.Delete(ctx, inv.ID))
	got, err = invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvoiceRepository_EntryBelongsToOneInvoice(t *testing.T) {
	db := setupDB(t)
	logger := zap.NewNop()
	ctx := context.Background()
	timesheets := NewTimesheetRepository(db.DB, logger).(*TimesheetRepository)
	templates := NewTemplateRepository(db.DB, logger)
	invoices := NewInvoiceRepository(db.DB, logger)

	tpl := &entity.InvoiceTemplate{Name: "T", Calculator: "default", Renderer: "json", NumberFormat: "{c}"}
	require.NoError(t, templates.Create(ctx, tpl))
	entries := seedEntries(t, timesheets, 1, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))

	for i, number := range []string{"A", "B"} {
		inv := &entity.Invoice{
			ID: int64(100 + i), Number: number, Status: workflow.StateNew, TemplateID: tpl.ID,
			Operator: "bob", Currency: "EUR", IssueDate: time.Now(), DueDate: time.Now(),
			DocumentLocator: "x", DocumentMimeType: "application/json", DocumentName: "x.json",
		}
		require.NoError(t, invoices.Create(ctx, inv))
	}

	require.NoError(t, invoices.AttachEntries(ctx, 100, []int64{entries[0].ID}))
	assert.Error(t, invoices.AttachEntries(ctx, 101, []int64{entries[0].ID}))
}

func TestSequenceRepository_Increment(t *testing.T) {
	db := setupDB(t)
	repo := NewSequenceRepository(db.DB, zap.NewNop())
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := repo.Increment(ctx, "{Y}-{cy}", "2026")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := repo.Increment(ctx, "{Y}-{cy}", "2027")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "a new epoch starts over")
}

func TestSequenceRepository_ConcurrentIncrementsAreDistinct(t *testing.T) {
	db := setupDB(t)
	repo := NewSequenceRepository(db.DB, zap.NewNop())
	tx := sqlite.NewDB(db.DB, zap.NewNop())

	const workers = 20
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		values = make(map[int64]bool)
		errs   []error
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tx.WithTransaction(context.Background(), func(ctx context.Context) error {
				v, err := repo.Increment(ctx, "{c}", "all")
				if err != nil {
					return err
				}
				mu.Lock()
				values[v] = true
				mu.Unlock()
				return nil
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs, fmt.Sprint(errs))
	assert.Len(t, values, workers)
	for v := int64(1); v <= workers; v++ {
		assert.True(t, values[v], "missing value %d", v)
	}
}
