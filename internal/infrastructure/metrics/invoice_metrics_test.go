package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/timesheet-invoicing/internal/application/dispatcher"
	"github.com/garyjia/timesheet-invoicing/internal/domain/event"
)

func scrape(t *testing.T, m *InvoiceMetrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestInvoiceMetrics_CountsEvents(t *testing.T) {
	m, err := NewInvoiceMetrics(Config{ServiceName: "test", Environment: "ci"})
	require.NoError(t, err)

	d := dispatcher.NewDispatcher()
	m.Subscribe(d)
	ctx := context.Background()

	events := []*event.Event{
		event.NewEvent(event.TypeInvoiceCreated, 1, nil),
		event.NewEvent(event.TypeInvoiceCreated, 2, nil),
		event.NewEvent(event.TypeCommitFailed, 0, map[string]interface{}{"kind": "nothing_to_bill"}),
		event.NewEvent(event.TypeTokenRejected, 0, map[string]interface{}{"purpose": "create", "reason": "consumed"}),
		event.NewEvent(event.TypeInvoiceStatusChanged, 1, map[string]interface{}{"to": "PAID"}),
		event.NewEvent(event.TypeInvoiceDeleted, 2, nil),
		event.NewEvent(event.TypeCommitFailed, 0, nil),
	}
	for _, evt := range events {
		require.NoError(t, d.Dispatch(ctx, evt))
	}

	body := scrape(t, m)
	assert.Contains(t, body, `invoicing_invoices_created_total{env="ci",service="test"} 2`)
	assert.Contains(t, body, `invoicing_commit_failures_total{env="ci",kind="nothing_to_bill",service="test"} 1`)
	assert.Contains(t, body, `invoicing_commit_failures_total{env="ci",kind="unknown",service="test"} 1`)
	assert.Contains(t, body, `invoicing_token_rejections_total{env="ci",purpose="create",reason="consumed",service="test"} 1`)
	assert.Contains(t, body, `invoicing_status_changes_total{env="ci",service="test",to="PAID"} 1`)
	assert.Contains(t, body, `invoicing_invoices_deleted_total{env="ci",service="test"} 1`)
}

func TestInvoiceMetrics_IndependentRegistries(t *testing.T) {
	_, err := NewInvoiceMetrics(Config{})
	require.NoError(t, err)
	m, err := NewInvoiceMetrics(Config{})
	require.NoError(t, err, "a second instance must not collide with the first")

	assert.Contains(t, scrape(t, m), `invoicing_invoices_created_total{env="unknown",service="invoicing"} 0`)
}
