package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"github.com/garyjia/timesheet-invoicing/internal/domain/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimesheetFilter_Fingerprint(t *testing.T) {
	begin := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
	berlin := time.FixedZone("CET", 3600)
	beginLocal := begin.In(berlin)

	a := TimesheetFilter{Begin: &begin, End: &end, CustomerIDs: []int64{3, 1, 3}}
	b := TimesheetFilter{Begin: &beginLocal, End: &end, CustomerIDs: []int64{1, 3}, ExportState: ExportUnbilled}
	c := TimesheetFilter{Begin: &begin, End: &end, CustomerIDs: []int64{1}}
	d := TimesheetFilter{Begin: &begin, End: &end, CustomerIDs: []int64{1, 3}, ExportState: ExportAll}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "same criteria in a different order")
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)
}

func TestTimesheetFilter_MovedIDsChangeFingerprint(t *testing.T) {
	a := TimesheetFilter{CustomerIDs: []int64{1}}
	b := TimesheetFilter{ProjectIDs: []int64{1}}

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestTimesheetFilter_Validate(t *testing.T) {
	begin := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    TimesheetFilter
		wantField string
	}{
		{"empty filter", TimesheetFilter{}, ""},
		{"reversed range", TimesheetFilter{Begin: &begin, End: &end}, "daterange"},
		{"unknown export state", TimesheetFilter{ExportState: "sometimes"}, "exported"},
		{"negative project", TimesheetFilter{ProjectIDs: []int64{4, -1}}, "projects"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *errs.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestTimesheetFilter_Normalize(t *testing.T) {
	n := TimesheetFilter{UserIDs: []int64{5, 2, 5, 2, 9}}.Normalize()

	assert.Equal(t, []int64{2, 5, 9}, n.UserIDs)
	assert.Equal(t, ExportUnbilled, n.ExportState)
	assert.Nil(t, n.CustomerIDs)
}

func TestInvoiceTemplate_Copy(t *testing.T) {
	tpl := &InvoiceTemplate{ID: 7, Name: "Monthly", ActivityRates: map[int64]money.Amount{1: 9000}}

	c := tpl.Copy()
	c.ActivityRates[1] = 1

	assert.Equal(t, "Monthly (1)", c.Name)
	assert.Zero(t, c.ID)
	assert.Equal(t, money.Amount(9000), tpl.ActivityRates[1])
}

func TestActionToken_Expired(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tok := &ActionToken{ExpiresAt: now}

	assert.True(t, tok.Expired(now))
	assert.False(t, tok.Expired(now.Add(-time.Second)))
}
