package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		loc     *time.Location
		want    time.Time
		wantErr bool
	}{
		{"calendar date", "2024-03-15", time.UTC, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"surrounding spaces", " 2024-03-15 ", nil, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"rfc3339", "2024-03-15T10:30:00Z", time.UTC, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), false},
		{"rfc3339 crosses midnight in location", "2024-03-15T23:30:00Z", berlin, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), false},
		{"not a date", "not-a-date", time.UTC, time.Time{}, true},
		{"impossible day", "2024-02-30", time.UTC, time.Time{}, true},
		{"empty", "", time.UTC, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input, tt.loc)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "INV-2024-0001", SanitizeFileName("INV/2024/0001"))
	assert.Equal(t, "a-b", SanitizeFileName("..a b.."))
	assert.Equal(t, "", SanitizeFileName("///"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "ab", SanitizeString("a\x00b\x1f"))
}
