package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licensor/internal/license"
	"licensor/internal/shared/testutil"
	"licensor/pkg/contracts/domain"
)

func TestBuildWorkbookSheets(t *testing.T) {
	summary := &license.Summary{
		TotalAttempts: 3,
		Successes:     2,
		Failures:      1,
		ByReason:      map[domain.Reason]int64{domain.ReasonExpired: 1},
		ByCountry:     map[string]int64{"DE": 3},
		ByDay:         map[string]int64{"2026-03-01": 3},
	}
	entries := []domain.ValidationLog{
		testutil.ValidationEntry("LIC-AAAA-BBBB-CCCC-DDDD", domain.OutcomeSuccess, domain.ReasonOK),
		testutil.ValidationEntry("LIC-AAAA-BBBB-CCCC-DDDD", domain.OutcomeFailure, domain.ReasonExpired),
	}

	f, err := BuildWorkbook(summary, entries)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.ElementsMatch(t, []string{"Summary", "Daily", "Validations"}, sheets)

	got, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "3", got)

	day, err := f.GetCellValue("Daily", "A2")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", day)

	key, err := f.GetCellValue("Validations", "C2")
	require.NoError(t, err)
	assert.Equal(t, "LIC-AAAA-BBBB-CCCC-DDDD", key)
}

func TestBuildWorkbookEmpty(t *testing.T) {
	f, err := BuildWorkbook(&license.Summary{
		ByReason:  map[domain.Reason]int64{},
		ByCountry: map[string]int64{},
		ByDay:     map[string]int64{},
	}, nil)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Validations")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Timestamp", rows[0][0])
}
