// Package exporter renders validation analytics into downloadable report
// workbooks.
package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"licensor/internal/license"
	"licensor/pkg/contracts/domain"
)

const (
	sheetSummary = "Summary"
	sheetDaily   = "Daily"
	sheetEntries = "Validations"
)

// BuildWorkbook renders the summary and the raw validation entries into an
// xlsx workbook: a summary sheet, a per-day sheet, and the entry list.
func BuildWorkbook(summary *license.Summary, entries []domain.ValidationLog) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := writeSummarySheet(f, summary); err != nil {
		return nil, err
	}
	if err := writeDailySheet(f, summary); err != nil {
		return nil, err
	}
	if err := writeEntriesSheet(f, entries); err != nil {
		return nil, err
	}

	// drop the default sheet excelize creates
	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(sheetSummary); err == nil {
		f.SetActiveSheet(idx)
	}
	return f, nil
}

func writeSummarySheet(f *excelize.File, s *license.Summary) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Total attempts", s.TotalAttempts},
		{"Successes", s.Successes},
		{"Failures", s.Failures},
		{"Tracked IP usage", s.TrackedIPUsage},
		{"Tracked HWID usage", s.TrackedHWIDUsage},
	}
	for reason, count := range s.ByReason {
		rows = append(rows, []interface{}{fmt.Sprintf("Reason: %s", reason), count})
	}
	for country, count := range s.ByCountry {
		rows = append(rows, []interface{}{fmt.Sprintf("Country: %s", country), count})
	}
	return writeRows(f, sheetSummary, rows)
}

func writeDailySheet(f *excelize.File, s *license.Summary) error {
	if _, err := f.NewSheet(sheetDaily); err != nil {
		return fmt.Errorf("failed to create daily sheet: %w", err)
	}
	rows := [][]interface{}{{"Day", "Attempts"}}
	for _, day := range s.Days() {
		rows = append(rows, []interface{}{day, s.ByDay[day]})
	}
	return writeRows(f, sheetDaily, rows)
}

func writeEntriesSheet(f *excelize.File, entries []domain.ValidationLog) error {
	if _, err := f.NewSheet(sheetEntries); err != nil {
		return fmt.Errorf("failed to create entries sheet: %w", err)
	}
	rows := [][]interface{}{{"Timestamp", "Event", "License Key", "Identity", "Outcome", "Reason", "IP", "HWID", "Country"}}
	for _, e := range entries {
		rows = append(rows, []interface{}{
			e.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			string(e.Event),
			e.LicenseKey,
			e.Identity,
			string(e.Outcome),
			string(e.Reason),
			e.IP,
			e.HWID,
			e.Country,
		})
	}
	return writeRows(f, sheetEntries, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d on %s: %w", i+1, sheet, err)
		}
	}
	return nil
}
