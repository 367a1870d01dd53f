package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	cabinsSheet  = "Top cabins"
)

// WriteAnnualXLSX writes the report as a workbook with a monthly summary sheet
// and a top cabins sheet
func WriteAnnualXLSX(w io.Writer, report *AnnualReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("error renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(cabinsSheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("error creating header style: %w", err)
	}

	rows := [][]any{{"Month", "Confirmed reservations", "Revenue"}}
	for i := range 12 {
		rows = append(rows, []any{
			time.Month(i + 1).String(),
			report.ConfirmedByMonth[i],
			report.RevenueByMonth[i].InexactFloat64(),
		})
	}
	rows = append(rows,
		[]any{"Total", sumInts(report.ConfirmedByMonth[:]), report.TotalRevenue().InexactFloat64()},
		[]any{},
		[]any{"Year", report.Year},
		[]any{"Surveys", report.Surveys},
		[]any{"Average rating", report.AverageRating.InexactFloat64()},
	)
	if err := writeRows(f, summarySheet, rows); err != nil {
		return err
	}

	cabins := [][]any{{"Cabin", "Reservations"}}
	for _, c := range report.TopCabins {
		cabins = append(cabins, []any{c.Name, c.Reservations})
	}
	if err := writeRows(f, cabinsSheet, cabins); err != nil {
		return err
	}

	for _, sheet := range []string{summarySheet, cabinsSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return fmt.Errorf("error styling header of %s: %w", sheet, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("error writing row %d of %s: %w", i+1, sheet, err)
		}
	}
	return nil
}

func sumInts(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}
