package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportService renders monthly ledger reports as downloadable files
type ExportService struct {
	reportSvc *ReportService
}

// NewExportService creates a new export service
func NewExportService(reportSvc *ReportService) *ExportService {
	return &ExportService{reportSvc: reportSvc}
}

// MonthlyLedgerCSV renders the Hijri month report as CSV
func (s *ExportService) MonthlyLedgerCSV(ctx context.Context, lunarYear, lunarMonth int) ([]byte, string, error) {
	report, err := s.reportSvc.MonthlyLedgerReportFor(ctx, lunarYear, lunarMonth)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write([]string{"Monthly Ledger Report", fmt.Sprintf("%d/%d AH", lunarYear, lunarMonth)})
	_ = writer.Write([]string{"Window", report.Window.Start.Format("2006-01-02"), report.Window.End.Format("2006-01-02")})
	if report.UsedFallback {
		_ = writer.Write([]string{"Note", "lunar month unresolved, current Gregorian month used"})
	}
	_ = writer.Write([]string{""})

	_ = writer.Write([]string{"Metric", "Amount"})
	_ = writer.Write([]string{"Opening Balance", fmt.Sprintf("%d", report.Totals.OpeningBalance)})
	_ = writer.Write([]string{"Total Income", fmt.Sprintf("%d", report.Totals.TotalIncome)})
	_ = writer.Write([]string{"Total Expense", fmt.Sprintf("%d", report.Totals.TotalExpense)})
	_ = writer.Write([]string{"Closing Balance", fmt.Sprintf("%d", report.Totals.ClosingBalance)})
	_ = writer.Write([]string{""})

	_ = writer.Write([]string{"Fuel by Vehicle"})
	_ = writer.Write([]string{"Vehicle", "Total", "Entries"})
	for _, row := range report.FuelByCar {
		name := row.VehicleName
		if name == "" {
			name = "(unassigned)"
		}
		_ = writer.Write([]string{name, fmt.Sprintf("%d", row.Total), fmt.Sprintf("%d", row.Entries)})
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("ledger_report_%d_%02d_%s.csv", lunarYear, lunarMonth, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// MonthlyLedgerXLSX renders the Hijri month report as an Excel workbook
func (s *ExportService) MonthlyLedgerXLSX(ctx context.Context, lunarYear, lunarMonth int) ([]byte, string, error) {
	report, err := s.reportSvc.MonthlyLedgerReportFor(ctx, lunarYear, lunarMonth)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Ledger"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Monthly Ledger Report %d/%d AH", lunarYear, lunarMonth))
	_ = f.SetCellStyle(sheet, "A1", "A1", headerStyle)
	_ = f.SetCellValue(sheet, "A2", "Window")
	_ = f.SetCellValue(sheet, "B2", report.Window.Start.Format("2006-01-02"))
	_ = f.SetCellValue(sheet, "C2", report.Window.End.Format("2006-01-02"))
	if report.UsedFallback {
		_ = f.SetCellValue(sheet, "D2", "fallback: current Gregorian month")
	}

	_ = f.SetCellValue(sheet, "A4", "Metric")
	_ = f.SetCellValue(sheet, "B4", "Amount")
	_ = f.SetCellValue(sheet, "A5", "Opening Balance")
	_ = f.SetCellValue(sheet, "B5", report.Totals.OpeningBalance)
	_ = f.SetCellValue(sheet, "A6", "Total Income")
	_ = f.SetCellValue(sheet, "B6", report.Totals.TotalIncome)
	_ = f.SetCellValue(sheet, "A7", "Total Expense")
	_ = f.SetCellValue(sheet, "B7", report.Totals.TotalExpense)
	_ = f.SetCellValue(sheet, "A8", "Closing Balance")
	_ = f.SetCellValue(sheet, "B8", report.Totals.ClosingBalance)

	_ = f.SetCellValue(sheet, "A10", "Fuel by Vehicle")
	_ = f.SetCellValue(sheet, "A11", "Vehicle")
	_ = f.SetCellValue(sheet, "B11", "Total")
	_ = f.SetCellValue(sheet, "C11", "Entries")
	row := 12
	for _, fuel := range report.FuelByCar {
		name := fuel.VehicleName
		if name == "" {
			name = "(unassigned)"
		}
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), name)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), fuel.Total)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), fuel.Entries)
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("ledger_report_%d_%02d_%s.xlsx", lunarYear, lunarMonth, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}
