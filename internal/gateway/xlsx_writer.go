package gateway

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"retail-reports/internal/domain"
)

const (
	dateCellFormat = "dd/mm/yyyy"
	lockedSuffix   = "20060102_150405"
)

// ReportFileWriter implements the ReportWriter interface, rendering every
// report twice: an XLSX workbook for the business users and a CSV twin for
// the downstream loaders (semicolon separated, decimal comma).
type ReportFileWriter struct {
	dir string
	log *logrus.Logger
	now func() time.Time
}

// NewReportFileWriter creates a writer that places artifacts under dir.
func NewReportFileWriter(dir string, log *logrus.Logger) *ReportFileWriter {
	if log == nil {
		log = logrus.New()
	}
	return &ReportFileWriter{dir: dir, log: log, now: time.Now}
}

// Write renders the batch and returns the artifact paths.
func (w *ReportFileWriter) Write(ctx context.Context, report domain.Report, frame *domain.Frame) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	xlsxPath, err := w.writeXLSX(report, frame)
	if err != nil {
		return nil, err
	}
	csvPath := filepath.Join(w.dir, report.FileBase+".csv")
	if err := writeCSV(csvPath, report, frame); err != nil {
		return nil, err
	}
	return []string{xlsxPath, csvPath}, nil
}

func (w *ReportFileWriter) writeXLSX(report domain.Report, frame *domain.Frame) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := report.Sheet
	index, err := f.NewSheet(sheet)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	f.SetActiveSheet(index)
	if sheet != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}

	// Currency columns get fixed two-decimal rendering, date columns
	// day/month/year.
	currencyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return "", fmt.Errorf("failed to create currency style: %w", err)
	}
	dateFormat := dateCellFormat
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
	if err != nil {
		return "", fmt.Errorf("failed to create date style: %w", err)
	}

	columns := frame.Columns()
	currency := toSet(report.CurrencyCols)
	dates := toSet(report.DateCols)

	for c, col := range columns {
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return "", fmt.Errorf("failed to address column %d: %w", c+1, err)
		}
		if currency[col] {
			if err := f.SetColStyle(sheet, name, currencyStyle); err != nil {
				return "", fmt.Errorf("failed to style column %s: %w", col, err)
			}
		}
		if dates[col] {
			if err := f.SetColStyle(sheet, name, dateStyle); err != nil {
				return "", fmt.Errorf("failed to style column %s: %w", col, err)
			}
		}
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return "", fmt.Errorf("failed to write header %s: %w", col, err)
		}
	}

	for i := 0; i < frame.Len(); i++ {
		for c, col := range columns {
			v := frame.Value(i, col)
			if v == nil {
				continue
			}
			if n, ok := v.(float64); ok && currency[col] {
				v = decimal.NewFromFloat(n).Round(2).InexactFloat64()
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, i+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return "", fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	path := filepath.Join(w.dir, report.FileBase+".xlsx")
	if err := f.SaveAs(path); err != nil {
		// The target is typically open in a spreadsheet on the destination
		// machine. Fall back to a timestamped sibling instead of failing
		// the run.
		alt := filepath.Join(w.dir, fmt.Sprintf("%s_%s.xlsx", report.FileBase, w.now().Format(lockedSuffix)))
		w.log.WithFields(logrus.Fields{"path": path, "fallback": alt}).WithError(err).Warn("output file unavailable, using fallback name")
		if err := f.SaveAs(alt); err != nil {
			return "", fmt.Errorf("failed to save workbook %s: %w", alt, err)
		}
		return alt, nil
	}
	return path, nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
