package gateway

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retail-reports/internal/domain"
)

// utf8BOM keeps accented text intact when the CSV is opened in spreadsheet
// tools that assume a legacy encoding without it.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// writeCSV renders the batch as a semicolon-separated CSV with decimal
// commas, the layout the downstream loaders ingest.
func writeCSV(path string, report domain.Report, frame *domain.Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM to %s: %w", path, err)
	}

	writer := csv.NewWriter(file)
	writer.Comma = ';'

	columns := frame.Columns()
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}

	currency := toSet(report.CurrencyCols)
	record := make([]string, len(columns))
	for i := 0; i < frame.Len(); i++ {
		for c, col := range columns {
			record[c] = csvCell(frame.Value(i, col), currency[col])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d to %s: %w", i+1, path, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

func csvCell(v any, currency bool) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.Format("02/01/2006")
	case float64:
		if currency {
			return strings.ReplaceAll(decimal.NewFromFloat(x).StringFixed(2), ".", ",")
		}
		return strings.ReplaceAll(domain.Text(x), ".", ",")
	default:
		return domain.Text(v)
	}
}
