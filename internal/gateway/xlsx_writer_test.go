package gateway

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"retail-reports/internal/domain"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func sampleReport() domain.Report {
	report, _ := domain.Catalog(domain.ReportSales)
	return report
}

func sampleFrame() *domain.Frame {
	f := domain.NewFrame(domain.ColTicket, domain.ColQty, domain.ColNetValue, domain.ColSaleDate)
	f.Append(domain.Row{
		domain.ColTicket:   "T1",
		domain.ColQty:      2.0,
		domain.ColNetValue: 123.456,
		domain.ColSaleDate: time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC),
	})
	f.Append(domain.Row{
		domain.ColTicket:   "T2",
		domain.ColQty:      1.0,
		domain.ColNetValue: nil,
	})
	return f
}

func TestReportFileWriter_Write(t *testing.T) {
	dir := t.TempDir()
	w := NewReportFileWriter(dir, quietLogger())

	paths, err := w.Write(context.Background(), sampleReport(), sampleFrame())

	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "sales_clean.xlsx"), paths[0])
	assert.Equal(t, filepath.Join(dir, "sales_clean.csv"), paths[1])

	f, err := excelize.OpenFile(paths[0])
	require.NoError(t, err)
	defer f.Close()

	assert.Contains(t, f.GetSheetList(), "Sales")

	header, err := f.GetCellValue("Sales", "A1")
	require.NoError(t, err)
	assert.Equal(t, domain.ColTicket, header)

	ticket, err := f.GetCellValue("Sales", "A2")
	require.NoError(t, err)
	assert.Equal(t, "T1", ticket)

	// NET_VALUE is a currency column: rounded to two decimals.
	net, err := f.GetCellValue("Sales", "C2")
	require.NoError(t, err)
	assert.Equal(t, "123.46", net)

	empty, err := f.GetCellValue("Sales", "C3")
	require.NoError(t, err)
	assert.Empty(t, empty, "null cells stay blank")
}

func TestReportFileWriter_CSVTwin(t *testing.T) {
	dir := t.TempDir()
	w := NewReportFileWriter(dir, quietLogger())

	paths, err := w.Write(context.Background(), sampleReport(), sampleFrame())
	require.NoError(t, err)

	raw, err := os.ReadFile(paths[1])
	require.NoError(t, err)

	content := string(raw)
	assert.True(t, len(raw) > 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF, "CSV starts with a UTF-8 BOM")
	assert.Contains(t, content, "TICKET;QTY;NET_VALUE;SALE_DATE")
	assert.Contains(t, content, "T1;2;123,46;24/12/2025")
	assert.Contains(t, content, "T2;1;;")
}

func TestReportFileWriter_LockedFileFallback(t *testing.T) {
	dir := t.TempDir()
	w := NewReportFileWriter(dir, quietLogger())
	w.now = func() time.Time { return time.Date(2025, 12, 24, 18, 30, 0, 0, time.UTC) }

	// Occupy the target path with a directory so the save fails the same
	// way a locked workbook does.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sales_clean.xlsx"), 0o755))

	paths, err := w.Write(context.Background(), sampleReport(), sampleFrame())

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sales_clean_20251224_183000.xlsx"), paths[0])
	_, statErr := os.Stat(paths[0])
	assert.NoError(t, statErr)
}
