package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"retail-reports/internal/domain"
)

// product attribute columns attached to dependent reports.
var (
	inventoryProductCols = []string{
		domain.ColProductDesc, domain.ColCost, domain.ColPrice,
		domain.ColLine, domain.ColGroup, domain.ColSubgroup,
		domain.ColGrade, domain.ColLabel,
	}
	entriesProductCols = []string{
		domain.ColProductDesc, domain.ColGroup, domain.ColSubgroup,
		domain.ColLine, domain.ColCollection,
	}
	entriesColumnOrder = []string{
		domain.ColEntryDate, domain.ColBranch, domain.ColReceipt,
		domain.ColProduct, domain.ColProductDesc,
		domain.ColColor, domain.ColColorDesc, domain.ColEntryQty,
		domain.ColGroup, domain.ColSubgroup, domain.ColLine, domain.ColCollection,
	}
)

// Options tune an ExportUseCase beyond its required collaborators.
type Options struct {
	// Strict promotes ambiguous reference keys to run-fatal errors.
	// Default is the historical behavior: degrade silently and count.
	Strict bool
	// TieBreak for duplicate reference keys; ignored when Strict is set.
	TieBreak TieBreak
	// Distributor, when non-nil, receives the artifact paths of every
	// written report.
	Distributor ArtifactDistributor
	Logger      *logrus.Logger
}

// ExportUseCase generates the requested reports: per report it extracts the
// dataset closure, runs enrichment and reconciliation, applies the dedup
// gate and hands the finished batch to the writer. One report is fully
// processed and released before the next starts, which bounds peak memory to
// a single closure.
type ExportUseCase struct {
	repo   DatasetRepository
	writer ReportWriter
	dist   ArtifactDistributor
	log    *logrus.Logger
	strict bool
	tie    TieBreak
}

// NewExportUseCase wires the usecase. repo and writer are required.
func NewExportUseCase(repo DatasetRepository, writer ReportWriter, opts Options) *ExportUseCase {
	uc := &ExportUseCase{
		repo:   repo,
		writer: writer,
		dist:   opts.Distributor,
		log:    opts.Logger,
		strict: opts.Strict,
		tie:    opts.TieBreak,
	}
	if uc.strict {
		uc.tie = TieBreakError
	}
	if uc.log == nil {
		uc.log = logrus.New()
	}
	return uc
}

// Export generates the named reports within the given scope and returns one
// result per report, in catalog order. Reports never abort on data-quality
// conditions; those surface through each result's Diagnostics.
func (uc *ExportUseCase) Export(ctx context.Context, names []domain.ReportName, scope domain.Scope) ([]domain.ReportResult, error) {
	requested := make(map[domain.ReportName]bool, len(names))
	for _, name := range names {
		if _, ok := domain.Catalog(name); !ok {
			return nil, fmt.Errorf("unknown report %q", name)
		}
		requested[name] = true
	}

	run := &exportRun{uc: uc, scope: scope, cache: map[string]*domain.Frame{}, needs: map[string]int{}}
	for name := range requested {
		report, _ := domain.Catalog(name)
		for _, ds := range report.Datasets {
			run.needs[ds]++
		}
	}

	var results []domain.ReportResult
	for _, name := range domain.AllReports() {
		if !requested[name] {
			continue
		}
		report, _ := domain.Catalog(name)
		started := time.Now()

		frame, diag, err := run.build(ctx, name)
		if err != nil {
			return results, fmt.Errorf("report %s: %w", name, err)
		}

		artifacts, err := uc.writer.Write(ctx, report, frame)
		if err != nil {
			return results, fmt.Errorf("report %s: write: %w", name, err)
		}
		if uc.dist != nil {
			if copied, err := uc.dist.Distribute(ctx, artifacts); err != nil {
				uc.log.WithError(err).WithField("report", name).Warn("artifact distribution incomplete")
			} else {
				uc.log.WithFields(logrus.Fields{"report": name, "copies": copied}).Debug("artifacts distributed")
			}
		}

		uc.log.WithFields(logrus.Fields{
			"report":             name,
			"rows":               frame.Len(),
			"elapsed_ms":         time.Since(started).Milliseconds(),
			"barcode_level":      diag.BarcodeLevel.String(),
			"unresolved":         diag.UnresolvedBarcodes,
			"ambiguous_refs":     diag.AmbiguousReferenceKeys,
			"ticket_allocated":   diag.TicketAllocatedRows,
			"zero_total_tickets": diag.ZeroTotalTickets,
			"duplicates":         diag.DuplicatesDropped,
		}).Info("report generated")

		results = append(results, domain.ReportResult{
			Name:        name,
			Frame:       frame,
			Diagnostics: diag,
			Artifacts:   artifacts,
		})
		run.release(report.Datasets)
	}
	return results, nil
}

// exportRun holds per-invocation state: the raw dataset cache with its
// remaining-use counts, and the processed products batch shared by the
// reports that join product attributes.
type exportRun struct {
	uc    *ExportUseCase
	scope domain.Scope
	cache map[string]*domain.Frame
	needs map[string]int

	products     *domain.Frame
	productsDiag domain.Diagnostics
}

func (r *exportRun) build(ctx context.Context, name domain.ReportName) (*domain.Frame, domain.Diagnostics, error) {
	switch name {
	case domain.ReportProducts:
		return r.productsFrame(ctx)
	case domain.ReportInventory:
		return r.buildInventory(ctx)
	case domain.ReportSales:
		return r.buildSales(ctx)
	case domain.ReportEcommerce:
		return r.buildEcommerce(ctx)
	case domain.ReportEntries:
		return r.buildEntries(ctx)
	default:
		return nil, domain.Diagnostics{}, fmt.Errorf("unknown report %q", name)
	}
}

func (r *exportRun) dataset(ctx context.Context, name string) (*domain.Frame, error) {
	if f, ok := r.cache[name]; ok {
		return f, nil
	}
	f, err := r.uc.repo.GetDataset(ctx, name, r.scope)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", name, err)
	}
	if f == nil {
		f = domain.NewFrame()
	}
	r.cache[name] = f
	return f, nil
}

// release drops cached datasets no later report needs, so the run never
// holds more than the closure of the report in flight.
func (r *exportRun) release(datasets []string) {
	for _, ds := range datasets {
		if r.needs[ds]--; r.needs[ds] <= 0 {
			delete(r.cache, ds)
			if ds == domain.DatasetProducts {
				r.products = nil
			}
		}
	}
}

// productsFrame builds the processed products batch once per run. It is both
// the products report and the attribute source joined into inventory and
// entries, mirroring the shared intermediate of the source pipeline.
func (r *exportRun) productsFrame(ctx context.Context) (*domain.Frame, domain.Diagnostics, error) {
	if r.products != nil {
		return r.products, r.productsDiag, nil
	}
	products, err := r.dataset(ctx, domain.DatasetProducts)
	if err != nil {
		return nil, domain.Diagnostics{}, err
	}
	barcodes, err := r.dataset(ctx, domain.DatasetBarcodes)
	if err != nil {
		return nil, domain.Diagnostics{}, err
	}

	// Catalog rows are item-granular: size never qualifies the match.
	_, diag, err := EnrichBarcodes(products, barcodes, false, r.uc.tie)
	if err != nil {
		return nil, diag, err
	}
	report, _ := domain.Catalog(domain.ReportProducts)
	removed, err := Dedupe(products, report.IdentityKey)
	if err != nil {
		return nil, diag, err
	}
	diag.DuplicatesDropped = removed

	r.products = products
	r.productsDiag = diag
	return products, diag, nil
}

func (r *exportRun) buildInventory(ctx context.Context) (*domain.Frame, domain.Diagnostics, error) {
	inventory, err := r.dataset(ctx, domain.DatasetInventory)
	if err != nil {
		return nil, domain.Diagnostics{}, err
	}
	products, _, err := r.productsFrame(ctx)
	if err != nil {
		return nil, domain.Diagnostics{}, err
	}
	inventory.LeftJoin(products, []string{domain.ColProduct}, inventoryProductCols)

	inventory.AddColumn(domain.ColStockValue, nil)
	for i := 0; i < inventory.Len(); i++ {
		stock := domain.Number(inventory.Value(i, domain.ColStock))
		cost := domain.Number(inventory.Value(i, domain.ColCost))
		inventory.SetValue(i, domain.ColStockValue, stock*cost)
	}

	barcodes, err := r.dataset(ctx, domain.DatasetBarcodes)
	if err != nil {
		return nil, domain.Diagnostics{}, err
	}
	_, diag, err := EnrichBarcodes(inventory, barcodes, true, r.uc.tie)
	if err != nil {
		return nil, diag, err
	}

	report, _ := domain.Catalog(domain.ReportInventory)
	removed, err := Dedupe(inventory, report.IdentityKey)
	if err != nil {
		return nil, diag, err
	}
	diag.DuplicatesDropped = removed
	return inventory, diag, nil
}

func (r *exportRun) buildSales(ctx context.Context) (*domain.Frame, domain.Diagnostics, error) {
	sales, err := r.dataset(ctx, domain.DatasetSales)
	if err != nil {
		return nil, domain.Diagnostics{}, err
	}
	barcodes, err := r.dataset(ctx, domain.DatasetBarcodes)
	if err != nil {
		return nil, domain.Diagnostics{}, err
	}
	_, diag, err := EnrichBarcodes(sales, barcodes, true, r.uc.tie)
	if err != nil {
		return nil, diag, err
	}

	itemExch, err := r.dataset(ctx, domain.DatasetItemExchanges)
	if err != nil {
		return nil, diag, err
	}
	ticketExch, err := r.dataset(ctx, domain.DatasetTicketExchanges)
	if err != nil {
		return nil, diag, err
	}
	diag.Merge(ReconcileExchanges(sales, itemExch, ticketExch))

	sales.Select(salesColumnOrder(sales)...)
	return sales, diag, nil
}

// salesColumnOrder keeps the extraction order but slots the net figures
// right after the quantity and pushes the pricing inputs and gross/exchange
// figures to the end of the sheet.
func salesColumnOrder(sales *domain.Frame) []string {
	tail := []string{
		domain.ColUnitPrice, domain.ColDiscount,
		domain.ColGrossValue, domain.ColGrossQty,
		domain.ColExchQty, domain.ColExchValue,
	}
	isTail := make(map[string]bool, len(tail)+2)
	for _, c := range tail {
		isTail[c] = true
	}
	isTail[domain.ColNetQty] = true
	isTail[domain.ColNetValue] = true

	order := make([]string, 0, len(sales.Columns()))
	for _, c := range sales.Columns() {
		if isTail[c] {
			continue
		}
		order = append(order, c)
		if c == domain.ColQty {
			order = append(order, domain.ColNetQty, domain.ColNetValue)
		}
	}
	return append(order, tail...)
}

func (r *exportRun) buildEcommerce(ctx context.Context) (*domain.Frame, domain.Diagnostics, error) {
	var diag domain.Diagnostics
	ecommerce, err := r.dataset(ctx, domain.DatasetEcommerce)
	if err != nil {
		return nil, diag, err
	}
	report, _ := domain.Catalog(domain.ReportEcommerce)
	removed, err := Dedupe(ecommerce, report.IdentityKey)
	if err != nil {
		return nil, diag, err
	}
	diag.DuplicatesDropped = removed
	return ecommerce, diag, nil
}

func (r *exportRun) buildEntries(ctx context.Context) (*domain.Frame, domain.Diagnostics, error) {
	entries, err := r.dataset(ctx, domain.DatasetEntries)
	if err != nil {
		return nil, domain.Diagnostics{}, err
	}
	entries.Filter(func(row domain.Row) bool {
		return !domain.IsNull(row[domain.ColProduct])
	})

	products, _, err := r.productsFrame(ctx)
	if err != nil {
		return nil, domain.Diagnostics{}, err
	}
	entries.LeftJoin(products, []string{domain.ColProduct}, entriesProductCols)

	colors, err := r.dataset(ctx, domain.DatasetColors)
	if err != nil {
		return nil, domain.Diagnostics{}, err
	}
	entries.LeftJoin(colors, []string{domain.ColColor}, []string{domain.ColColorDesc})

	entries.Select(entriesColumnOrder...)
	return entries, domain.Diagnostics{}, nil
}
