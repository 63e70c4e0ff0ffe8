package domain

// ReportName identifies one of the generated reports.
type ReportName string

const (
	ReportProducts  ReportName = "products"
	ReportInventory ReportName = "inventory"
	ReportSales     ReportName = "sales"
	ReportEcommerce ReportName = "ecommerce"
	ReportEntries   ReportName = "entries"
)

// AllReports lists the reports in generation order.
func AllReports() []ReportName {
	return []ReportName{
		ReportProducts,
		ReportInventory,
		ReportSales,
		ReportEcommerce,
		ReportEntries,
	}
}

// Report describes one report: the datasets it consumes, the identity key of
// the dedup gate (nil keeps every row), and the serialization contract.
type Report struct {
	Name         ReportName
	Sheet        string
	FileBase     string
	Datasets     []string
	IdentityKey  []string
	DateCols     []string
	CurrencyCols []string
}

// Catalog returns the report definition, or false for an unknown name.
func Catalog(name ReportName) (Report, bool) {
	r, ok := catalog[name]
	return r, ok
}

var catalog = map[ReportName]Report{
	ReportProducts: {
		Name:         ReportProducts,
		Sheet:        "Products",
		FileBase:     "products_clean",
		Datasets:     []string{DatasetProducts, DatasetBarcodes},
		IdentityKey:  []string{ColProduct},
		DateCols:     []string{"RESTOCK_DATE", "TRANSFER_DATE", "CREATED_AT"},
		CurrencyCols: []string{ColCost, ColPrice},
	},
	ReportInventory: {
		Name:         ReportInventory,
		Sheet:        "Inventory",
		FileBase:     "inventory_clean",
		Datasets:     []string{DatasetInventory, DatasetProducts, DatasetBarcodes},
		IdentityKey:  []string{ColBranch, ColProduct, ColColor, ColSize},
		DateCols:     []string{ColLastIn, ColLastOut},
		CurrencyCols: []string{ColCost, ColPrice, ColStockValue},
	},
	ReportSales: {
		Name:     ReportSales,
		Sheet:    "Sales",
		FileBase: "sales_clean",
		Datasets: []string{
			DatasetSales,
			DatasetBarcodes,
			DatasetItemExchanges,
			DatasetTicketExchanges,
		},
		DateCols:     []string{ColSaleDate},
		CurrencyCols: []string{ColUnitPrice, ColDiscount, ColGrossValue, ColNetValue, ColExchValue},
	},
	ReportEcommerce: {
		Name:         ReportEcommerce,
		Sheet:        "Ecommerce",
		FileBase:     "ecommerce",
		Datasets:     []string{DatasetEcommerce},
		IdentityKey:  []string{ColInvoice, ColSeries, ColLineItem},
		DateCols:     []string{ColIssueDate, ColShipDate},
		CurrencyCols: []string{ColUnitPrice, ColNetValue},
	},
	ReportEntries: {
		Name:     ReportEntries,
		Sheet:    "Entries",
		FileBase: "entries",
		Datasets: []string{DatasetEntries, DatasetProducts, DatasetBarcodes, DatasetColors},
		DateCols: []string{ColEntryDate},
	},
}

// MatchLevel records which key set the cascade enricher committed to for a
// whole batch. The decision is global: once a level yields any match, every
// row is matched at that level or not at all.
type MatchLevel int

const (
	// MatchLevelNone: no level produced a match, or the batch carries no
	// item column at all.
	MatchLevelNone MatchLevel = iota
	// MatchLevelItem: matched on the item identifier alone.
	MatchLevelItem
	// MatchLevelItemColor: matched on item + variant color.
	MatchLevelItemColor
	// MatchLevelItemColorSize: matched on item + variant color + size.
	MatchLevelItemColorSize
)

func (l MatchLevel) String() string {
	switch l {
	case MatchLevelItem:
		return "item"
	case MatchLevelItemColor:
		return "item+color"
	case MatchLevelItemColorSize:
		return "item+color+size"
	default:
		return "none"
	}
}

// Diagnostics is the non-fatal side channel of a report run. The pipeline
// never aborts on the data-quality conditions counted here; callers audit
// them separately.
type Diagnostics struct {
	// BarcodeLevel is the cascade decision for the report's base batch.
	BarcodeLevel MatchLevel `json:"barcode_level"`
	// UnresolvedBarcodes counts rows left without a canonical code.
	UnresolvedBarcodes int `json:"unresolved_barcodes"`
	// AmbiguousReferenceKeys counts reference keys that occurred more than
	// once and were settled by the tie-break strategy.
	AmbiguousReferenceKeys int `json:"ambiguous_reference_keys"`
	// TicketAllocatedRows counts sale lines whose exchange figures came from
	// the proportional ticket-level allocation instead of item-level data.
	TicketAllocatedRows int `json:"ticket_allocated_rows"`
	// ZeroTotalTickets counts tickets with a recorded exchange but a
	// non-positive gross total, where the allocation was dropped instead of
	// dividing by zero or weighting against a negative base.
	ZeroTotalTickets int `json:"zero_total_tickets"`
	// DuplicatesDropped counts rows removed by the dedup gate.
	DuplicatesDropped int `json:"duplicates_dropped"`
}

// Merge accumulates counters from a pipeline stage.
func (d *Diagnostics) Merge(other Diagnostics) {
	if other.BarcodeLevel != MatchLevelNone {
		d.BarcodeLevel = other.BarcodeLevel
	}
	d.UnresolvedBarcodes += other.UnresolvedBarcodes
	d.AmbiguousReferenceKeys += other.AmbiguousReferenceKeys
	d.TicketAllocatedRows += other.TicketAllocatedRows
	d.ZeroTotalTickets += other.ZeroTotalTickets
	d.DuplicatesDropped += other.DuplicatesDropped
}

// ReportResult is what the export usecase hands to the caller per report.
type ReportResult struct {
	Name        ReportName
	Frame       *Frame
	Diagnostics Diagnostics
	Artifacts   []string
}
