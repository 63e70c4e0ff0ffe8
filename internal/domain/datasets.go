package domain

import "time"

// Scope narrows an extraction to a date window and a branch list, both
// optional. A zero Start/End means an open end; an empty branch list means
// every branch. Branch names are already resolved by the caller; the core
// never sees branch-group display names.
type Scope struct {
	Start    time.Time
	End      time.Time
	Branches []string
}

// Logical dataset names served by the extraction gateway. Each maps to one
// rectangular batch with the column contract below.
const (
	DatasetProducts        = "products"
	DatasetBarcodes        = "barcodes"
	DatasetInventory       = "inventory"
	DatasetSales           = "sales"
	DatasetEcommerce       = "ecommerce"
	DatasetEntries         = "entries"
	DatasetColors          = "colors"
	DatasetItemExchanges   = "exchanges_item"
	DatasetTicketExchanges = "exchanges_ticket"
)

// Column contract shared by the extraction layer and the pipeline. The
// extraction layer aliases source columns to these names; the pipeline never
// sees source-schema spellings.
const (
	ColProduct     = "PRODUCT"
	ColProductDesc = "PRODUCT_DESC"
	ColColor       = "COLOR"
	ColColorDesc   = "COLOR_DESC"
	ColSize        = "SIZE"
	ColBarcode     = "BARCODE"

	ColBranch       = "BRANCH"
	ColTicket       = "TICKET"
	ColSaleDate     = "SALE_DATE"
	ColQty          = "QTY"
	ColQtyCancelled = "QTY_CANCELLED"
	ColUnitPrice    = "UNIT_PRICE"
	ColDiscount     = "SALE_DISCOUNT"
	ColSeller       = "SELLER"

	ColGrossValue = "GROSS_VALUE"
	ColGrossQty   = "GROSS_QTY"
	ColNetValue   = "NET_VALUE"
	ColNetQty     = "NET_QTY"
	ColExchQty    = "EXCH_QTY"
	ColExchValue  = "EXCH_VALUE"

	ColInvoice   = "INVOICE"
	ColSeries    = "SERIES"
	ColLineItem  = "LINE_ITEM"
	ColCustomer  = "CUSTOMER"
	ColIssueDate = "ISSUE_DATE"
	ColShipDate  = "SHIP_DATE"

	ColStock      = "STOCK"
	ColCost       = "COST"
	ColPrice      = "RETAIL_PRICE"
	ColStockValue = "STOCK_VALUE"
	ColLastIn     = "LAST_IN"
	ColLastOut    = "LAST_OUT"

	ColReceipt    = "RECEIPT"
	ColEntryDate  = "ENTRY_DATE"
	ColEntryQty   = "ENTRY_QTY"
	ColLine       = "LINE"
	ColGroup      = "PRODUCT_GROUP"
	ColSubgroup   = "PRODUCT_SUBGROUP"
	ColGrade      = "GRADE"
	ColLabel      = "LABEL"
	ColCollection = "COLLECTION"
)
