package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"retail-reports/internal/domain"
)

// SQLDatasetRepository implements the DatasetRepository interface on top of
// the source database. Each logical dataset is a single-shot query; the
// repository owns no state beyond the connection pool.
type SQLDatasetRepository struct {
	db *sql.DB
}

// NewSQLDatasetRepository opens a connection pool for the given DSN. The
// pool is sized for a batch exporter, not a server.
func NewSQLDatasetRepository(dsn string) (*SQLDatasetRepository, error) {
	if !strings.Contains(dsn, "parseTime=") {
		if strings.Contains(dsn, "?") {
			dsn += "&parseTime=true"
		} else {
			dsn += "?parseTime=true"
		}
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(time.Hour)
	return &SQLDatasetRepository{db: db}, nil
}

// Close releases the connection pool.
func (r *SQLDatasetRepository) Close() error {
	return r.db.Close()
}

// GetDataset runs the dataset's query within the given scope and scans the
// result into a frame. Numeric source columns are normalized to float64 and
// everything else to string, time.Time or nil, so the pipeline never sees
// driver-specific types.
func (r *SQLDatasetRepository) GetDataset(ctx context.Context, name string, scope domain.Scope) (*domain.Frame, error) {
	q, ok := datasetQueries[name]
	if !ok {
		return nil, fmt.Errorf("unknown dataset %q", name)
	}
	query, args := q.build(scope)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset %s: %w", name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of dataset %s: %w", name, err)
	}

	frame := domain.NewFrame(columns...)
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan dataset %s: %w", name, err)
		}
		row := make(domain.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeCell(values[i], q.numeric[col])
		}
		frame.Append(row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset %s: %w", name, err)
	}
	return frame, nil
}

// normalizeCell maps driver values onto frame cell types. DECIMAL and
// NUMERIC columns arrive as bytes; they go through shopspring/decimal so a
// malformed value degrades to null instead of silently becoming zero text.
func normalizeCell(v any, numeric bool) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		s := string(x)
		if !numeric {
			return s
		}
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return nil
		}
		return d.InexactFloat64()
	case int64:
		if numeric {
			return float64(x)
		}
		return domain.Text(x)
	case float64, string, time.Time, bool:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// datasetQuery holds the base statement for one dataset plus the columns the
// scope can constrain. Statements alias source columns to the shared column
// contract, so schema spellings stay inside this file.
type datasetQuery struct {
	base      string
	dateCol   string
	branchCol string
	numeric   map[string]bool
}

func (q datasetQuery) build(scope domain.Scope) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(q.base)
	if q.dateCol != "" && !scope.Start.IsZero() {
		sb.WriteString(" AND " + q.dateCol + " >= ?")
		args = append(args, scope.Start)
	}
	if q.dateCol != "" && !scope.End.IsZero() {
		sb.WriteString(" AND " + q.dateCol + " < ?")
		args = append(args, scope.End.AddDate(0, 0, 1))
	}
	if q.branchCol != "" && len(scope.Branches) > 0 {
		sb.WriteString(" AND " + q.branchCol + " IN (?" + strings.Repeat(",?", len(scope.Branches)-1) + ")")
		for _, b := range scope.Branches {
			args = append(args, b)
		}
	}
	return sb.String(), args
}

var moneyAndQty = map[string]bool{
	domain.ColQty:          true,
	domain.ColQtyCancelled: true,
	domain.ColUnitPrice:    true,
	domain.ColDiscount:     true,
	domain.ColExchQty:      true,
	domain.ColExchValue:    true,
}

var datasetQueries = map[string]datasetQuery{
	domain.DatasetProducts: {
		base: `SELECT product AS PRODUCT, description AS PRODUCT_DESC,
       replacement_cost AS COST, retail_price AS RETAIL_PRICE,
       product_line AS LINE, product_group AS PRODUCT_GROUP,
       product_subgroup AS PRODUCT_SUBGROUP, size_grid AS GRADE,
       label AS LABEL, collection AS COLLECTION,
       restock_date AS RESTOCK_DATE, transfer_date AS TRANSFER_DATE,
       created_at AS CREATED_AT
  FROM products
 WHERE 1 = 1`,
		numeric: map[string]bool{domain.ColCost: true, domain.ColPrice: true},
	},
	domain.DatasetBarcodes: {
		base: `SELECT product AS PRODUCT, color AS COLOR, size AS SIZE,
       barcode AS BARCODE
  FROM product_barcodes
 WHERE 1 = 1`,
	},
	domain.DatasetInventory: {
		base: `SELECT branch AS BRANCH, product AS PRODUCT, color AS COLOR,
       size AS SIZE, stock_qty AS STOCK,
       last_entry AS LAST_IN, last_exit AS LAST_OUT
  FROM branch_stock
 WHERE 1 = 1`,
		branchCol: "branch",
		numeric:   map[string]bool{domain.ColStock: true},
	},
	domain.DatasetSales: {
		// Lines with non-positive quantity are return placeholders handled
		// through the exchange aggregates; the pipeline expects them
		// pre-filtered.
		base: `SELECT branch AS BRANCH, ticket AS TICKET, sale_date AS SALE_DATE,
       product AS PRODUCT, description AS PRODUCT_DESC, color AS COLOR,
       size AS SIZE, qty AS QTY, qty_cancelled AS QTY_CANCELLED,
       net_price AS UNIT_PRICE, sale_discount AS SALE_DISCOUNT,
       product_group AS PRODUCT_GROUP, product_subgroup AS PRODUCT_SUBGROUP,
       product_line AS LINE, collection AS COLLECTION, seller AS SELLER
  FROM store_sale_lines
 WHERE qty > 0`,
		dateCol:   "sale_date",
		branchCol: "branch",
		numeric:   moneyAndQty,
	},
	domain.DatasetItemExchanges: {
		base: `SELECT branch AS BRANCH, ticket AS TICKET, product AS PRODUCT,
       color AS COLOR, size AS SIZE,
       SUM(qty) AS EXCH_QTY,
       SUM(net_price * qty - COALESCE(item_discount, 0)) AS EXCH_VALUE
  FROM store_sale_exchanges
 WHERE qty_cancelled = 0
 GROUP BY branch, ticket, product, color, size
HAVING 1 = 1`,
		branchCol: "branch",
		numeric:   moneyAndQty,
	},
	domain.DatasetTicketExchanges: {
		base: `SELECT branch AS BRANCH, ticket AS TICKET,
       SUM(qty) AS EXCH_QTY,
       SUM(net_price * qty - COALESCE(item_discount, 0)) AS EXCH_VALUE
  FROM store_sale_exchanges
 WHERE qty_cancelled = 0
 GROUP BY branch, ticket
HAVING 1 = 1`,
		branchCol: "branch",
		numeric:   moneyAndQty,
	},
	domain.DatasetEcommerce: {
		base: `SELECT i.invoice_no AS INVOICE, i.series AS SERIES, l.line_item AS LINE_ITEM,
       i.branch AS BRANCH, i.customer AS CUSTOMER, l.product AS PRODUCT,
       l.color AS COLOR, l.qty AS QTY, l.unit_price AS UNIT_PRICE,
       l.net_value AS NET_VALUE, i.issued_at AS ISSUE_DATE,
       i.shipped_at AS SHIP_DATE
  FROM invoices i
  JOIN invoice_lines l
    ON l.branch = i.branch AND l.invoice_no = i.invoice_no AND l.series = i.series
 WHERE i.cancelled = 0`,
		dateCol:   "i.issued_at",
		branchCol: "i.branch",
		numeric: map[string]bool{
			domain.ColQty:       true,
			domain.ColUnitPrice: true,
			domain.ColNetValue:  true,
		},
	},
	domain.DatasetEntries: {
		base: `SELECT e.receipt_no AS RECEIPT, e.issued_at AS ENTRY_DATE,
       e.branch AS BRANCH, l.product AS PRODUCT, l.color AS COLOR,
       l.qty AS ENTRY_QTY
  FROM stock_entries e
  LEFT JOIN stock_entry_lines l ON l.receipt_no = e.receipt_no
 WHERE 1 = 1`,
		dateCol:   "e.issued_at",
		branchCol: "e.branch",
		numeric:   map[string]bool{domain.ColEntryQty: true},
	},
	domain.DatasetColors: {
		base: `SELECT color AS COLOR, description AS COLOR_DESC
  FROM base_colors
 WHERE 1 = 1`,
	},
}
