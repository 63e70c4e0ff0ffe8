package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-reports/internal/domain"
	"retail-reports/internal/usecase"
)

func salesBatch(rows ...domain.Row) *domain.Frame {
	f := domain.NewFrame(
		domain.ColBranch, domain.ColTicket,
		domain.ColProduct, domain.ColColor, domain.ColSize,
		domain.ColQty, domain.ColQtyCancelled,
		domain.ColUnitPrice, domain.ColDiscount,
	)
	for _, row := range rows {
		f.Append(row)
	}
	return f
}

func itemExchanges(rows ...domain.Row) *domain.Frame {
	f := domain.NewFrame(
		domain.ColBranch, domain.ColTicket,
		domain.ColProduct, domain.ColColor, domain.ColSize,
		domain.ColExchQty, domain.ColExchValue,
	)
	for _, row := range rows {
		f.Append(row)
	}
	return f
}

func ticketExchanges(rows ...domain.Row) *domain.Frame {
	f := domain.NewFrame(domain.ColBranch, domain.ColTicket, domain.ColExchQty, domain.ColExchValue)
	for _, row := range rows {
		f.Append(row)
	}
	return f
}

func TestReconcileExchanges_ProportionalAllocation(t *testing.T) {
	// Two lines of the same ticket with gross values 100 and 300; the
	// ticket-level exchange (qty 4, value 40) splits 25%/75%.
	sales := salesBatch(
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColProduct: "A", domain.ColQty: 1.0, domain.ColUnitPrice: 100.0},
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColProduct: "B", domain.ColQty: 1.0, domain.ColUnitPrice: 300.0},
	)
	tickets := ticketExchanges(
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColExchQty: 4.0, domain.ColExchValue: 40.0},
	)

	diag := usecase.ReconcileExchanges(sales, nil, tickets)

	assert.InDelta(t, 1.0, domain.Number(sales.Value(0, domain.ColExchQty)), 1e-6)
	assert.InDelta(t, 10.0, domain.Number(sales.Value(0, domain.ColExchValue)), 1e-6)
	assert.InDelta(t, 3.0, domain.Number(sales.Value(1, domain.ColExchQty)), 1e-6)
	assert.InDelta(t, 30.0, domain.Number(sales.Value(1, domain.ColExchValue)), 1e-6)

	assert.InDelta(t, 90.0, domain.Number(sales.Value(0, domain.ColNetValue)), 1e-6)
	assert.InDelta(t, 270.0, domain.Number(sales.Value(1, domain.ColNetValue)), 1e-6)

	assert.Equal(t, 2, diag.TicketAllocatedRows)
	assert.Zero(t, diag.ZeroTotalTickets)
}

func TestReconcileExchanges_AllocationConservation(t *testing.T) {
	// The allocated amounts must reconstitute the ticket-level total no
	// matter how unevenly the lines split it.
	sales := salesBatch(
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColProduct: "A", domain.ColQty: 3.0, domain.ColUnitPrice: 19.9, domain.ColDiscount: 5.37},
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColProduct: "B", domain.ColQty: 1.0, domain.ColUnitPrice: 7.77},
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColProduct: "C", domain.ColQty: 2.0, domain.ColUnitPrice: 101.01, domain.ColDiscount: 0.02},
	)
	tickets := ticketExchanges(
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColExchQty: 2.0, domain.ColExchValue: 53.11},
	)

	usecase.ReconcileExchanges(sales, nil, tickets)

	var allocQty, allocValue float64
	for i := 0; i < sales.Len(); i++ {
		allocQty += domain.Number(sales.Value(i, domain.ColExchQty))
		allocValue += domain.Number(sales.Value(i, domain.ColExchValue))
	}
	assert.InDelta(t, 2.0, allocQty, 1e-6)
	assert.InDelta(t, 53.11, allocValue, 1e-6)
}

func TestReconcileExchanges_ItemLevelWins(t *testing.T) {
	// Both levels carry data for the same line; the item-level figures are
	// authoritative and the allocation must not be mixed in.
	sales := salesBatch(
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColProduct: "A", domain.ColColor: "RED", domain.ColSize: "M", domain.ColQty: 2.0, domain.ColUnitPrice: 50.0},
	)
	items := itemExchanges(
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColProduct: "A", domain.ColColor: "RED", domain.ColSize: "M", domain.ColExchQty: 1.0, domain.ColExchValue: 45.0},
	)
	tickets := ticketExchanges(
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColExchQty: 9.0, domain.ColExchValue: 900.0},
	)

	diag := usecase.ReconcileExchanges(sales, items, tickets)

	assert.Equal(t, 1.0, domain.Number(sales.Value(0, domain.ColExchQty)))
	assert.Equal(t, 45.0, domain.Number(sales.Value(0, domain.ColExchValue)))
	assert.Equal(t, 1.0, domain.Number(sales.Value(0, domain.ColNetQty)))
	assert.Equal(t, 55.0, domain.Number(sales.Value(0, domain.ColNetValue)))
	assert.Zero(t, diag.TicketAllocatedRows)
}

func TestReconcileExchanges_ItemLevelNeedsPositiveQty(t *testing.T) {
	// An item-level row with zero quantity does not win, even with a value:
	// the line falls back to the allocation for both figures.
	sales := salesBatch(
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColProduct: "A", domain.ColQty: 1.0, domain.ColUnitPrice: 100.0},
	)
	items := itemExchanges(
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColProduct: "A", domain.ColExchQty: 0.0, domain.ColExchValue: 50.0},
	)

	usecase.ReconcileExchanges(sales, items, nil)

	assert.Zero(t, domain.Number(sales.Value(0, domain.ColExchValue)))
	assert.Equal(t, 100.0, domain.Number(sales.Value(0, domain.ColNetValue)))
}

func TestReconcileExchanges_ZeroGrossTicket(t *testing.T) {
	// Every line of the ticket was cancelled, yet a ticket-level exchange
	// exists. The weight is defined as zero: no allocation, no NaN.
	sales := salesBatch(
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColProduct: "A", domain.ColQty: 2.0, domain.ColQtyCancelled: 2.0, domain.ColUnitPrice: 80.0},
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColProduct: "B", domain.ColQty: 1.0, domain.ColQtyCancelled: 1.0, domain.ColUnitPrice: 20.0},
	)
	tickets := ticketExchanges(
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColExchQty: 1.0, domain.ColExchValue: 20.0},
	)

	diag := usecase.ReconcileExchanges(sales, nil, tickets)

	for i := 0; i < sales.Len(); i++ {
		assert.Equal(t, 0.0, domain.Number(sales.Value(i, domain.ColGrossValue)), "row %d", i)
		assert.Equal(t, 0.0, domain.Number(sales.Value(i, domain.ColNetValue)), "row %d", i)
		assert.Equal(t, 0.0, domain.Number(sales.Value(i, domain.ColNetQty)), "row %d", i)
	}
	assert.Equal(t, 1, diag.ZeroTotalTickets)
	assert.Zero(t, diag.TicketAllocatedRows)
}

func TestReconcileExchanges_NegativeGrossTicket(t *testing.T) {
	// Discounts exceed the line values, so the ticket's gross total is
	// negative. A negative total drops the ticket-level allocation the same
	// way a zero total does; net stays equal to gross.
	sales := salesBatch(
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColProduct: "A", domain.ColQty: 1.0, domain.ColUnitPrice: 20.0, domain.ColDiscount: 50.0},
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColProduct: "B", domain.ColQty: 1.0, domain.ColUnitPrice: 10.0, domain.ColDiscount: 80.0},
	)
	tickets := ticketExchanges(
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColExchQty: 1.0, domain.ColExchValue: 40.0},
	)

	diag := usecase.ReconcileExchanges(sales, nil, tickets)

	assert.Equal(t, -30.0, domain.Number(sales.Value(0, domain.ColNetValue)))
	assert.Equal(t, -70.0, domain.Number(sales.Value(1, domain.ColNetValue)))
	assert.Equal(t, 0.0, domain.Number(sales.Value(0, domain.ColExchValue)))
	assert.Equal(t, 0.0, domain.Number(sales.Value(1, domain.ColExchValue)))
	assert.Equal(t, 1, diag.ZeroTotalTickets)
	assert.Zero(t, diag.TicketAllocatedRows)
}

func TestReconcileExchanges_MissingAggregatesMeanNetEqualsGross(t *testing.T) {
	sales := salesBatch(
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColProduct: "A", domain.ColQty: 2.0, domain.ColUnitPrice: 30.0, domain.ColDiscount: 10.0},
	)

	diag := usecase.ReconcileExchanges(sales, nil, nil)

	require.True(t, sales.HasColumns(domain.ColNetQty, domain.ColNetValue))
	assert.Equal(t, 50.0, domain.Number(sales.Value(0, domain.ColNetValue)))
	assert.Equal(t, 2.0, domain.Number(sales.Value(0, domain.ColNetQty)))
	assert.Zero(t, diag.TicketAllocatedRows)
}

func TestReconcileExchanges_NegativeNetIsPreserved(t *testing.T) {
	// A return recorded without a matching sale in this extract must stay
	// negative; downstream totals need the signed figure.
	sales := salesBatch(
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColProduct: "A", domain.ColColor: "RED", domain.ColQty: 1.0, domain.ColUnitPrice: 10.0},
	)
	items := itemExchanges(
		domain.Row{domain.ColBranch: "U1", domain.ColTicket: "T1", domain.ColProduct: "A", domain.ColColor: "RED", domain.ColExchQty: 3.0, domain.ColExchValue: 30.0},
	)

	usecase.ReconcileExchanges(sales, items, nil)

	assert.Equal(t, -2.0, domain.Number(sales.Value(0, domain.ColNetQty)))
	assert.Equal(t, -20.0, domain.Number(sales.Value(0, domain.ColNetValue)))
}

func TestReconcileExchanges_EmptyBatch(t *testing.T) {
	sales := salesBatch()
	diag := usecase.ReconcileExchanges(sales, itemExchanges(), ticketExchanges())
	assert.Zero(t, sales.Len())
	assert.Zero(t, diag.TicketAllocatedRows)
	assert.True(t, sales.HasColumns(domain.ColNetQty, domain.ColNetValue))
}
