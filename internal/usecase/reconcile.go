package usecase

import (
	"retail-reports/internal/domain"
)

// exchange key columns. Item-level returns share the granularity of the
// original sale line; ticket-level returns only name the transaction.
var (
	itemExchangeKey   = []string{domain.ColBranch, domain.ColTicket, domain.ColProduct, domain.ColColor, domain.ColSize}
	ticketExchangeKey = []string{domain.ColBranch, domain.ColTicket}
)

type exchangeTotals struct {
	qty   float64
	value float64
}

// ReconcileExchanges computes per-line net quantity and value after removing
// returned/exchanged amounts. Item-level return data is authoritative when
// its quantity is strictly positive; otherwise the ticket-level return is
// apportioned across the ticket's lines in proportion to each line's share
// of the ticket's gross value. Either aggregate batch may be nil or lack
// rows, in which case net equals gross.
//
// The frame gains GROSS_VALUE, GROSS_QTY, EXCH_QTY, EXCH_VALUE, NET_QTY and
// NET_VALUE columns. Net figures can go negative (a return without a
// matching sale in this extract); they are kept signed, not clamped, so
// downstream totals reflect the ledger.
func ReconcileExchanges(sales, itemExch, ticketExch *domain.Frame) domain.Diagnostics {
	var diag domain.Diagnostics
	if sales == nil {
		return diag
	}

	itemTotals := indexExchanges(itemExch, itemExchangeKey)
	ticketTotals := indexExchanges(ticketExch, ticketExchangeKey)

	for _, col := range []string{
		domain.ColGrossValue, domain.ColGrossQty,
		domain.ColExchQty, domain.ColExchValue,
		domain.ColNetQty, domain.ColNetValue,
	} {
		sales.AddColumn(col, nil)
	}

	// First pass: gross figures and per-ticket gross totals. A line with any
	// cancelled quantity contributes nothing.
	grossByTicket := make(map[string]float64)
	for i := 0; i < sales.Len(); i++ {
		var grossValue, grossQty float64
		if domain.Number(sales.Value(i, domain.ColQtyCancelled)) <= 0 {
			qty := domain.Number(sales.Value(i, domain.ColQty))
			price := domain.Number(sales.Value(i, domain.ColUnitPrice))
			discount := domain.Number(sales.Value(i, domain.ColDiscount))
			grossValue = price*qty - discount
			grossQty = qty
		}
		sales.SetValue(i, domain.ColGrossValue, grossValue)
		sales.SetValue(i, domain.ColGrossQty, grossQty)
		grossByTicket[sales.CompositeKey(i, ticketExchangeKey, "::")] += grossValue
	}

	// Second pass: allocate, resolve, net.
	zeroTotalTickets := make(map[string]bool)
	for i := 0; i < sales.Len(); i++ {
		grossValue := domain.Number(sales.Value(i, domain.ColGrossValue))
		grossQty := domain.Number(sales.Value(i, domain.ColGrossQty))

		ticketKey := sales.CompositeKey(i, ticketExchangeKey, "::")
		ticketReturn := ticketTotals[ticketKey]

		// Proportional weight of this line within its ticket; zero unless the
		// ticket's gross total is strictly positive, which drops the
		// ticket-level allocation for zero and negative totals alike instead
		// of dividing by zero or allocating against a negative base.
		var weight float64
		if total := grossByTicket[ticketKey]; total > 0 {
			weight = grossValue / total
		} else if ticketReturn.qty != 0 || ticketReturn.value != 0 {
			zeroTotalTickets[ticketKey] = true
		}
		allocQty := ticketReturn.qty * weight
		allocValue := ticketReturn.value * weight

		// Item-level figures win when their quantity is strictly positive;
		// falling back to both allocated figures otherwise prevents a line
		// from mixing the two sources.
		resolved := itemTotals[sales.CompositeKey(i, itemExchangeKey, "::")]
		if resolved.qty <= 0 {
			resolved = exchangeTotals{qty: allocQty, value: allocValue}
			if allocQty != 0 || allocValue != 0 {
				diag.TicketAllocatedRows++
			}
		}

		sales.SetValue(i, domain.ColExchQty, resolved.qty)
		sales.SetValue(i, domain.ColExchValue, resolved.value)
		sales.SetValue(i, domain.ColNetQty, grossQty-resolved.qty)
		sales.SetValue(i, domain.ColNetValue, grossValue-resolved.value)
	}

	diag.ZeroTotalTickets = len(zeroTotalTickets)
	return diag
}

// indexExchanges builds key -> summed totals from an aggregate batch. A nil
// batch or one missing the key columns yields an empty index, i.e. an
// aggregate that is zero for every key. Aggregates normally arrive with one
// row per key; summing keeps the result well defined if they do not.
func indexExchanges(f *domain.Frame, key []string) map[string]exchangeTotals {
	totals := make(map[string]exchangeTotals)
	if f == nil || !f.HasColumns(domain.ColBranch, domain.ColTicket) {
		return totals
	}
	for i := 0; i < f.Len(); i++ {
		k := f.CompositeKey(i, key, "::")
		t := totals[k]
		t.qty += domain.Number(f.Value(i, domain.ColExchQty))
		t.value += domain.Number(f.Value(i, domain.ColExchValue))
		totals[k] = t
	}
	return totals
}
