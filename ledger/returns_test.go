/*
returns_test.go - Return and refund tests

CORE DESIGN UNDER TEST:
- Refunds are valued at the unit price captured on the original sale line
- Per product, cumulative returned quantity never exceeds quantity sold
- Cumulative refunds never exceed the sale total
- A return is "full" once cumulative refunds reach the total, else "partial"
- Returned stock goes back on the shelf
*/
package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verzalex4-ai/sistema-ventas/ledger"
)

// sellTwoProducts registers a cash sale of 2x A1 (10.00) + 1x B1 (5.00)
// and returns the sale ID plus both product IDs.
func sellTwoProducts(t *testing.T, core *ledger.Ledger, cashier int64) (saleID, aID, bID int64) {
	t.Helper()
	ctx := context.Background()

	aID = seedProduct(t, core, cashier, "A1", "4.00", "10.00", 10)
	bID = seedProduct(t, core, cashier, "B1", "2.00", "5.00", 10)

	saleID, err := core.RegisterSale(ctx, cashier, ledger.SaleInput{
		Total:       dec("25.00"),
		PaymentKind: ledger.PaymentCash,
		Lines: map[string]ledger.SaleLine{
			"A1": {Quantity: 2, UnitPrice: dec("10.00")},
			"B1": {Quantity: 1, UnitPrice: dec("5.00")},
		},
	})
	require.NoError(t, err)
	return saleID, aID, bID
}

// =============================================================================
// REFUND VALUATION AND CLASSIFICATION
// =============================================================================

func TestRegisterReturn_Partial_RefundsHistoricalPrice(t *testing.T) {
	// GIVEN: A sale of 2x A1 at 10.00, 1x B1 at 5.00
	core, store := newTestLedger(t)
	cashier := seedOperator(t, store, "cajero", ledger.RoleCashier)
	ctx := context.Background()
	saleID, aID, _ := sellTwoProducts(t, core, cashier)

	// Catalog price changes after the sale
	err := core.UpdateProduct(ctx, cashier, aID, ledger.ProductInput{
		Code: "A1", Name: "Product A1",
		Cost: dec("4.00"), Price: dec("50.00"), Stock: 8,
	})
	require.NoError(t, err)

	// WHEN: Returning one A1
	retID, err := core.RegisterReturn(ctx, cashier, saleID,
		map[int64]int64{aID: 1}, "defective")
	require.NoError(t, err)

	// THEN: The refund uses the sale-time price, and the return is partial
	ret, err := core.Return(ctx, retID)
	require.NoError(t, err)
	assert.True(t, ret.Total.Equal(dec("10.00")), "refund must use price at sale time")
	assert.Equal(t, ledger.ReturnPartial, ret.Kind)
	assert.Equal(t, "defective", ret.Reason)

	// AND: Stock went back on the shelf
	p, err := core.Product(ctx, aID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), p.Stock)
}

func TestRegisterReturn_Full_WhenRefundsReachTotal(t *testing.T) {
	// GIVEN: A 25.00 sale with a 10.00 partial return on record
	core, store := newTestLedger(t)
	cashier := seedOperator(t, store, "cajero", ledger.RoleCashier)
	ctx := context.Background()
	saleID, aID, bID := sellTwoProducts(t, core, cashier)

	_, err := core.RegisterReturn(ctx, cashier, saleID, map[int64]int64{aID: 1}, "")
	require.NoError(t, err)

	// WHEN: Returning the rest (1x A1 + 1x B1 = 15.00, cumulative 25.00)
	retID, err := core.RegisterReturn(ctx, cashier, saleID,
		map[int64]int64{aID: 1, bID: 1}, "")
	require.NoError(t, err)

	// THEN: The second return is classified full
	ret, err := core.Return(ctx, retID)
	require.NoError(t, err)
	assert.Equal(t, ledger.ReturnFull, ret.Kind)
	assert.True(t, ret.Total.Equal(dec("15.00")))
}

// =============================================================================
// CAP ENFORCEMENT
// =============================================================================

func TestRegisterReturn_QuantityExceedsSold_Rejected(t *testing.T) {
	// GIVEN: A sale containing 2x A1
	core, store := newTestLedger(t)
	cashier := seedOperator(t, store, "cajero", ledger.RoleCashier)
	ctx := context.Background()
	saleID, aID, _ := sellTwoProducts(t, core, cashier)

	// WHEN: Returning 3 of them
	_, err := core.RegisterReturn(ctx, cashier, saleID, map[int64]int64{aID: 3}, "")

	// THEN: Rejected, nothing restocked
	assert.ErrorIs(t, err, ledger.ErrReturnQtyExceedsSold)
	p, err := core.Product(ctx, aID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), p.Stock)
}

func TestRegisterReturn_CumulativeQuantityCap_SpansReturns(t *testing.T) {
	// GIVEN: 2x A1 sold, both already returned across two partials
	core, store := newTestLedger(t)
	cashier := seedOperator(t, store, "cajero", ledger.RoleCashier)
	ctx := context.Background()
	saleID, aID, _ := sellTwoProducts(t, core, cashier)

	_, err := core.RegisterReturn(ctx, cashier, saleID, map[int64]int64{aID: 1}, "")
	require.NoError(t, err)
	_, err = core.RegisterReturn(ctx, cashier, saleID, map[int64]int64{aID: 1}, "")
	require.NoError(t, err)

	// WHEN: A third return names the same product
	_, err = core.RegisterReturn(ctx, cashier, saleID, map[int64]int64{aID: 1}, "")

	// THEN: The cumulative cap rejects it
	assert.ErrorIs(t, err, ledger.ErrReturnQtyExceedsSold)
}

func TestRegisterReturn_ProductNotInSale_Rejected(t *testing.T) {
	core, store := newTestLedger(t)
	cashier := seedOperator(t, store, "cajero", ledger.RoleCashier)
	ctx := context.Background()
	saleID, _, _ := sellTwoProducts(t, core, cashier)
	other := seedProduct(t, core, cashier, "C1", "1.00", "2.00", 5)

	_, err := core.RegisterReturn(ctx, cashier, saleID, map[int64]int64{other: 1}, "")

	assert.ErrorIs(t, err, ledger.ErrProductNotInSale)
}

func TestRegisterReturn_EmptyLines_Rejected(t *testing.T) {
	core, store := newTestLedger(t)
	cashier := seedOperator(t, store, "cajero", ledger.RoleCashier)
	saleID, _, _ := sellTwoProducts(t, core, cashier)

	_, err := core.RegisterReturn(context.Background(), cashier, saleID, nil, "")

	assert.ErrorIs(t, err, ledger.ErrEmptyLines)
}

// =============================================================================
// CREDIT SALE INTERACTION
// =============================================================================

func TestRegisterReturn_CreditSale_ReducesPendingAndBalance(t *testing.T) {
	// GIVEN: A 20.00 credit sale sitting fully unpaid on a debtor
	core, store := newTestLedger(t)
	cashier := seedOperator(t, store, "cajero", ledger.RoleCashier)
	ctx := context.Background()
	aID := seedProduct(t, core, cashier, "A1", "4.00", "10.00", 10)

	debtorID, err := core.CreateDebtor(ctx, cashier, ledger.DebtorInput{Name: "Maria"})
	require.NoError(t, err)

	saleID, err := core.RegisterSale(ctx, cashier, ledger.SaleInput{
		Total:       dec("20.00"),
		PaymentKind: ledger.PaymentCredit,
		DebtorID:    &debtorID,
		Lines: map[string]ledger.SaleLine{
			"A1": {Quantity: 2, UnitPrice: dec("10.00")},
		},
	})
	require.NoError(t, err)

	// WHEN: One unit comes back
	_, err = core.RegisterReturn(ctx, cashier, saleID, map[int64]int64{aID: 1}, "")
	require.NoError(t, err)

	// THEN: Both the sale's pending and the debtor's balance dropped by 10.00
	sale, err := core.Sale(ctx, saleID)
	require.NoError(t, err)
	assert.True(t, sale.Pending.Equal(dec("10.00")))

	d, err := core.Debtor(ctx, debtorID)
	require.NoError(t, err)
	assert.True(t, d.Balance.Equal(dec("10.00")))
}

func TestRegisterReturn_CreditSale_DebtorDeleted_StillSucceeds(t *testing.T) {
	// GIVEN: A zero-total credit sale (a giveaway line priced at 0.00)
	// whose debtor was deleted afterwards, nulling the sale's reference
	core, store := newTestLedger(t)
	cashier := seedOperator(t, store, "cajero", ledger.RoleCashier)
	ctx := context.Background()
	aID := seedProduct(t, core, cashier, "A1", "4.00", "0.00", 10)

	debtorID, err := core.CreateDebtor(ctx, cashier, ledger.DebtorInput{Name: "Maria"})
	require.NoError(t, err)

	saleID, err := core.RegisterSale(ctx, cashier, ledger.SaleInput{
		Total:       dec("0.00"),
		PaymentKind: ledger.PaymentCredit,
		DebtorID:    &debtorID,
		Lines: map[string]ledger.SaleLine{
			"A1": {Quantity: 1, UnitPrice: dec("0.00")},
		},
	})
	require.NoError(t, err)

	// Balance is zero, so the debtor can be deleted
	require.NoError(t, core.DeleteDebtor(ctx, cashier, debtorID))

	// WHEN: The giveaway comes back
	retID, err := core.RegisterReturn(ctx, cashier, saleID, map[int64]int64{aID: 1}, "")

	// THEN: The return goes through with no debtor left to adjust
	require.NoError(t, err)
	ret, err := core.Return(ctx, retID)
	require.NoError(t, err)
	assert.True(t, ret.Total.IsZero())

	p, err := core.Product(ctx, aID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.Stock)
}

// =============================================================================
// THE RANGE VIEW
// =============================================================================

func TestReturnStats_CountsAndClassifies(t *testing.T) {
	// GIVEN: One partial and then one full-completing return
	core, store := newTestLedger(t)
	cashier := seedOperator(t, store, "cajero", ledger.RoleCashier)
	ctx := context.Background()
	saleID, aID, bID := sellTwoProducts(t, core, cashier)

	_, err := core.RegisterReturn(ctx, cashier, saleID, map[int64]int64{aID: 2}, "")
	require.NoError(t, err)
	_, err = core.RegisterReturn(ctx, cashier, saleID, map[int64]int64{bID: 1}, "")
	require.NoError(t, err)

	// WHEN: Summarizing over an enclosing range
	rng := timeRangeAround(t)
	stats, err := core.ReturnStatsByRange(ctx, rng[0], rng[1])
	require.NoError(t, err)

	// THEN: Two returns, 25.00 refunded, one of each kind
	assert.Equal(t, int64(2), stats.Count)
	assert.True(t, stats.Refunded.Equal(dec("25.00")))
	assert.Equal(t, int64(1), stats.PartialCount)
	assert.Equal(t, int64(1), stats.FullCount)
}
