package core

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSaleMultiItem(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	ctx := context.Background()

	price := dec("1.50")
	tx, err := svc.Sales.CreateTransaction(ctx, SaleInput{
		StationID:     f.StationID,
		PaymentMethod: PaymentCash,
		Items: []SaleItemInput{
			{ProductID: f.ProductID, Quantity: dec("100"), UnitPrice: &price},
			{ProductID: f.ProductID, Quantity: dec("50"), UnitPrice: &price},
			{ProductID: f.ProductID, Quantity: dec("25.5"), UnitPrice: &price},
		},
	})
	require.NoError(t, err)
	require.Len(t, tx.Items, 3)
	assert.NotEmpty(t, tx.InvoiceNumber)

	// Header total equals the sum of item totals.
	sum := decimal.Zero
	for _, item := range tx.Items {
		sum = sum.Add(item.TotalPrice)
	}
	assert.True(t, tx.TotalAmount.Equal(sum))

	// Tank stock dropped by the total quantity.
	tank, err := svc.Inventory.GetTank(ctx, f.TankID)
	require.NoError(t, err)
	assert.True(t, tank.CurrentStock.Equal(dec("4824.5")), "got %s", tank.CurrentStock)

	// Journal entry posted and balanced.
	entryID, err := svc.Ledger.FindEntryByReference(ctx, f.StationID, "SALE", tx.InvoiceNumber)
	require.NoError(t, err)
	assert.Greater(t, entryID, 0)
}

func TestCreateSaleInsufficientStockRollsBack(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	ctx := context.Background()

	_, err := svc.Sales.CreateTransaction(ctx, SaleInput{
		StationID:     f.StationID,
		PaymentMethod: PaymentCash,
		Items: []SaleItemInput{
			{ProductID: f.ProductID, Quantity: dec("999999")},
		},
	})
	assert.ErrorIs(t, err, ErrValidation)

	// Nothing persisted: no header, no items, no journal entry, stock intact.
	var headers, entries int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM sales_transactions").Scan(&headers))
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM journal_entries").Scan(&entries))
	assert.Equal(t, 0, headers)
	assert.Equal(t, 0, entries)

	tank, err := svc.Inventory.GetTank(ctx, f.TankID)
	require.NoError(t, err)
	assert.True(t, tank.CurrentStock.Equal(dec("5000")))
}

func TestCreditSaleRequiresCustomer(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)

	_, err := svc.Sales.CreateTransaction(context.Background(), SaleInput{
		StationID:     f.StationID,
		PaymentMethod: PaymentCredit,
		Items:         []SaleItemInput{{ProductID: f.ProductID, Quantity: dec("10")}},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConcurrentCreditSalesAccumulateOutstanding(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	ctx := context.Background()

	amounts := []string{"100", "200"}
	var wg sync.WaitGroup
	errs := make([]error, len(amounts))
	for i, amt := range amounts {
		wg.Add(1)
		go func(i int, amt string) {
			defer wg.Done()
			price := dec("1.00")
			_, errs[i] = svc.Sales.CreateTransaction(ctx, SaleInput{
				StationID:     f.StationID,
				CustomerID:    &f.CustomerID,
				PaymentMethod: PaymentCredit,
				Items:         []SaleItemInput{{ProductID: f.ProductID, Quantity: dec(amt), UnitPrice: &price}},
			})
		}(i, amt)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	customer, err := svc.Parties.GetCustomer(ctx, f.CustomerID)
	require.NoError(t, err)
	assert.True(t, customer.Outstanding.Equal(dec("300")), "got %s", customer.Outstanding)
}

func TestDeleteSaleCompensates(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	ctx := context.Background()

	price := dec("2.00")
	tx, err := svc.Sales.CreateTransaction(ctx, SaleInput{
		StationID:     f.StationID,
		CustomerID:    &f.CustomerID,
		PaymentMethod: PaymentCredit,
		Items:         []SaleItemInput{{ProductID: f.ProductID, Quantity: dec("40"), UnitPrice: &price}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Sales.DeleteTransaction(ctx, tx.ID))

	// Header and items are gone, no orphans.
	var headers, items int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM sales_transactions").Scan(&headers))
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM sales_transaction_items").Scan(&items))
	assert.Equal(t, 0, headers)
	assert.Equal(t, 0, items)

	// Stock restored, outstanding back to zero, ledger flat.
	tank, err := svc.Inventory.GetTank(ctx, f.TankID)
	require.NoError(t, err)
	assert.True(t, tank.CurrentStock.Equal(dec("5000")))

	customer, err := svc.Parties.GetCustomer(ctx, f.CustomerID)
	require.NoError(t, err)
	assert.True(t, customer.Outstanding.IsZero())

	balances, err := svc.Ledger.GetBalances(ctx, f.StationID)
	require.NoError(t, err)
	for _, b := range balances {
		assert.True(t, b.Balance.IsZero(), "account %s should be zero, got %s", b.Code, b.Balance)
	}
}

func TestCustomerPaymentSettlesOutstanding(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	ctx := context.Background()

	price := dec("1.00")
	_, err := svc.Sales.CreateTransaction(ctx, SaleInput{
		StationID:     f.StationID,
		CustomerID:    &f.CustomerID,
		PaymentMethod: PaymentCredit,
		Items:         []SaleItemInput{{ProductID: f.ProductID, Quantity: dec("500"), UnitPrice: &price}},
	})
	require.NoError(t, err)

	_, err = svc.Parties.RecordCustomerPayment(ctx, PaymentInput{
		StationID: f.StationID,
		PartyID:   f.CustomerID,
		Amount:    dec("300"),
	})
	require.NoError(t, err)

	customer, err := svc.Parties.GetCustomer(ctx, f.CustomerID)
	require.NoError(t, err)
	assert.True(t, customer.Outstanding.Equal(dec("200")))

	// Overpayment beyond the remaining balance is rejected.
	_, err = svc.Parties.RecordCustomerPayment(ctx, PaymentInput{
		StationID: f.StationID,
		PartyID:   f.CustomerID,
		Amount:    dec("500"),
	})
	assert.ErrorIs(t, err, ErrValidation)
}
