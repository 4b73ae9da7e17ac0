package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportSalesCSV(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	ctx := context.Background()

	csv := strings.Join([]string{
		"Date,Customer Name,Product Name,Quantity,Unit Price,Payment Method,Invoice Number",
		"2026-08-01,,Petrol 92,100,1.25,cash,HIST-001",
		"2026-08-02,City Transit Co,Petrol 92,200,1.25,credit,HIST-002",
		"2026-08-03,,Petrol 92,50,1.25,cash,HIST-003",
	}, "\n")

	result, err := svc.Importer.Import(ctx, f.StationID, ImportSales, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 0, result.Failed)
	assert.NotEmpty(t, result.BatchID)

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM sales_transactions").Scan(&count))
	assert.Equal(t, 3, count)

	// The credit row raised the customer's outstanding balance.
	customer, err := svc.Parties.GetCustomer(ctx, f.CustomerID)
	require.NoError(t, err)
	assert.True(t, customer.Outstanding.Equal(dec("250.00")), "got %s", customer.Outstanding)
}

func TestImportSalesBadRowContinues(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	ctx := context.Background()

	csv := strings.Join([]string{
		"Date,Customer Name,Product Name,Quantity,Unit Price,Payment Method,Invoice Number",
		"2026-08-01,,Petrol 92,100,1.25,cash,HIST-001",
		"2026-08-02,,Kerosene,50,1.25,cash,HIST-002",
		"2026-08-03,,Petrol 92,75,1.25,cash,HIST-003",
	}, "\n")

	result, err := svc.Importer.Import(ctx, f.StationID, ImportSales, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 2, result.Failures[0].Row)
	assert.Contains(t, result.Failures[0].Message, "Kerosene")
}

func TestImportExpensesCSV(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	ctx := context.Background()

	csv := strings.Join([]string{
		"Date,Category,Description,Amount",
		"2026-08-01,electricity,August bill,420.50",
		"2026-08-05,maintenance,,130.00",
	}, "\n")

	result, err := svc.Importer.Import(ctx, f.StationID, ImportExpenses, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Failed)

	expenses, err := svc.Expenses.ListExpenses(ctx, f.StationID)
	require.NoError(t, err)
	assert.Len(t, expenses, 2)
}

func TestImportPurchasesCSVDelivers(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	ctx := context.Background()

	csv := strings.Join([]string{
		"Date,Supplier Name,Product Name,Quantity,Unit Price",
		"2026-08-01,National Fuel,Petrol 92,1000,0.90",
	}, "\n")

	result, err := svc.Importer.Import(ctx, f.StationID, ImportPurchases, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	orders, err := svc.Orders.ListPOs(ctx, f.StationID, PODelivered)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	tank, err := svc.Inventory.GetTank(ctx, f.TankID)
	require.NoError(t, err)
	assert.True(t, tank.CurrentStock.Equal(dec("6000")))
}

func TestImportUnknownTypeRejected(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)

	_, err := svc.Importer.Import(context.Background(), f.StationID, "inventory", strings.NewReader("a,b\n1,2"))
	assert.ErrorIs(t, err, ErrValidation)
}
