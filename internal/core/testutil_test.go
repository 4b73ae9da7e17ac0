package core

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to TEST_DATABASE_URL and wipes all tables. Tests are
// skipped when the variable is unset so the unit suite stays green without a
// database. The schema must already be applied (cmd/migrate).
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(), `
		TRUNCATE stations, users, products, price_history, tanks, stock_movements,
		         customers, suppliers, sales_transactions, sales_transaction_items,
		         purchase_orders, purchase_order_items, customer_payments,
		         supplier_payments, expenses, accounts, journal_entries,
		         journal_lines, account_rules, number_sequences
		RESTART IDENTITY CASCADE
	`)
	require.NoError(t, err)

	return pool
}

type fixture struct {
	StationID  int
	ProductID  int
	TankID     int
	CustomerID int
	SupplierID int
}

// seedFixture loads one station with a chart of accounts, rules, a fuel
// product, a tank with opening stock, and one customer and supplier.
func seedFixture(t *testing.T, pool *pgxpool.Pool) fixture {
	t.Helper()
	ctx := context.Background()

	var f fixture
	err := pool.QueryRow(ctx, `
		INSERT INTO stations (code, name, timezone) VALUES ('ST01', 'Test Station', 'UTC') RETURNING id
	`).Scan(&f.StationID)
	require.NoError(t, err)

	for _, a := range []struct{ code, name, typ string }{
		{"1000", "Cash", "asset"},
		{"1100", "Accounts Receivable", "asset"},
		{"1200", "Fuel Inventory", "asset"},
		{"2000", "Accounts Payable", "liability"},
		{"4000", "Fuel Revenue", "revenue"},
		{"5000", "Operating Expenses", "expense"},
	} {
		_, err := pool.Exec(ctx, "INSERT INTO accounts (code, name, type) VALUES ($1, $2, $3)", a.code, a.name, a.typ)
		require.NoError(t, err)
	}

	for _, r := range []struct{ rule, account string }{
		{RuleCash, "1000"},
		{RuleAR, "1100"},
		{RuleInventory, "1200"},
		{RuleAP, "2000"},
		{RuleFuelRevenue, "4000"},
		{RuleExpenseDefault, "5000"},
	} {
		_, err := pool.Exec(ctx,
			"INSERT INTO account_rules (station_id, rule_type, account_code) VALUES ($1, $2, $3)",
			f.StationID, r.rule, r.account)
		require.NoError(t, err)
	}

	err = pool.QueryRow(ctx, `
		INSERT INTO products (code, name, category, unit, current_price)
		VALUES ('P92', 'Petrol 92', 'fuel', 'litre', 1.25) RETURNING id
	`).Scan(&f.ProductID)
	require.NoError(t, err)

	err = pool.QueryRow(ctx, `
		INSERT INTO tanks (station_id, product_id, code, capacity, current_stock, minimum_level)
		VALUES ($1, $2, 'TK-1', 10000, 5000, 500) RETURNING id
	`, f.StationID, f.ProductID).Scan(&f.TankID)
	require.NoError(t, err)

	err = pool.QueryRow(ctx, `
		INSERT INTO customers (station_id, code, name) VALUES ($1, 'CUST-001', 'City Transit Co') RETURNING id
	`, f.StationID).Scan(&f.CustomerID)
	require.NoError(t, err)

	err = pool.QueryRow(ctx, `
		INSERT INTO suppliers (station_id, code, name) VALUES ($1, 'SUP-001', 'National Fuel') RETURNING id
	`, f.StationID).Scan(&f.SupplierID)
	require.NoError(t, err)

	return f
}

// newServices builds the full wired service set against a test pool.
type services struct {
	Ledger    *Ledger
	Rules     RuleEngine
	Numbers   NumberService
	Inventory InventoryService
	Parties   *PartyService
	Products  *ProductService
	Sales     *SalesService
	Orders    *PurchaseOrderService
	Expenses  *ExpenseService
	Importer  *ImportService
}

func newServices(pool *pgxpool.Pool) services {
	ledger := NewLedger(pool)
	rules := NewRuleEngine(pool)
	numbers := NewNumberService(pool)
	inventory := NewInventoryService(pool)
	parties := NewPartyService(pool, ledger, rules)
	products := NewProductService(pool)
	sales := NewSalesService(pool, ledger, rules, numbers, inventory, parties, products)
	orders := NewPurchaseOrderService(pool, ledger, rules, numbers, inventory, parties)
	expenses := NewExpenseService(pool, ledger, rules)
	return services{
		Ledger:    ledger,
		Rules:     rules,
		Numbers:   numbers,
		Inventory: inventory,
		Parties:   parties,
		Products:  products,
		Sales:     sales,
		Orders:    orders,
		Expenses:  expenses,
		Importer:  NewImportService(sales, expenses, parties, products, orders),
	}
}
