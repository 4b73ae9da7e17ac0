package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"station-backoffice/internal/app"
	"station-backoffice/internal/cache"
	"station-backoffice/internal/core"
)

// setupTestServer wires a Server against TEST_DATABASE_URL with a wiped
// schema. Skipped when the variable is unset, like the core suite.
func setupTestServer(t *testing.T) (*Server, *app.ApplicationService, *pgxpool.Pool) {
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

	application := app.New(pool, cache.Noop{}, zap.NewNop())
	return NewServer(application, zap.NewNop(), []byte("test-secret")), application, pool
}

// seedStation loads a station with a chart of accounts, rules, the shared
// fuel product, and a tank with opening stock. Accounts and the product are
// global, so only the first call creates them.
func seedStation(t *testing.T, pool *pgxpool.Pool, code string) (stationID, productID, tankID int) {
	t.Helper()
	ctx := context.Background()

	err := pool.QueryRow(ctx,
		"INSERT INTO stations (code, name, timezone) VALUES ($1, $2, 'UTC') RETURNING id",
		code, "Station "+code).Scan(&stationID)
	require.NoError(t, err)

	for _, a := range []struct{ code, name, typ string }{
		{"1000", "Cash", "asset"},
		{"1100", "Accounts Receivable", "asset"},
		{"1200", "Fuel Inventory", "asset"},
		{"2000", "Accounts Payable", "liability"},
		{"4000", "Fuel Revenue", "revenue"},
		{"5000", "Operating Expenses", "expense"},
	} {
		_, err := pool.Exec(ctx, `
			INSERT INTO accounts (code, name, type) VALUES ($1, $2, $3)
			ON CONFLICT (code) DO NOTHING
		`, a.code, a.name, a.typ)
		require.NoError(t, err)
	}

	for _, r := range []struct{ rule, account string }{
		{core.RuleCash, "1000"},
		{core.RuleAR, "1100"},
		{core.RuleInventory, "1200"},
		{core.RuleAP, "2000"},
		{core.RuleFuelRevenue, "4000"},
		{core.RuleExpenseDefault, "5000"},
	} {
		_, err := pool.Exec(ctx,
			"INSERT INTO account_rules (station_id, rule_type, account_code) VALUES ($1, $2, $3)",
			stationID, r.rule, r.account)
		require.NoError(t, err)
	}

	err = pool.QueryRow(ctx, `
		INSERT INTO products (code, name, category, unit, current_price)
		VALUES ('P92', 'Petrol 92', 'fuel', 'litre', 1.25)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`).Scan(&productID)
	require.NoError(t, err)

	err = pool.QueryRow(ctx, `
		INSERT INTO tanks (station_id, product_id, code, capacity, current_stock, minimum_level)
		VALUES ($1, $2, 'TK-1', 10000, 5000, 500) RETURNING id
	`, stationID, productID).Scan(&tankID)
	require.NoError(t, err)

	return stationID, productID, tankID
}

func seedUser(t *testing.T, pool *pgxpool.Pool, username, role string, stationID *int) *core.User {
	t.Helper()

	u := &core.User{Username: username, Role: role, StationID: stationID}
	err := pool.QueryRow(context.Background(), `
		INSERT INTO users (station_id, username, password_hash, role)
		VALUES ($1, $2, 'x', $3) RETURNING id
	`, stationID, username, role).Scan(&u.ID)
	require.NoError(t, err)
	return u
}

func bearerFor(t *testing.T, s *Server, u *core.User) string {
	t.Helper()
	token, err := s.issueToken(u)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestDeleteSaleRejectsCrossStationCaller(t *testing.T) {
	server, application, pool := setupTestServer(t)
	ctx := context.Background()

	stationA, productID, tankA := seedStation(t, pool, "ST01")
	stationB, _, _ := seedStation(t, pool, "ST02")

	outsider := seedUser(t, pool, "outsider", core.RoleManager, &stationB)
	manager := seedUser(t, pool, "manager", core.RoleManager, &stationA)

	sale, err := application.Sales.CreateTransaction(ctx, core.SaleInput{
		StationID:     stationA,
		PaymentMethod: core.PaymentCash,
		Items:         []core.SaleItemInput{{ProductID: productID, Quantity: decimal.NewFromInt(10)}},
	})
	require.NoError(t, err)

	router := server.Router()

	// A manager from another station gets 403 and the sale survives intact.
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/sales/%d", sale.ID), nil)
	req.Header.Set("Authorization", bearerFor(t, server, outsider))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var count int
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM sales_transactions WHERE id = $1", sale.ID).Scan(&count))
	assert.Equal(t, 1, count)

	var stock decimal.Decimal
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT current_stock FROM tanks WHERE id = $1", tankA).Scan(&stock))
	assert.True(t, stock.Equal(decimal.NewFromInt(4990)), "got %s", stock)

	// The station's own manager may delete, and the stock is restored.
	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/sales/%d", sale.ID), nil)
	req.Header.Set("Authorization", bearerFor(t, server, manager))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	require.NoError(t, pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM sales_transactions WHERE id = $1", sale.ID).Scan(&count))
	assert.Equal(t, 0, count)

	require.NoError(t, pool.QueryRow(ctx,
		"SELECT current_stock FROM tanks WHERE id = $1", tankA).Scan(&stock))
	assert.True(t, stock.Equal(decimal.NewFromInt(5000)), "got %s", stock)
}
