// Command seed loads a demo station with a chart of accounts, account rules,
// fuel products, tanks, parties, and an admin user. Safe to re-run: existing
// rows are left alone.
package main

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"station-backoffice/internal/db"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	if err := seed(ctx, pool, logger); err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
	logger.Info("seed complete")
}

func seed(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	var stationID int
	err := pool.QueryRow(ctx, `
		INSERT INTO stations (code, name, timezone)
		VALUES ('ST01', 'Main Street Station', 'Asia/Jakarta')
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`).Scan(&stationID)
	if err != nil {
		return err
	}

	accounts := []struct{ code, name, typ string }{
		{"1000", "Cash", "asset"},
		{"1100", "Accounts Receivable", "asset"},
		{"1200", "Fuel Inventory", "asset"},
		{"2000", "Accounts Payable", "liability"},
		{"3000", "Owner Equity", "equity"},
		{"4000", "Fuel Revenue", "revenue"},
		{"5000", "Operating Expenses", "expense"},
	}
	for _, a := range accounts {
		if _, err := pool.Exec(ctx, `
			INSERT INTO accounts (code, name, type) VALUES ($1, $2, $3)
			ON CONFLICT (code) DO NOTHING
		`, a.code, a.name, a.typ); err != nil {
			return err
		}
	}

	rules := []struct{ rule, account string }{
		{"CASH", "1000"},
		{"AR", "1100"},
		{"INVENTORY", "1200"},
		{"AP", "2000"},
		{"FUEL_REVENUE", "4000"},
		{"EXPENSE_DEFAULT", "5000"},
	}
	for _, r := range rules {
		var exists bool
		if err := pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM account_rules WHERE station_id = $1 AND rule_type = $2)
		`, stationID, r.rule).Scan(&exists); err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := pool.Exec(ctx, `
			INSERT INTO account_rules (station_id, rule_type, account_code) VALUES ($1, $2, $3)
		`, stationID, r.rule, r.account); err != nil {
			return err
		}
	}

	products := []struct {
		code, name string
		price      string
	}{
		{"P92", "Petrol 92", "1.25"},
		{"P95", "Petrol 95", "1.45"},
		{"DSL", "Diesel", "1.10"},
	}
	for _, p := range products {
		var productID int
		err := pool.QueryRow(ctx, `
			INSERT INTO products (code, name, category, unit, current_price)
			VALUES ($1, $2, 'fuel', 'litre', $3)
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, p.code, p.name, p.price).Scan(&productID)
		if err != nil {
			return err
		}

		if _, err := pool.Exec(ctx, `
			INSERT INTO price_history (product_id, price)
			SELECT $1, $2 WHERE NOT EXISTS (SELECT 1 FROM price_history WHERE product_id = $1)
		`, productID, p.price); err != nil {
			return err
		}

		if _, err := pool.Exec(ctx, `
			INSERT INTO tanks (station_id, product_id, code, capacity, current_stock, minimum_level)
			VALUES ($1, $2, 'TK-' || $3, 20000, 0, 2000)
			ON CONFLICT (station_id, code) DO NOTHING
		`, stationID, productID, p.code); err != nil {
			return err
		}
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO customers (station_id, code, name)
		VALUES ($1, 'CUST-001', 'City Transit Co')
		ON CONFLICT (station_id, code) DO NOTHING
	`, stationID); err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO suppliers (station_id, code, name)
		VALUES ($1, 'SUP-001', 'National Fuel Distributors')
		ON CONFLICT (station_id, code) DO NOTHING
	`, stationID); err != nil {
		return err
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		logger.Warn("SEED_ADMIN_PASSWORD not set, using default")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO users (station_id, username, password_hash, role)
		VALUES (NULL, 'admin', $1, 'admin')
		ON CONFLICT (username) DO NOTHING
	`, string(hash)); err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO users (station_id, username, password_hash, role)
		VALUES ($1, 'manager', $2, 'manager')
		ON CONFLICT (username) DO NOTHING
	`, stationID, string(hash)); err != nil {
		return err
	}

	return nil
}
