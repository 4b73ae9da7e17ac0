// Package app wires the core services together and carries the cross-cutting
// concerns (authentication, dashboard caching) that do not belong to any one
// domain service.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"station-backoffice/internal/cache"
	"station-backoffice/internal/core"
)

const dashboardTTL = 60 * time.Second

// ApplicationService is the single dependency handed to the web adapter.
type ApplicationService struct {
	Ledger    *core.Ledger
	Sales     *core.SalesService
	Orders    *core.PurchaseOrderService
	Inventory core.InventoryService
	Parties   *core.PartyService
	Products  *core.ProductService
	Expenses  *core.ExpenseService
	Dashboard *core.DashboardService
	Importer  *core.ImportService
	Users     *core.UserService

	cache  cache.Cache
	logger *zap.Logger
}

func New(pool *pgxpool.Pool, c cache.Cache, logger *zap.Logger) *ApplicationService {
	ledger := core.NewLedger(pool)
	rules := core.NewRuleEngine(pool)
	numbers := core.NewNumberService(pool)
	inventory := core.NewInventoryService(pool)
	parties := core.NewPartyService(pool, ledger, rules)
	products := core.NewProductService(pool)
	sales := core.NewSalesService(pool, ledger, rules, numbers, inventory, parties, products)
	orders := core.NewPurchaseOrderService(pool, ledger, rules, numbers, inventory, parties)
	expenses := core.NewExpenseService(pool, ledger, rules)

	return &ApplicationService{
		Ledger:    ledger,
		Sales:     sales,
		Orders:    orders,
		Inventory: inventory,
		Parties:   parties,
		Products:  products,
		Expenses:  expenses,
		Dashboard: core.NewDashboardService(pool),
		Importer:  core.NewImportService(sales, expenses, parties, products, orders),
		Users:     core.NewUserService(pool),
		cache:     c,
		logger:    logger,
	}
}

// AuthenticateUser verifies credentials and returns the user. A missing user
// and a wrong password both come back as ErrUnauthorized so login responses
// do not reveal which usernames exist.
func (a *ApplicationService) AuthenticateUser(ctx context.Context, username, password string) (*core.User, error) {
	user, err := a.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", core.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", core.ErrUnauthorized)
	}
	return user, nil
}

// GetDashboard serves the station summary through the cache. Entries are
// keyed by station and expire quickly, so stale reads are bounded to a
// minute.
func (a *ApplicationService) GetDashboard(ctx context.Context, stationID int) (*core.DashboardSummary, error) {
	key := fmt.Sprintf("dashboard:%d", stationID)

	if raw, ok := a.cache.Get(ctx, key); ok {
		var summary core.DashboardSummary
		if err := json.Unmarshal(raw, &summary); err == nil {
			return &summary, nil
		}
		a.cache.Delete(ctx, key)
	}

	summary, err := a.Dashboard.GetSummary(ctx, stationID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(summary); err == nil {
		a.cache.Set(ctx, key, raw, dashboardTTL)
	} else {
		a.logger.Warn("dashboard cache encode failed", zap.Int("station_id", stationID), zap.Error(err))
	}
	return summary, nil
}

// InvalidateDashboard drops the cached summary after a write that changes it.
func (a *ApplicationService) InvalidateDashboard(ctx context.Context, stationID int) {
	a.cache.Delete(ctx, fmt.Sprintf("dashboard:%d", stationID))
}
