package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// InventoryService manages tank stock levels and the stock-movement audit log.
//
// All stock changes are expressed as deltas applied by the store itself
// (SET current_stock = current_stock + delta), never read-modify-write from
// application code, and are bounded to [0, capacity].
type InventoryService interface {
	CreateTank(ctx context.Context, stationID, productID int, code string, capacity, minimumLevel decimal.Decimal) (*Tank, error)
	GetTank(ctx context.Context, tankID int) (*Tank, error)
	GetTanks(ctx context.Context, stationID int) ([]Tank, error)

	// AdjustStock applies a signed delta to a tank in its own transaction and
	// records an 'adjustment' movement. Returns the new level.
	AdjustStock(ctx context.Context, tankID int, delta decimal.Decimal, reference string) (decimal.Decimal, error)

	// TX-scoped operations, used by the sales and purchase workflows to keep
	// stock changes atomic with the owning business write.

	// DeductForSaleTx decreases the stock of the station's active tank for
	// the given product and records a 'sale' movement.
	DeductForSaleTx(ctx context.Context, tx pgx.Tx, stationID, productID int, qty decimal.Decimal, reference string) error
	// ReceiveForDeliveryTx increases tank stock on a purchase-order delivery
	// and records a 'purchase_receipt' movement.
	ReceiveForDeliveryTx(ctx context.Context, tx pgx.Tx, stationID, productID int, qty decimal.Decimal, reference string) error
	// RestoreForDeletionTx returns stock to the tank when a sales transaction
	// is deleted, recorded as an 'adjustment' movement.
	RestoreForDeletionTx(ctx context.Context, tx pgx.Tx, stationID, productID int, qty decimal.Decimal, reference string) error

	// Queries
	GetStockMovements(ctx context.Context, tankID int) ([]StockMovement, error)
	LowStockTanks(ctx context.Context, stationID int) ([]Tank, error)
	ReconcileTank(ctx context.Context, tankID int) (*TankReconciliation, error)
}

type inventoryService struct {
	pool *pgxpool.Pool
}

func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

const tankColumns = `
	t.id, t.station_id, t.product_id, p.code, p.name,
	t.code, t.capacity, t.current_stock, t.minimum_level, t.status, t.created_at`

func scanTank(row pgx.Row) (*Tank, error) {
	var t Tank
	if err := row.Scan(
		&t.ID, &t.StationID, &t.ProductID, &t.ProductCode, &t.ProductName,
		&t.Code, &t.Capacity, &t.CurrentStock, &t.MinimumLevel, &t.Status, &t.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *inventoryService) CreateTank(ctx context.Context, stationID, productID int, code string, capacity, minimumLevel decimal.Decimal) (*Tank, error) {
	if code == "" {
		return nil, fmt.Errorf("tank code is required: %w", ErrValidation)
	}
	if !capacity.IsPositive() {
		return nil, fmt.Errorf("tank capacity must be > 0: %w", ErrValidation)
	}
	if minimumLevel.IsNegative() || minimumLevel.GreaterThan(capacity) {
		return nil, fmt.Errorf("minimum level must be within [0, capacity]: %w", ErrValidation)
	}

	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tanks (station_id, product_id, code, capacity, current_stock, minimum_level, status)
		VALUES ($1, $2, $3, $4, 0, $5, 'active')
		RETURNING id
	`, stationID, productID, code, capacity, minimumLevel).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert tank: %w", err)
	}
	return s.GetTank(ctx, id)
}

func (s *inventoryService) GetTank(ctx context.Context, tankID int) (*Tank, error) {
	t, err := scanTank(s.pool.QueryRow(ctx, `
		SELECT`+tankColumns+`
		FROM tanks t
		JOIN products p ON p.id = t.product_id
		WHERE t.id = $1
	`, tankID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tank %d: %w", tankID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch tank %d: %w", tankID, err)
	}
	return t, nil
}

func (s *inventoryService) GetTanks(ctx context.Context, stationID int) ([]Tank, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT`+tankColumns+`
		FROM tanks t
		JOIN products p ON p.id = t.product_id
		WHERE t.station_id = $1
		ORDER BY t.code
	`, stationID)
	if err != nil {
		return nil, fmt.Errorf("query tanks: %w", err)
	}
	defer rows.Close()

	var tanks []Tank
	for rows.Next() {
		t, err := scanTank(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tank: %w", err)
		}
		tanks = append(tanks, *t)
	}
	return tanks, rows.Err()
}

func (s *inventoryService) AdjustStock(ctx context.Context, tankID int, delta decimal.Decimal, reference string) (decimal.Decimal, error) {
	if delta.IsZero() {
		return decimal.Zero, fmt.Errorf("adjustment delta must be non-zero: %w", ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	newLevel, err := applyTankDelta(ctx, tx, tankID, delta, MovementAdjustment, reference)
	if err != nil {
		return decimal.Zero, err
	}
	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("commit stock adjustment: %w", err)
	}
	return newLevel, nil
}

func (s *inventoryService) DeductForSaleTx(ctx context.Context, tx pgx.Tx, stationID, productID int, qty decimal.Decimal, reference string) error {
	tankID, err := resolveActiveTank(ctx, tx, stationID, productID)
	if err != nil {
		return err
	}
	_, err = applyTankDelta(ctx, tx, tankID, qty.Neg(), MovementSale, reference)
	return err
}

func (s *inventoryService) ReceiveForDeliveryTx(ctx context.Context, tx pgx.Tx, stationID, productID int, qty decimal.Decimal, reference string) error {
	tankID, err := resolveActiveTank(ctx, tx, stationID, productID)
	if err != nil {
		return err
	}
	_, err = applyTankDelta(ctx, tx, tankID, qty, MovementPurchaseReceipt, reference)
	return err
}

func (s *inventoryService) RestoreForDeletionTx(ctx context.Context, tx pgx.Tx, stationID, productID int, qty decimal.Decimal, reference string) error {
	tankID, err := resolveActiveTank(ctx, tx, stationID, productID)
	if err != nil {
		return err
	}
	_, err = applyTankDelta(ctx, tx, tankID, qty, MovementAdjustment, reference)
	return err
}

// resolveActiveTank finds the active tank holding a product at a station.
func resolveActiveTank(ctx context.Context, tx pgx.Tx, stationID, productID int) (int, error) {
	var tankID int
	err := tx.QueryRow(ctx, `
		SELECT id FROM tanks
		WHERE station_id = $1 AND product_id = $2 AND status = 'active'
		ORDER BY id
		LIMIT 1
	`, stationID, productID).Scan(&tankID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("no active tank for product %d at station %d: %w", productID, stationID, ErrNotFound)
		}
		return 0, fmt.Errorf("resolve tank: %w", err)
	}
	return tankID, nil
}

// applyTankDelta is the single write path for tank stock. The guarded UPDATE
// makes the arithmetic atomic in the store and enforces 0 <= stock <= capacity;
// a vanished row means either an unknown tank or a bounds violation, which are
// told apart with a follow-up read.
func applyTankDelta(ctx context.Context, tx pgx.Tx, tankID int, delta decimal.Decimal, reason MovementReason, reference string) (decimal.Decimal, error) {
	var newLevel decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE tanks
		SET current_stock = current_stock + $1
		WHERE id = $2
		  AND current_stock + $1 >= 0
		  AND current_stock + $1 <= capacity
		RETURNING current_stock
	`, delta, tankID).Scan(&newLevel)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("update tank %d stock: %w", tankID, err)
		}

		var current, capacity decimal.Decimal
		lookupErr := tx.QueryRow(ctx,
			"SELECT current_stock, capacity FROM tanks WHERE id = $1", tankID,
		).Scan(&current, &capacity)
		if errors.Is(lookupErr, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("tank %d: %w", tankID, ErrNotFound)
		}
		if lookupErr != nil {
			return decimal.Zero, fmt.Errorf("fetch tank %d: %w", tankID, lookupErr)
		}
		if delta.IsNegative() {
			return decimal.Zero, fmt.Errorf("insufficient stock in tank %d: have %s, need %s: %w",
				tankID, current.StringFixed(2), delta.Neg().StringFixed(2), ErrValidation)
		}
		return decimal.Zero, fmt.Errorf("tank %d over capacity: have %s of %s, receiving %s: %w",
			tankID, current.StringFixed(2), capacity.StringFixed(2), delta.StringFixed(2), ErrValidation)
	}

	var ref *string
	if reference != "" {
		ref = &reference
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO stock_movements (tank_id, quantity, reason, reference, movement_date)
		VALUES ($1, $2, $3, $4, CURRENT_DATE)
	`, tankID, delta, reason, ref); err != nil {
		return decimal.Zero, fmt.Errorf("insert stock movement: %w", err)
	}

	return newLevel, nil
}

func (s *inventoryService) GetStockMovements(ctx context.Context, tankID int) ([]StockMovement, error) {
	if _, err := s.GetTank(ctx, tankID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, tank_id, quantity, reason, reference, movement_date::text, created_at
		FROM stock_movements
		WHERE tank_id = $1
		ORDER BY created_at, id
	`, tankID)
	if err != nil {
		return nil, fmt.Errorf("query stock movements: %w", err)
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.TankID, &m.Quantity, &m.Reason, &m.Reference, &m.MovementDate, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (s *inventoryService) LowStockTanks(ctx context.Context, stationID int) ([]Tank, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT`+tankColumns+`
		FROM tanks t
		JOIN products p ON p.id = t.product_id
		WHERE t.station_id = $1 AND t.status = 'active' AND t.current_stock <= t.minimum_level
		ORDER BY t.code
	`, stationID)
	if err != nil {
		return nil, fmt.Errorf("query low-stock tanks: %w", err)
	}
	defer rows.Close()

	var tanks []Tank
	for rows.Next() {
		t, err := scanTank(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tank: %w", err)
		}
		tanks = append(tanks, *t)
	}
	return tanks, rows.Err()
}

// ReconcileTank compares the stored stock level against the sum of audit
// movements. Non-zero drift usually means the tank had an opening level set
// before movement logging began, or a manual correction bypassed the service.
func (s *inventoryService) ReconcileTank(ctx context.Context, tankID int) (*TankReconciliation, error) {
	tank, err := s.GetTank(ctx, tankID)
	if err != nil {
		return nil, err
	}

	var movementSum decimal.Decimal
	if err := s.pool.QueryRow(ctx,
		"SELECT COALESCE(SUM(quantity), 0) FROM stock_movements WHERE tank_id = $1", tankID,
	).Scan(&movementSum); err != nil {
		return nil, fmt.Errorf("sum movements for tank %d: %w", tankID, err)
	}

	return &TankReconciliation{
		TankID:       tankID,
		CurrentStock: tank.CurrentStock,
		MovementSum:  movementSum,
		Drift:        tank.CurrentStock.Sub(movementSum),
	}, nil
}
