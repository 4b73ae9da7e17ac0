package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PurchaseOrderService runs the fuel procurement workflow. Status transitions
// are guarded with a row lock so concurrent approvals or deliveries serialize;
// a transition from the wrong state returns ErrConflict.
type PurchaseOrderService struct {
	pool      *pgxpool.Pool
	ledger    *Ledger
	rules     RuleEngine
	numbers   NumberService
	inventory InventoryService
	parties   *PartyService
}

func NewPurchaseOrderService(pool *pgxpool.Pool, ledger *Ledger, rules RuleEngine, numbers NumberService, inventory InventoryService, parties *PartyService) *PurchaseOrderService {
	return &PurchaseOrderService{
		pool:      pool,
		ledger:    ledger,
		rules:     rules,
		numbers:   numbers,
		inventory: inventory,
		parties:   parties,
	}
}

func (s *PurchaseOrderService) validateItems(items []POItemInput) (decimal.Decimal, error) {
	if len(items) == 0 {
		return decimal.Zero, fmt.Errorf("a purchase order requires at least one item: %w", ErrValidation)
	}
	total := decimal.Zero
	for i, item := range items {
		if !item.Quantity.IsPositive() {
			return decimal.Zero, fmt.Errorf("item %d: quantity must be > 0: %w", i+1, ErrValidation)
		}
		if item.UnitPrice.IsNegative() {
			return decimal.Zero, fmt.Errorf("item %d: unit price must be >= 0: %w", i+1, ErrValidation)
		}
		total = total.Add(item.Quantity.Mul(item.UnitPrice).Round(2))
	}
	return total, nil
}

// CreatePO creates a pending order with a gapless per-station order number.
func (s *PurchaseOrderService) CreatePO(ctx context.Context, in POInput) (*PurchaseOrder, error) {
	if in.StationID == 0 {
		return nil, fmt.Errorf("station is required: %w", ErrValidation)
	}
	supplier, err := s.parties.GetSupplier(ctx, in.SupplierID)
	if err != nil {
		return nil, err
	}
	if supplier.StationID != in.StationID {
		return nil, fmt.Errorf("supplier %d does not belong to station %d: %w", in.SupplierID, in.StationID, ErrValidation)
	}

	total, err := s.validateItems(in.Items)
	if err != nil {
		return nil, err
	}

	orderDate := in.OrderDate
	if orderDate == "" {
		orderDate = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", orderDate); err != nil {
		return nil, fmt.Errorf("invalid order date %q, want YYYY-MM-DD: %w", orderDate, ErrValidation)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	orderNumber, err := s.numbers.NextNumberTx(ctx, tx, in.StationID, SeqPurchaseOrder)
	if err != nil {
		return nil, err
	}

	var poID int
	err = tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (station_id, supplier_id, order_number, status, total_amount, order_date)
		VALUES ($1, $2, $3, 'pending', $4, $5)
		RETURNING id
	`, in.StationID, in.SupplierID, orderNumber, total, orderDate).Scan(&poID)
	if err != nil {
		return nil, fmt.Errorf("insert purchase order: %w", err)
	}

	if err := insertPOItems(ctx, tx, poID, in.Items); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase order: %w", err)
	}
	return s.GetPO(ctx, poID)
}

func insertPOItems(ctx context.Context, tx pgx.Tx, poID int, items []POItemInput) error {
	for i, item := range items {
		lineTotal := item.Quantity.Mul(item.UnitPrice).Round(2)
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_order_items (order_id, line_number, product_id, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, poID, i+1, item.ProductID, item.Quantity, item.UnitPrice, lineTotal); err != nil {
			return fmt.Errorf("insert purchase order item %d: %w", i+1, err)
		}
	}
	return nil
}

// UpdatePO replaces the items of a pending order. Any other status is frozen.
func (s *PurchaseOrderService) UpdatePO(ctx context.Context, poID int, items []POItemInput) (*PurchaseOrder, error) {
	total, err := s.validateItems(items)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, _, _, err := lockPO(ctx, tx, poID)
	if err != nil {
		return nil, err
	}
	if status != POPending {
		return nil, fmt.Errorf("purchase order %d is %s, only pending orders can be edited: %w", poID, status, ErrConflict)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM purchase_order_items WHERE order_id = $1", poID); err != nil {
		return nil, fmt.Errorf("clear purchase order items: %w", err)
	}
	if err := insertPOItems(ctx, tx, poID, items); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		"UPDATE purchase_orders SET total_amount = $1 WHERE id = $2", total, poID); err != nil {
		return nil, fmt.Errorf("update purchase order total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase order update: %w", err)
	}
	return s.GetPO(ctx, poID)
}

// lockPO takes the order's row lock and returns its current status, station
// and supplier. Transition decisions made after this hold until commit.
func lockPO(ctx context.Context, tx pgx.Tx, poID int) (POStatus, int, int, error) {
	var status POStatus
	var stationID, supplierID int
	err := tx.QueryRow(ctx,
		"SELECT status, station_id, supplier_id FROM purchase_orders WHERE id = $1 FOR UPDATE", poID,
	).Scan(&status, &stationID, &supplierID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, 0, fmt.Errorf("purchase order %d: %w", poID, ErrNotFound)
		}
		return "", 0, 0, fmt.Errorf("lock purchase order %d: %w", poID, err)
	}
	return status, stationID, supplierID, nil
}

// ApprovePO moves a pending order to approved. Approving an already-approved
// order is a no-op so retried requests do not fail.
func (s *PurchaseOrderService) ApprovePO(ctx context.Context, poID int) (*PurchaseOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, _, _, err := lockPO(ctx, tx, poID)
	if err != nil {
		return nil, err
	}
	switch status {
	case POApproved:
		return s.GetPO(ctx, poID)
	case POPending:
	default:
		return nil, fmt.Errorf("purchase order %d is %s, cannot approve: %w", poID, status, ErrConflict)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE purchase_orders SET status = 'approved', approved_at = NOW() WHERE id = $1", poID); err != nil {
		return nil, fmt.Errorf("approve purchase order %d: %w", poID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit approval: %w", err)
	}
	return s.GetPO(ctx, poID)
}

// CancelPO moves a pending order to cancelled. Approved and delivered orders
// cannot be cancelled.
func (s *PurchaseOrderService) CancelPO(ctx context.Context, poID int) (*PurchaseOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, _, _, err := lockPO(ctx, tx, poID)
	if err != nil {
		return nil, err
	}
	switch status {
	case POCancelled:
		return s.GetPO(ctx, poID)
	case POPending:
	default:
		return nil, fmt.Errorf("purchase order %d is %s, cannot cancel: %w", poID, status, ErrConflict)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE purchase_orders SET status = 'cancelled', cancelled_at = NOW() WHERE id = $1", poID); err != nil {
		return nil, fmt.Errorf("cancel purchase order %d: %w", poID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancellation: %w", err)
	}
	return s.GetPO(ctx, poID)
}

// DeliverPO records receipt of an approved order: fuel goes into the tanks,
// the supplier's outstanding balance grows by the order total, and the
// inventory/payable posting lands, all in one transaction. A delivery that
// would overfill a tank fails whole and leaves the order approved.
func (s *PurchaseOrderService) DeliverPO(ctx context.Context, poID int) (*PurchaseOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, stationID, supplierID, err := lockPO(ctx, tx, poID)
	if err != nil {
		return nil, err
	}
	switch status {
	case PODelivered:
		return s.GetPO(ctx, poID)
	case POApproved:
	default:
		return nil, fmt.Errorf("purchase order %d is %s, only approved orders can be delivered: %w", poID, status, ErrConflict)
	}

	// Order number, total, and items are read under the row lock so the
	// delivered quantities and the posting always match the stored order.
	var orderNumber string
	var totalAmount decimal.Decimal
	if err := tx.QueryRow(ctx,
		"SELECT order_number, total_amount FROM purchase_orders WHERE id = $1", poID,
	).Scan(&orderNumber, &totalAmount); err != nil {
		return nil, fmt.Errorf("fetch purchase order %d: %w", poID, err)
	}
	items, err := fetchPOItemsTx(ctx, tx, poID)
	if err != nil {
		return nil, err
	}

	inventoryAccount, err := s.rules.ResolveAccount(ctx, stationID, RuleInventory)
	if err != nil {
		return nil, err
	}
	apAccount, err := s.rules.ResolveAccount(ctx, stationID, RuleAP)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if err := s.inventory.ReceiveForDeliveryTx(ctx, tx, stationID, item.ProductID, item.Quantity, orderNumber); err != nil {
			return nil, err
		}
	}

	if err := s.parties.ApplySupplierBalanceTx(ctx, tx, supplierID, totalAmount); err != nil {
		return nil, err
	}

	entry := Entry{
		StationID:      stationID,
		Narration:      fmt.Sprintf("Delivery of %s", orderNumber),
		EntryDate:      time.Now().Format("2006-01-02"),
		ReferenceType:  "PO_DELIVERY",
		ReferenceID:    orderNumber,
		IdempotencyKey: fmt.Sprintf("podeliver-%d-%s", stationID, orderNumber),
		Lines: []EntryLine{
			{AccountCode: inventoryAccount, IsDebit: true, Amount: totalAmount},
			{AccountCode: apAccount, IsDebit: false, Amount: totalAmount},
		},
	}
	if err := s.ledger.CommitInTx(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("post delivery entry: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE purchase_orders SET status = 'delivered', delivered_at = NOW() WHERE id = $1", poID); err != nil {
		return nil, fmt.Errorf("mark purchase order %d delivered: %w", poID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit delivery: %w", err)
	}
	return s.GetPO(ctx, poID)
}

// DeletePO removes a pending or cancelled order. Approved and delivered
// orders have downstream effects and must be kept. Authorization is the
// caller's responsibility (User.CanAccessStation / User.CanDelete).
func (s *PurchaseOrderService) DeletePO(ctx context.Context, poID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, _, _, err := lockPO(ctx, tx, poID)
	if err != nil {
		return err
	}
	if status != POPending && status != POCancelled {
		return fmt.Errorf("purchase order %d is %s, only pending or cancelled orders can be deleted: %w", poID, status, ErrConflict)
	}

	// Items cascade with the header.
	if _, err := tx.Exec(ctx, "DELETE FROM purchase_orders WHERE id = $1", poID); err != nil {
		return fmt.Errorf("delete purchase order %d: %w", poID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit purchase order deletion: %w", err)
	}
	return nil
}

func (s *PurchaseOrderService) GetPO(ctx context.Context, poID int) (*PurchaseOrder, error) {
	var po PurchaseOrder
	err := s.pool.QueryRow(ctx, `
		SELECT po.id, po.station_id, po.supplier_id, sp.name, po.order_number, po.status,
		       po.total_amount, po.order_date::text, po.approved_at, po.delivered_at, po.cancelled_at, po.created_at
		FROM purchase_orders po
		JOIN suppliers sp ON sp.id = po.supplier_id
		WHERE po.id = $1
	`, poID).Scan(&po.ID, &po.StationID, &po.SupplierID, &po.SupplierName, &po.OrderNumber, &po.Status,
		&po.TotalAmount, &po.OrderDate, &po.ApprovedAt, &po.DeliveredAt, &po.CancelledAt, &po.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %d: %w", poID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch purchase order %d: %w", poID, err)
	}

	items, err := s.fetchItems(ctx, poID)
	if err != nil {
		return nil, err
	}
	po.Items = items
	return &po, nil
}

// fetchPOItemsTx reads the order lines inside the caller's transaction,
// which matters when the rows must be consistent with a held row lock.
func fetchPOItemsTx(ctx context.Context, tx pgx.Tx, poID int) ([]PurchaseOrderItem, error) {
	rows, err := tx.Query(ctx, `
		SELECT product_id, quantity, unit_price, total_price
		FROM purchase_order_items
		WHERE order_id = $1
		ORDER BY line_number
	`, poID)
	if err != nil {
		return nil, fmt.Errorf("query purchase order items: %w", err)
	}
	defer rows.Close()

	var items []PurchaseOrderItem
	for rows.Next() {
		var it PurchaseOrderItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, fmt.Errorf("scan purchase order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *PurchaseOrderService) fetchItems(ctx context.Context, poID int) ([]PurchaseOrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.line_number, i.product_id, p.code, p.name, i.quantity, i.unit_price, i.total_price
		FROM purchase_order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.line_number
	`, poID)
	if err != nil {
		return nil, fmt.Errorf("query purchase order items: %w", err)
	}
	defer rows.Close()

	var items []PurchaseOrderItem
	for rows.Next() {
		var it PurchaseOrderItem
		if err := rows.Scan(&it.ID, &it.LineNumber, &it.ProductID, &it.ProductCode, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, fmt.Errorf("scan purchase order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListPOs returns a station's orders, optionally filtered by status.
func (s *PurchaseOrderService) ListPOs(ctx context.Context, stationID int, status POStatus) ([]PurchaseOrder, error) {
	query := `
		SELECT po.id, po.station_id, po.supplier_id, sp.name, po.order_number, po.status,
		       po.total_amount, po.order_date::text, po.approved_at, po.delivered_at, po.cancelled_at, po.created_at
		FROM purchase_orders po
		JOIN suppliers sp ON sp.id = po.supplier_id
		WHERE po.station_id = $1`
	args := []any{stationID}
	if status != "" {
		args = append(args, status)
		query += " AND po.status = $2"
	}
	query += " ORDER BY po.created_at DESC, po.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		if err := rows.Scan(&po.ID, &po.StationID, &po.SupplierID, &po.SupplierName, &po.OrderNumber, &po.Status,
			&po.TotalAmount, &po.OrderDate, &po.ApprovedAt, &po.DeliveredAt, &po.CancelledAt, &po.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		orders = append(orders, po)
	}
	return orders, rows.Err()
}
