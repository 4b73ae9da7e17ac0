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

// SalesService runs the point-of-sale workflow. A sale is one transaction:
// header and items inserted, tank stock deducted, credit customers' balances
// increased, and the journal entry posted, all atomically. Deletion unwinds
// each of those effects in a single transaction as well.
type SalesService struct {
	pool      *pgxpool.Pool
	ledger    *Ledger
	rules     RuleEngine
	numbers   NumberService
	inventory InventoryService
	parties   *PartyService
	products  *ProductService
}

func NewSalesService(pool *pgxpool.Pool, ledger *Ledger, rules RuleEngine, numbers NumberService, inventory InventoryService, parties *PartyService, products *ProductService) *SalesService {
	return &SalesService{
		pool:      pool,
		ledger:    ledger,
		rules:     rules,
		numbers:   numbers,
		inventory: inventory,
		parties:   parties,
		products:  products,
	}
}

type resolvedSaleLine struct {
	productID  int
	quantity   decimal.Decimal
	unitPrice  decimal.Decimal
	totalPrice decimal.Decimal
	isFuel     bool
}

func (s *SalesService) resolveLines(ctx context.Context, items []SaleItemInput) ([]resolvedSaleLine, decimal.Decimal, error) {
	if len(items) == 0 {
		return nil, decimal.Zero, fmt.Errorf("a sale requires at least one item: %w", ErrValidation)
	}

	var lines []resolvedSaleLine
	total := decimal.Zero
	for i, item := range items {
		if !item.Quantity.IsPositive() {
			return nil, decimal.Zero, fmt.Errorf("item %d: quantity must be > 0: %w", i+1, ErrValidation)
		}

		product, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("item %d: %w", i+1, err)
		}
		if !product.IsActive {
			return nil, decimal.Zero, fmt.Errorf("item %d: product %s is inactive: %w", i+1, product.Code, ErrValidation)
		}

		unitPrice := product.CurrentPrice
		if item.UnitPrice != nil {
			if item.UnitPrice.IsNegative() {
				return nil, decimal.Zero, fmt.Errorf("item %d: unit price must be >= 0: %w", i+1, ErrValidation)
			}
			unitPrice = *item.UnitPrice
		}

		lineTotal := item.Quantity.Mul(unitPrice).Round(2)
		lines = append(lines, resolvedSaleLine{
			productID:  product.ID,
			quantity:   item.Quantity,
			unitPrice:  unitPrice,
			totalPrice: lineTotal,
			isFuel:     product.Category == "fuel",
		})
		total = total.Add(lineTotal)
	}
	return lines, total, nil
}

// CreateTransaction records a sale. Credit sales require a customer; cash and
// card sales may be walk-in.
func (s *SalesService) CreateTransaction(ctx context.Context, in SaleInput) (*SalesTransaction, error) {
	if in.StationID == 0 {
		return nil, fmt.Errorf("station is required: %w", ErrValidation)
	}
	switch in.PaymentMethod {
	case PaymentCash, PaymentCard, PaymentCredit:
	default:
		return nil, fmt.Errorf("unknown payment method %q: %w", in.PaymentMethod, ErrValidation)
	}
	if in.PaymentMethod == PaymentCredit && in.CustomerID == nil {
		return nil, fmt.Errorf("credit sales require a customer: %w", ErrValidation)
	}
	if in.CustomerID != nil {
		customer, err := s.parties.GetCustomer(ctx, *in.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer.StationID != in.StationID {
			return nil, fmt.Errorf("customer %d does not belong to station %d: %w", *in.CustomerID, in.StationID, ErrValidation)
		}
	}

	lines, total, err := s.resolveLines(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	revenueAccount, err := s.rules.ResolveAccount(ctx, in.StationID, RuleFuelRevenue)
	if err != nil {
		return nil, err
	}
	var settlementAccount string
	if in.PaymentMethod == PaymentCredit {
		settlementAccount, err = s.rules.ResolveAccount(ctx, in.StationID, RuleAR)
	} else {
		settlementAccount, err = s.rules.ResolveAccount(ctx, in.StationID, RuleCash)
	}
	if err != nil {
		return nil, err
	}

	txDate := time.Now()
	if in.Date != nil {
		txDate = *in.Date
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	invoiceNumber := in.InvoiceNumber
	if invoiceNumber == "" {
		invoiceNumber, err = s.numbers.NextNumberTx(ctx, tx, in.StationID, SeqInvoice)
		if err != nil {
			return nil, err
		}
	}

	var txID int
	err = tx.QueryRow(ctx, `
		INSERT INTO sales_transactions (station_id, customer_id, invoice_number, payment_method, total_amount, transaction_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, in.StationID, in.CustomerID, invoiceNumber, in.PaymentMethod, total, txDate).Scan(&txID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("invoice %s already exists for station %d: %w", invoiceNumber, in.StationID, ErrConflict)
		}
		return nil, fmt.Errorf("insert sales transaction: %w", err)
	}

	for i, line := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO sales_transaction_items (transaction_id, line_number, product_id, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, txID, i+1, line.productID, line.quantity, line.unitPrice, line.totalPrice); err != nil {
			return nil, fmt.Errorf("insert sale item %d: %w", i+1, err)
		}

		if line.isFuel {
			if err := s.inventory.DeductForSaleTx(ctx, tx, in.StationID, line.productID, line.quantity, invoiceNumber); err != nil {
				return nil, err
			}
		}
	}

	if in.PaymentMethod == PaymentCredit {
		if err := s.parties.ApplyCustomerBalanceTx(ctx, tx, *in.CustomerID, total); err != nil {
			return nil, err
		}
	}

	entry := Entry{
		StationID:      in.StationID,
		Narration:      fmt.Sprintf("Sale %s", invoiceNumber),
		EntryDate:      txDate.Format("2006-01-02"),
		ReferenceType:  "SALE",
		ReferenceID:    invoiceNumber,
		IdempotencyKey: fmt.Sprintf("sale-%d-%s", in.StationID, invoiceNumber),
		Lines: []EntryLine{
			{AccountCode: settlementAccount, IsDebit: true, Amount: total},
			{AccountCode: revenueAccount, IsDebit: false, Amount: total},
		},
	}
	if err := s.ledger.CommitInTx(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("post sale entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit sale: %w", err)
	}
	return s.GetTransaction(ctx, txID)
}

func (s *SalesService) GetTransaction(ctx context.Context, id int) (*SalesTransaction, error) {
	var t SalesTransaction
	err := s.pool.QueryRow(ctx, `
		SELECT st.id, st.station_id, st.customer_id, c.name, st.invoice_number,
		       st.payment_method, st.total_amount, st.transaction_date, st.created_at
		FROM sales_transactions st
		LEFT JOIN customers c ON c.id = st.customer_id
		WHERE st.id = $1
	`, id).Scan(&t.ID, &t.StationID, &t.CustomerID, &t.CustomerName, &t.InvoiceNumber,
		&t.PaymentMethod, &t.TotalAmount, &t.TransactionDate, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sales transaction %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch sales transaction %d: %w", id, err)
	}

	items, err := s.fetchItems(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Items = items
	return &t, nil
}

func (s *SalesService) fetchItems(ctx context.Context, txID int) ([]SalesTransactionItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.line_number, i.product_id, p.code, p.name, i.quantity, i.unit_price, i.total_price
		FROM sales_transaction_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.transaction_id = $1
		ORDER BY i.line_number
	`, txID)
	if err != nil {
		return nil, fmt.Errorf("query sale items: %w", err)
	}
	defer rows.Close()

	var items []SalesTransactionItem
	for rows.Next() {
		var it SalesTransactionItem
		if err := rows.Scan(&it.ID, &it.LineNumber, &it.ProductID, &it.ProductCode, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SalesService) ListTransactions(ctx context.Context, stationID int, filter ListSalesFilter) ([]SalesTransaction, error) {
	query := `
		SELECT st.id, st.station_id, st.customer_id, c.name, st.invoice_number,
		       st.payment_method, st.total_amount, st.transaction_date, st.created_at
		FROM sales_transactions st
		LEFT JOIN customers c ON c.id = st.customer_id
		WHERE st.station_id = $1`
	args := []any{stationID}

	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND st.transaction_date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND st.transaction_date < $%d", len(args))
	}
	if filter.PaymentMethod != "" {
		args = append(args, filter.PaymentMethod)
		query += fmt.Sprintf(" AND st.payment_method = $%d", len(args))
	}
	if filter.CustomerID != 0 {
		args = append(args, filter.CustomerID)
		query += fmt.Sprintf(" AND st.customer_id = $%d", len(args))
	}
	query += " ORDER BY st.transaction_date DESC, st.id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales transactions: %w", err)
	}
	defer rows.Close()

	var txs []SalesTransaction
	for rows.Next() {
		var t SalesTransaction
		if err := rows.Scan(&t.ID, &t.StationID, &t.CustomerID, &t.CustomerName, &t.InvoiceNumber,
			&t.PaymentMethod, &t.TotalAmount, &t.TransactionDate, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sales transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// DeleteTransaction removes a sale and compensates every side effect it had:
// fuel stock is returned to the tanks, a credit customer's outstanding balance
// is reduced, and the journal entry is reversed. Callers are responsible for
// authorization (User.CanAccessStation / User.CanDelete) before invoking this.
func (s *SalesService) DeleteTransaction(ctx context.Context, id int) error {
	t, err := s.GetTransaction(ctx, id)
	if err != nil {
		return err
	}

	products := make(map[int]*Product, len(t.Items))
	for _, item := range t.Items {
		if _, ok := products[item.ProductID]; ok {
			continue
		}
		p, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return err
		}
		products[item.ProductID] = p
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	reference := fmt.Sprintf("void %s", t.InvoiceNumber)
	for _, item := range t.Items {
		if products[item.ProductID].Category != "fuel" {
			continue
		}
		if err := s.inventory.RestoreForDeletionTx(ctx, tx, t.StationID, item.ProductID, item.Quantity, reference); err != nil {
			return err
		}
	}

	if t.PaymentMethod == PaymentCredit && t.CustomerID != nil {
		if err := s.parties.ApplyCustomerBalanceTx(ctx, tx, *t.CustomerID, t.TotalAmount.Neg()); err != nil {
			return err
		}
	}

	entryID, err := s.ledger.FindEntryByReference(ctx, t.StationID, "SALE", t.InvoiceNumber)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err == nil {
		if err := s.ledger.ReverseInTx(ctx, tx, entryID, "sale deleted"); err != nil {
			return err
		}
	}

	// Items cascade with the header.
	if _, err := tx.Exec(ctx, "DELETE FROM sales_transactions WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete sales transaction %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit sale deletion: %w", err)
	}
	return nil
}
