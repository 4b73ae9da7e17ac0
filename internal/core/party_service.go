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

// PartyService manages customers and suppliers, including their outstanding
// balances. Balance changes are applied by the store with atomic arithmetic
// updates; a payment that would drive the outstanding balance negative is
// rejected.
type PartyService struct {
	pool   *pgxpool.Pool
	ledger *Ledger
	rules  RuleEngine
}

func NewPartyService(pool *pgxpool.Pool, ledger *Ledger, rules RuleEngine) *PartyService {
	return &PartyService{pool: pool, ledger: ledger, rules: rules}
}

type PartyInput struct {
	StationID int     `json:"station_id"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
}

func (in PartyInput) validate() error {
	if in.StationID == 0 {
		return fmt.Errorf("station is required: %w", ErrValidation)
	}
	if in.Code == "" || in.Name == "" {
		return fmt.Errorf("code and name are required: %w", ErrValidation)
	}
	return nil
}

func (s *PartyService) CreateCustomer(ctx context.Context, in PartyInput) (*Customer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (station_id, code, name, phone, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, in.StationID, in.Code, in.Name, in.Phone, in.Email).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	return s.GetCustomer(ctx, id)
}

func (s *PartyService) GetCustomer(ctx context.Context, id int) (*Customer, error) {
	var c Customer
	err := s.pool.QueryRow(ctx, `
		SELECT id, station_id, code, name, phone, email, outstanding_amount, is_active, created_at
		FROM customers WHERE id = $1
	`, id).Scan(&c.ID, &c.StationID, &c.Code, &c.Name, &c.Phone, &c.Email, &c.Outstanding, &c.IsActive, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch customer %d: %w", id, err)
	}
	return &c, nil
}

func (s *PartyService) ListCustomers(ctx context.Context, stationID int) ([]Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, station_id, code, name, phone, email, outstanding_amount, is_active, created_at
		FROM customers
		WHERE station_id = $1
		ORDER BY name
	`, stationID)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.StationID, &c.Code, &c.Name, &c.Phone, &c.Email, &c.Outstanding, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *PartyService) CreateSupplier(ctx context.Context, in PartyInput) (*Supplier, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO suppliers (station_id, code, name, phone, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, in.StationID, in.Code, in.Name, in.Phone, in.Email).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert supplier: %w", err)
	}
	return s.GetSupplier(ctx, id)
}

func (s *PartyService) GetSupplier(ctx context.Context, id int) (*Supplier, error) {
	var sp Supplier
	err := s.pool.QueryRow(ctx, `
		SELECT id, station_id, code, name, phone, email, outstanding_amount, is_active, created_at
		FROM suppliers WHERE id = $1
	`, id).Scan(&sp.ID, &sp.StationID, &sp.Code, &sp.Name, &sp.Phone, &sp.Email, &sp.Outstanding, &sp.IsActive, &sp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("supplier %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch supplier %d: %w", id, err)
	}
	return &sp, nil
}

func (s *PartyService) ListSuppliers(ctx context.Context, stationID int) ([]Supplier, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, station_id, code, name, phone, email, outstanding_amount, is_active, created_at
		FROM suppliers
		WHERE station_id = $1
		ORDER BY name
	`, stationID)
	if err != nil {
		return nil, fmt.Errorf("query suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var sp Supplier
		if err := rows.Scan(&sp.ID, &sp.StationID, &sp.Code, &sp.Name, &sp.Phone, &sp.Email, &sp.Outstanding, &sp.IsActive, &sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, sp)
	}
	return suppliers, rows.Err()
}

// ApplyCustomerBalanceTx adds delta to a customer's outstanding balance inside
// the caller's transaction. The balance never drops below zero.
func (s *PartyService) ApplyCustomerBalanceTx(ctx context.Context, tx pgx.Tx, customerID int, delta decimal.Decimal) error {
	return applyOutstandingDelta(ctx, tx, "customers", "customer", customerID, delta)
}

// ApplySupplierBalanceTx is the supplier counterpart of ApplyCustomerBalanceTx.
func (s *PartyService) ApplySupplierBalanceTx(ctx context.Context, tx pgx.Tx, supplierID int, delta decimal.Decimal) error {
	return applyOutstandingDelta(ctx, tx, "suppliers", "supplier", supplierID, delta)
}

func applyOutstandingDelta(ctx context.Context, tx pgx.Tx, table, kind string, id int, delta decimal.Decimal) error {
	var newBalance decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE `+table+`
		SET outstanding_amount = outstanding_amount + $1
		WHERE id = $2 AND outstanding_amount + $1 >= 0
		RETURNING outstanding_amount
	`, delta, id).Scan(&newBalance)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("update %s %d balance: %w", kind, id, err)
		}
		var exists bool
		if lookupErr := tx.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", id,
		).Scan(&exists); lookupErr != nil {
			return fmt.Errorf("fetch %s %d: %w", kind, id, lookupErr)
		}
		if !exists {
			return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
		}
		return fmt.Errorf("payment of %s exceeds %s %d outstanding balance: %w",
			delta.Neg().StringFixed(2), kind, id, ErrValidation)
	}
	return nil
}

type PaymentInput struct {
	StationID int             `json:"station_id"`
	PartyID   int             `json:"party_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference *string         `json:"reference,omitempty"`
}

// RecordCustomerPayment settles part of a customer's outstanding credit:
// decrement the balance, insert the payment row, and post DR Cash / CR
// Accounts Receivable, all in one transaction.
func (s *PartyService) RecordCustomerPayment(ctx context.Context, in PaymentInput) (int, error) {
	if !in.Amount.IsPositive() {
		return 0, fmt.Errorf("payment amount must be > 0: %w", ErrValidation)
	}
	customer, err := s.GetCustomer(ctx, in.PartyID)
	if err != nil {
		return 0, err
	}
	if customer.StationID != in.StationID {
		return 0, fmt.Errorf("customer %d does not belong to station %d: %w", in.PartyID, in.StationID, ErrValidation)
	}

	cashAccount, err := s.rules.ResolveAccount(ctx, in.StationID, RuleCash)
	if err != nil {
		return 0, err
	}
	arAccount, err := s.rules.ResolveAccount(ctx, in.StationID, RuleAR)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.ApplyCustomerBalanceTx(ctx, tx, in.PartyID, in.Amount.Neg()); err != nil {
		return 0, err
	}

	method := in.Method
	if method == "" {
		method = "cash"
	}
	var paymentID int
	err = tx.QueryRow(ctx, `
		INSERT INTO customer_payments (station_id, customer_id, amount, method, reference)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, in.StationID, in.PartyID, in.Amount, method, in.Reference).Scan(&paymentID)
	if err != nil {
		return 0, fmt.Errorf("insert customer payment: %w", err)
	}

	entry := Entry{
		StationID:      in.StationID,
		Narration:      fmt.Sprintf("Payment received from %s", customer.Name),
		EntryDate:      time.Now().Format("2006-01-02"),
		ReferenceType:  "CUSTOMER_PAYMENT",
		ReferenceID:    fmt.Sprintf("%d", paymentID),
		IdempotencyKey: fmt.Sprintf("custpay-%d-%d", in.StationID, paymentID),
		Lines: []EntryLine{
			{AccountCode: cashAccount, IsDebit: true, Amount: in.Amount},
			{AccountCode: arAccount, IsDebit: false, Amount: in.Amount},
		},
	}
	if err := s.ledger.CommitInTx(ctx, tx, entry); err != nil {
		return 0, fmt.Errorf("post customer payment entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit customer payment: %w", err)
	}
	return paymentID, nil
}

// RecordSupplierPayment settles part of what the station owes a supplier:
// decrement the balance, insert the payment row, and post DR Accounts
// Payable / CR Cash atomically.
func (s *PartyService) RecordSupplierPayment(ctx context.Context, in PaymentInput) (int, error) {
	if !in.Amount.IsPositive() {
		return 0, fmt.Errorf("payment amount must be > 0: %w", ErrValidation)
	}
	supplier, err := s.GetSupplier(ctx, in.PartyID)
	if err != nil {
		return 0, err
	}
	if supplier.StationID != in.StationID {
		return 0, fmt.Errorf("supplier %d does not belong to station %d: %w", in.PartyID, in.StationID, ErrValidation)
	}

	cashAccount, err := s.rules.ResolveAccount(ctx, in.StationID, RuleCash)
	if err != nil {
		return 0, err
	}
	apAccount, err := s.rules.ResolveAccount(ctx, in.StationID, RuleAP)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.ApplySupplierBalanceTx(ctx, tx, in.PartyID, in.Amount.Neg()); err != nil {
		return 0, err
	}

	method := in.Method
	if method == "" {
		method = "cash"
	}
	var paymentID int
	err = tx.QueryRow(ctx, `
		INSERT INTO supplier_payments (station_id, supplier_id, amount, method, reference)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, in.StationID, in.PartyID, in.Amount, method, in.Reference).Scan(&paymentID)
	if err != nil {
		return 0, fmt.Errorf("insert supplier payment: %w", err)
	}

	entry := Entry{
		StationID:      in.StationID,
		Narration:      fmt.Sprintf("Payment made to %s", supplier.Name),
		EntryDate:      time.Now().Format("2006-01-02"),
		ReferenceType:  "SUPPLIER_PAYMENT",
		ReferenceID:    fmt.Sprintf("%d", paymentID),
		IdempotencyKey: fmt.Sprintf("supppay-%d-%d", in.StationID, paymentID),
		Lines: []EntryLine{
			{AccountCode: apAccount, IsDebit: true, Amount: in.Amount},
			{AccountCode: cashAccount, IsDebit: false, Amount: in.Amount},
		},
	}
	if err := s.ledger.CommitInTx(ctx, tx, entry); err != nil {
		return 0, fmt.Errorf("post supplier payment entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit supplier payment: %w", err)
	}
	return paymentID, nil
}
