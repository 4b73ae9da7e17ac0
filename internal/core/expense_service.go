package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ExpenseService records operating expenses and posts them to the journal.
type ExpenseService struct {
	pool   *pgxpool.Pool
	ledger *Ledger
	rules  RuleEngine
}

func NewExpenseService(pool *pgxpool.Pool, ledger *Ledger, rules RuleEngine) *ExpenseService {
	return &ExpenseService{pool: pool, ledger: ledger, rules: rules}
}

type Expense struct {
	ID          int             `json:"id"`
	StationID   int             `json:"station_id"`
	Category    string          `json:"category"`
	Description *string         `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	ExpenseDate string          `json:"expense_date"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ExpenseInput struct {
	StationID   int             `json:"station_id"`
	Category    string          `json:"category"`
	Description *string         `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	ExpenseDate string          `json:"expense_date,omitempty"` // YYYY-MM-DD, defaults to today
}

// RecordExpense inserts the expense row and posts DR expense / CR cash in one
// transaction.
func (s *ExpenseService) RecordExpense(ctx context.Context, in ExpenseInput) (int, error) {
	if in.StationID == 0 {
		return 0, fmt.Errorf("station is required: %w", ErrValidation)
	}
	if in.Category == "" {
		return 0, fmt.Errorf("expense category is required: %w", ErrValidation)
	}
	if !in.Amount.IsPositive() {
		return 0, fmt.Errorf("expense amount must be > 0: %w", ErrValidation)
	}
	expenseDate := in.ExpenseDate
	if expenseDate == "" {
		expenseDate = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", expenseDate); err != nil {
		return 0, fmt.Errorf("invalid expense date %q, want YYYY-MM-DD: %w", expenseDate, ErrValidation)
	}

	expenseAccount, err := s.rules.ResolveAccount(ctx, in.StationID, RuleExpenseDefault)
	if err != nil {
		return 0, err
	}
	cashAccount, err := s.rules.ResolveAccount(ctx, in.StationID, RuleCash)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var expenseID int
	err = tx.QueryRow(ctx, `
		INSERT INTO expenses (station_id, category, description, amount, expense_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, in.StationID, in.Category, in.Description, in.Amount, expenseDate).Scan(&expenseID)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	entry := Entry{
		StationID:      in.StationID,
		Narration:      fmt.Sprintf("Expense: %s", in.Category),
		EntryDate:      expenseDate,
		ReferenceType:  "EXPENSE",
		ReferenceID:    fmt.Sprintf("%d", expenseID),
		IdempotencyKey: fmt.Sprintf("expense-%d-%d", in.StationID, expenseID),
		Lines: []EntryLine{
			{AccountCode: expenseAccount, IsDebit: true, Amount: in.Amount},
			{AccountCode: cashAccount, IsDebit: false, Amount: in.Amount},
		},
	}
	if err := s.ledger.CommitInTx(ctx, tx, entry); err != nil {
		return 0, fmt.Errorf("post expense entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit expense: %w", err)
	}
	return expenseID, nil
}

func (s *ExpenseService) ListExpenses(ctx context.Context, stationID int) ([]Expense, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, station_id, category, description, amount, expense_date::text, created_at
		FROM expenses
		WHERE station_id = $1
		ORDER BY expense_date DESC, id DESC
	`, stationID)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.StationID, &e.Category, &e.Description, &e.Amount, &e.ExpenseDate, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}
