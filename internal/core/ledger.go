package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Ledger is the double-entry journal. Every write path goes through Commit or
// CommitInTx, which reject entries whose lines do not balance.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Commit validates and posts an entry in its own transaction.
func (l *Ledger) Commit(ctx context.Context, entry Entry) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := l.CommitInTx(ctx, tx, entry); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit journal entry: %w", err)
	}
	return nil
}

// Validate runs the structural checks and resolves every account code without
// persisting anything.
func (l *Ledger) Validate(ctx context.Context, entry Entry) error {
	entry.Normalize()
	if err := entry.Validate(); err != nil {
		return err
	}
	for _, line := range entry.Lines {
		var id int
		if err := l.pool.QueryRow(ctx, "SELECT id FROM accounts WHERE code = $1", line.AccountCode).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("account code %s: %w", line.AccountCode, ErrNotFound)
			}
			return fmt.Errorf("resolve account %s: %w", line.AccountCode, err)
		}
	}
	return nil
}

// CommitInTx validates and posts an entry inside the caller's transaction,
// so a business write (sale, delivery, payment) and its journal entry land
// atomically. The caller owns commit/rollback.
func (l *Ledger) CommitInTx(ctx context.Context, tx pgx.Tx, entry Entry) error {
	entry.Normalize()
	if err := entry.Validate(); err != nil {
		return err
	}

	var refType, refID, idemKey *string
	if entry.ReferenceType != "" {
		refType = &entry.ReferenceType
	}
	if entry.ReferenceID != "" {
		refID = &entry.ReferenceID
	}
	if entry.IdempotencyKey != "" {
		idemKey = &entry.IdempotencyKey
	}

	var entryID int
	err := tx.QueryRow(ctx, `
		INSERT INTO journal_entries (station_id, narration, entry_date, reference_type, reference_id, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id
	`, entry.StationID, entry.Narration, entry.EntryDate, refType, refID, idemKey).Scan(&entryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("duplicate entry: idempotency key %s already posted: %w", entry.IdempotencyKey, ErrConflict)
		}
		return fmt.Errorf("insert journal entry: %w", err)
	}

	for _, line := range entry.Lines {
		var accountID int
		if err := tx.QueryRow(ctx, "SELECT id FROM accounts WHERE code = $1", line.AccountCode).Scan(&accountID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("account code %s: %w", line.AccountCode, ErrNotFound)
			}
			return fmt.Errorf("resolve account %s: %w", line.AccountCode, err)
		}

		debit, credit := decimal.Zero, decimal.Zero
		if line.IsDebit {
			debit = line.Amount
		} else {
			credit = line.Amount
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO journal_lines (entry_id, account_id, debit, credit)
			VALUES ($1, $2, $3, $4)
		`, entryID, accountID, debit, credit); err != nil {
			return fmt.Errorf("insert journal line: %w", err)
		}
	}

	return nil
}

type AccountBalance struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Type    AccountType     `json:"type"`
	Balance decimal.Decimal `json:"balance"`
}

// GetBalances returns the trial balance for one station: per-account net
// debit-minus-credit across all posted lines.
func (l *Ledger) GetBalances(ctx context.Context, stationID int) ([]AccountBalance, error) {
	// Subquery aggregates only lines whose entry belongs to the station.
	rows, err := l.pool.Query(ctx, `
		SELECT a.code, a.name, a.type,
		       COALESCE(s.debit_total, 0) - COALESCE(s.credit_total, 0) AS balance
		FROM accounts a
		LEFT JOIN (
		    SELECT jl.account_id,
		           SUM(jl.debit)  AS debit_total,
		           SUM(jl.credit) AS credit_total
		    FROM journal_lines jl
		    JOIN journal_entries je ON je.id = jl.entry_id
		    WHERE je.station_id = $1
		    GROUP BY jl.account_id
		) s ON s.account_id = a.id
		ORDER BY a.code
	`, stationID)
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	var balances []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.Code, &b.Name, &b.Type, &b.Balance); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// Reverse posts a new entry with inverted debit/credit lines. The original
// rows are never mutated; reversing an already-reversed entry is rejected.
func (l *Ledger) Reverse(ctx context.Context, entryID int, reason string) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := l.ReverseInTx(ctx, tx, entryID, reason); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reversal: %w", err)
	}
	return nil
}

// ReverseInTx is Reverse inside the caller's transaction. Used by the sales
// workflow so that deleting a transaction and unwinding its posting are atomic.
func (l *Ledger) ReverseInTx(ctx context.Context, tx pgx.Tx, entryID int, reason string) error {
	var stationID int
	var narration string
	err := tx.QueryRow(ctx,
		"SELECT station_id, narration FROM journal_entries WHERE id = $1", entryID,
	).Scan(&stationID, &narration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("journal entry %d: %w", entryID, ErrNotFound)
		}
		return fmt.Errorf("fetch entry %d: %w", entryID, err)
	}

	var count int
	if err := tx.QueryRow(ctx,
		"SELECT count(*) FROM journal_entries WHERE reversed_entry_id = $1", entryID,
	).Scan(&count); err != nil {
		return fmt.Errorf("check reversal status: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("entry %d is already reversed: %w", entryID, ErrConflict)
	}

	var newEntryID int
	err = tx.QueryRow(ctx, `
		INSERT INTO journal_entries (station_id, narration, entry_date, reference_type, reference_id, reversed_entry_id, created_at)
		SELECT station_id, $1, entry_date, reference_type, reference_id, $2, NOW()
		FROM journal_entries WHERE id = $2
		RETURNING id
	`, fmt.Sprintf("Reversal of entry %d (%s): %s", entryID, reason, narration), entryID).Scan(&newEntryID)
	if err != nil {
		return fmt.Errorf("insert reversal entry: %w", err)
	}

	// Invert debits and credits line by line.
	if _, err := tx.Exec(ctx, `
		INSERT INTO journal_lines (entry_id, account_id, debit, credit)
		SELECT $1, account_id, credit, debit
		FROM journal_lines WHERE entry_id = $2
	`, newEntryID, entryID); err != nil {
		return fmt.Errorf("insert inverted lines: %w", err)
	}

	return nil
}

// FindEntryByReference returns the most recent non-reversal entry id posted
// for the given business reference, or ErrNotFound.
func (l *Ledger) FindEntryByReference(ctx context.Context, stationID int, refType, refID string) (int, error) {
	var id int
	err := l.pool.QueryRow(ctx, `
		SELECT id FROM journal_entries
		WHERE station_id = $1 AND reference_type = $2 AND reference_id = $3 AND reversed_entry_id IS NULL
		ORDER BY id DESC
		LIMIT 1
	`, stationID, refType, refID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("journal entry for %s %s: %w", refType, refID, ErrNotFound)
		}
		return 0, fmt.Errorf("lookup entry by reference: %w", err)
	}
	return id, nil
}
