package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerCommitAndBalances(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	ctx := context.Background()

	entry := Entry{
		StationID: f.StationID,
		Narration: "Opening cash sale",
		EntryDate: "2026-08-30",
		Lines: []EntryLine{
			{AccountCode: "1000", IsDebit: true, Amount: dec("250.00")},
			{AccountCode: "4000", IsDebit: false, Amount: dec("250.00")},
		},
	}
	require.NoError(t, svc.Ledger.Commit(ctx, entry))

	balances, err := svc.Ledger.GetBalances(ctx, f.StationID)
	require.NoError(t, err)

	byCode := map[string]AccountBalance{}
	for _, b := range balances {
		byCode[b.Code] = b
	}
	assert.True(t, byCode["1000"].Balance.Equal(dec("250.00")))
	assert.True(t, byCode["4000"].Balance.Equal(dec("-250.00")))
}

func TestLedgerRejectsUnbalancedEntry(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)

	entry := Entry{
		StationID: f.StationID,
		Narration: "Does not balance",
		EntryDate: "2026-08-30",
		Lines: []EntryLine{
			{AccountCode: "1000", IsDebit: true, Amount: dec("100.00")},
			{AccountCode: "4000", IsDebit: false, Amount: dec("90.00")},
		},
	}
	err := svc.Ledger.Commit(context.Background(), entry)
	assert.ErrorIs(t, err, ErrValidation)

	var count int
	require.NoError(t, pool.QueryRow(context.Background(),
		"SELECT count(*) FROM journal_entries").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestLedgerIdempotencyKey(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	ctx := context.Background()

	entry := Entry{
		StationID:      f.StationID,
		Narration:      "Once only",
		EntryDate:      "2026-08-30",
		IdempotencyKey: "test-key-1",
		Lines: []EntryLine{
			{AccountCode: "1000", IsDebit: true, Amount: dec("10.00")},
			{AccountCode: "4000", IsDebit: false, Amount: dec("10.00")},
		},
	}
	require.NoError(t, svc.Ledger.Commit(ctx, entry))
	assert.ErrorIs(t, svc.Ledger.Commit(ctx, entry), ErrConflict)

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM journal_entries").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestLedgerReverse(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	ctx := context.Background()

	entry := Entry{
		StationID:     f.StationID,
		Narration:     "To be reversed",
		EntryDate:     "2026-08-30",
		ReferenceType: "SALE",
		ReferenceID:   "INV-X-1",
		Lines: []EntryLine{
			{AccountCode: "1000", IsDebit: true, Amount: dec("75.00")},
			{AccountCode: "4000", IsDebit: false, Amount: dec("75.00")},
		},
	}
	require.NoError(t, svc.Ledger.Commit(ctx, entry))

	entryID, err := svc.Ledger.FindEntryByReference(ctx, f.StationID, "SALE", "INV-X-1")
	require.NoError(t, err)

	require.NoError(t, svc.Ledger.Reverse(ctx, entryID, "test"))

	// Trial balance is flat again.
	balances, err := svc.Ledger.GetBalances(ctx, f.StationID)
	require.NoError(t, err)
	for _, b := range balances {
		assert.True(t, b.Balance.IsZero(), "account %s should be zero, got %s", b.Code, b.Balance)
	}

	// A second reversal of the same entry is rejected.
	assert.ErrorIs(t, svc.Ledger.Reverse(ctx, entryID, "again"), ErrConflict)
}

func TestLedgerValidateResolvesAccounts(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)

	entry := Entry{
		StationID: f.StationID,
		Narration: "Unknown account",
		EntryDate: "2026-08-30",
		Lines: []EntryLine{
			{AccountCode: "9999", IsDebit: true, Amount: dec("10.00")},
			{AccountCode: "4000", IsDebit: false, Amount: dec("10.00")},
		},
	}
	assert.ErrorIs(t, svc.Ledger.Validate(context.Background(), entry), ErrNotFound)
}
