package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Number sequence kinds.
const (
	SeqInvoice       = "invoice"
	SeqPurchaseOrder = "purchase_order"
)

// NumberService hands out gapless, per-station document numbers for sales
// invoices and purchase orders. Numbers are assigned inside the caller's
// transaction so a rolled-back write never consumes one.
type NumberService interface {
	// NextNumberTx increments the (station, kind) sequence and returns the
	// formatted number, e.g. INV-ST01-00042.
	NextNumberTx(ctx context.Context, tx pgx.Tx, stationID int, kind string) (string, error)
}

type numberService struct {
	pool *pgxpool.Pool
}

func NewNumberService(pool *pgxpool.Pool) NumberService {
	return &numberService{pool: pool}
}

func (s *numberService) NextNumberTx(ctx context.Context, tx pgx.Tx, stationID int, kind string) (string, error) {
	var stationCode string
	if err := tx.QueryRow(ctx, "SELECT code FROM stations WHERE id = $1", stationID).Scan(&stationCode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("station %d: %w", stationID, ErrNotFound)
		}
		return "", fmt.Errorf("resolve station %d: %w", stationID, err)
	}

	// Concurrency-safe gapless sequence: the upsert takes a row lock, so two
	// concurrent writers serialize and each sees a distinct number.
	var lastNumber int64
	err := tx.QueryRow(ctx, `
		INSERT INTO number_sequences (station_id, kind, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (station_id, kind)
		DO UPDATE SET last_number = number_sequences.last_number + 1
		RETURNING last_number
	`, stationID, kind).Scan(&lastNumber)
	if err != nil {
		return "", fmt.Errorf("advance %s sequence for station %d: %w", kind, stationID, err)
	}

	prefix := "DOC"
	switch kind {
	case SeqInvoice:
		prefix = "INV"
	case SeqPurchaseOrder:
		prefix = "PO"
	}
	return fmt.Sprintf("%s-%s-%05d", prefix, stationCode, lastNumber), nil
}
