package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Account rule types resolved per station.
const (
	RuleCash           = "CASH"
	RuleAR             = "AR"
	RuleAP             = "AP"
	RuleFuelRevenue    = "FUEL_REVENUE"
	RuleInventory      = "INVENTORY"
	RuleExpenseDefault = "EXPENSE_DEFAULT"
)

// RuleEngine resolves configurable account mappings from the account_rules
// table. It replaces hardcoded account constants in the domain services.
type RuleEngine interface {
	ResolveAccount(ctx context.Context, stationID int, ruleType string) (string, error)
}

type ruleEngine struct {
	pool *pgxpool.Pool
}

// NewRuleEngine constructs a RuleEngine backed by the account_rules table.
func NewRuleEngine(pool *pgxpool.Pool) RuleEngine {
	return &ruleEngine{pool: pool}
}

// ResolveAccount returns the account code for (stationID, ruleType), highest
// priority first. Returns ErrNotFound when no rule exists.
func (r *ruleEngine) ResolveAccount(ctx context.Context, stationID int, ruleType string) (string, error) {
	var accountCode string
	err := r.pool.QueryRow(ctx, `
		SELECT account_code
		FROM account_rules
		WHERE station_id = $1 AND rule_type = $2
		ORDER BY priority DESC
		LIMIT 1
	`, stationID, ruleType).Scan(&accountCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("account rule %q for station %d: %w", ruleType, stationID, ErrNotFound)
		}
		return "", fmt.Errorf("resolve account rule (station=%d, rule=%q): %w", stationID, ruleType, err)
	}
	return accountCode, nil
}
