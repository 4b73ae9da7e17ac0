package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Normalize cleans up caller input before validation: trims codes and dates
// and defaults a missing entry date to today.
func (e *Entry) Normalize() {
	e.Narration = strings.TrimSpace(e.Narration)
	e.EntryDate = strings.TrimSpace(e.EntryDate)
	if e.EntryDate == "" {
		e.EntryDate = time.Now().Format("2006-01-02")
	}
	for i := range e.Lines {
		e.Lines[i].AccountCode = strings.TrimSpace(e.Lines[i].AccountCode)
	}
}

// Validate enforces the double-entry rules on the entry before it may be
// persisted: a station, a narration, a valid date, at least two lines with
// strictly positive amounts, and sum(debit) == sum(credit).
func (e *Entry) Validate() error {
	if e.StationID == 0 {
		return fmt.Errorf("entry must reference a station: %w", ErrValidation)
	}
	if e.Narration == "" {
		return fmt.Errorf("entry must have a narration: %w", ErrValidation)
	}
	if _, err := time.Parse("2006-01-02", e.EntryDate); err != nil {
		return fmt.Errorf("invalid entry date %q: %w", e.EntryDate, ErrValidation)
	}

	if len(e.Lines) < 2 {
		return fmt.Errorf("entry must have at least 2 lines: %w", ErrValidation)
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero

	for _, line := range e.Lines {
		if line.AccountCode == "" {
			return fmt.Errorf("entry line missing account code: %w", ErrValidation)
		}
		if !line.Amount.IsPositive() {
			return fmt.Errorf("amount must be > 0 for account %s: %w", line.AccountCode, ErrValidation)
		}
		if line.IsDebit {
			totalDebit = totalDebit.Add(line.Amount)
		} else {
			totalCredit = totalCredit.Add(line.Amount)
		}
	}

	if !totalDebit.Equal(totalCredit) {
		return fmt.Errorf("entry does not balance: debits %s != credits %s: %w",
			totalDebit.StringFixed(2), totalCredit.StringFixed(2), ErrValidation)
	}

	return nil
}
