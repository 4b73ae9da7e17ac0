package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	Asset     AccountType = "asset"
	Liability AccountType = "liability"
	Equity    AccountType = "equity"
	Revenue   AccountType = "revenue"
	ExpenseType AccountType = "expense"
)

type Account struct {
	ID   int         `json:"id"`
	Code string      `json:"code"`
	Name string      `json:"name"`
	Type AccountType `json:"type"`
}

// Station is a physical fuel-station location — the tenant/partition key
// for tanks, parties, transactions, and journal entries.
type Station struct {
	ID        int       `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID           int             `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Unit         string          `json:"unit"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

type PricePoint struct {
	ID            int             `json:"id"`
	ProductID     int             `json:"product_id"`
	Price         decimal.Decimal `json:"price"`
	EffectiveFrom time.Time       `json:"effective_from"`
	ChangedBy     *string         `json:"changed_by,omitempty"`
}

type Customer struct {
	ID          int             `json:"id"`
	StationID   int             `json:"station_id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Phone       *string         `json:"phone,omitempty"`
	Email       *string         `json:"email,omitempty"`
	Outstanding decimal.Decimal `json:"outstanding_amount"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Supplier struct {
	ID          int             `json:"id"`
	StationID   int             `json:"station_id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Phone       *string         `json:"phone,omitempty"`
	Email       *string         `json:"email,omitempty"`
	Outstanding decimal.Decimal `json:"outstanding_amount"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

type JournalEntry struct {
	ID              int           `json:"id"`
	StationID       int           `json:"station_id"`
	Narration       string        `json:"narration"`
	EntryDate       string        `json:"entry_date"`
	ReferenceType   *string       `json:"reference_type,omitempty"`
	ReferenceID     *string       `json:"reference_id,omitempty"`
	IdempotencyKey  *string       `json:"idempotency_key,omitempty"`
	ReversedEntryID *int          `json:"reversed_entry_id,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	Lines           []JournalLine `json:"lines"`
}

type JournalLine struct {
	ID        int             `json:"id"`
	EntryID   int             `json:"entry_id"`
	AccountID int             `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// EntryLine is a single debit or credit line of an entry to be posted.
// Amount is always positive; IsDebit selects the side.
type EntryLine struct {
	AccountCode string          `json:"account_code"`
	IsDebit     bool            `json:"is_debit"`
	Amount      decimal.Decimal `json:"amount"`
}

// Entry is a journal entry as submitted to the Ledger for posting.
// The Ledger refuses to persist an Entry whose lines do not balance.
type Entry struct {
	StationID      int         `json:"station_id"`
	Narration      string      `json:"narration"`
	EntryDate      string      `json:"entry_date"` // YYYY-MM-DD
	ReferenceType  string      `json:"reference_type,omitempty"`
	ReferenceID    string      `json:"reference_id,omitempty"`
	IdempotencyKey string      `json:"idempotency_key,omitempty"`
	Lines          []EntryLine `json:"lines"`
}

type User struct {
	ID           int       `json:"id"`
	StationID    *int      `json:"station_id,omitempty"` // nil for unrestricted admins
	Username     string    `json:"username"`
	Email        *string   `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Roles. Admin is unrestricted; manager and operator are bound to their station.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleOperator = "operator"
)

// CanAccessStation reports whether the user may act on the given station.
// Admins may act anywhere; everyone else only on their own station.
func (u *User) CanAccessStation(stationID int) bool {
	if u.Role == RoleAdmin {
		return true
	}
	return u.StationID != nil && *u.StationID == stationID
}

// CanDelete reports whether the user's role permits destructive operations
// (deleting sales transactions and purchase orders).
func (u *User) CanDelete() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}
