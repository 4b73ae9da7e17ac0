package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods accepted at the pump.
const (
	PaymentCash   = "cash"
	PaymentCard   = "card"
	PaymentCredit = "credit"
)

type SalesTransaction struct {
	ID              int                    `json:"id"`
	StationID       int                    `json:"station_id"`
	CustomerID      *int                   `json:"customer_id,omitempty"`
	CustomerName    *string                `json:"customer_name,omitempty"`
	InvoiceNumber   string                 `json:"invoice_number"`
	PaymentMethod   string                 `json:"payment_method"`
	TotalAmount     decimal.Decimal        `json:"total_amount"`
	TransactionDate time.Time              `json:"transaction_date"`
	CreatedAt       time.Time              `json:"created_at"`
	Items           []SalesTransactionItem `json:"items"`
}

type SalesTransactionItem struct {
	ID          int             `json:"id"`
	LineNumber  int             `json:"line_number"`
	ProductID   int             `json:"product_id"`
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// SaleItemInput is one line of a sale as submitted by a client or importer.
// UnitPrice nil means "use the product's current price".
type SaleItemInput struct {
	ProductID int              `json:"product_id"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type SaleInput struct {
	StationID     int             `json:"station_id"`
	CustomerID    *int            `json:"customer_id,omitempty"` // nil = walk-in
	PaymentMethod string          `json:"payment_method"`
	InvoiceNumber string          `json:"invoice_number,omitempty"` // assigned when blank
	Date          *time.Time      `json:"date,omitempty"`           // defaults to now
	Items         []SaleItemInput `json:"items"`
}

// ListSalesFilter narrows ListTransactions. Zero values mean "no filter".
type ListSalesFilter struct {
	From          *time.Time
	To            *time.Time
	PaymentMethod string
	CustomerID    int
	Limit         int
}
