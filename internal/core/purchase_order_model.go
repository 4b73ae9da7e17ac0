package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type POStatus string

// Purchase-order lifecycle. Transitions are monotonic:
// pending -> approved -> delivered, or pending -> cancelled.
const (
	POPending   POStatus = "pending"
	POApproved  POStatus = "approved"
	PODelivered POStatus = "delivered"
	POCancelled POStatus = "cancelled"
)

type PurchaseOrder struct {
	ID           int                 `json:"id"`
	StationID    int                 `json:"station_id"`
	SupplierID   int                 `json:"supplier_id"`
	SupplierName string              `json:"supplier_name"`
	OrderNumber  string              `json:"order_number"`
	Status       POStatus            `json:"status"`
	TotalAmount  decimal.Decimal     `json:"total_amount"`
	OrderDate    string              `json:"order_date"`
	ApprovedAt   *time.Time          `json:"approved_at,omitempty"`
	DeliveredAt  *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt  *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	Items        []PurchaseOrderItem `json:"items"`
}

type PurchaseOrderItem struct {
	ID          int             `json:"id"`
	LineNumber  int             `json:"line_number"`
	ProductID   int             `json:"product_id"`
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type POItemInput struct {
	ProductID int             `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type POInput struct {
	StationID  int           `json:"station_id"`
	SupplierID int           `json:"supplier_id"`
	OrderDate  string        `json:"order_date,omitempty"` // YYYY-MM-DD, defaults to today
	Items      []POItemInput `json:"items"`
}
