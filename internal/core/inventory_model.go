package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type TankStatus string

const (
	TankActive      TankStatus = "active"
	TankMaintenance TankStatus = "maintenance"
	TankInactive    TankStatus = "inactive"
)

// Tank is a physical storage vessel at a station holding exactly one product.
// current_stock is the source of truth for stock on hand; stock_movements is
// an append-only audit projection.
type Tank struct {
	ID           int             `json:"id"`
	StationID    int             `json:"station_id"`
	ProductID    int             `json:"product_id"`
	ProductCode  string          `json:"product_code"`
	ProductName  string          `json:"product_name"`
	Code         string          `json:"code"`
	Capacity     decimal.Decimal `json:"capacity"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	MinimumLevel decimal.Decimal `json:"minimum_level"`
	Status       TankStatus      `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

type MovementReason string

const (
	MovementSale            MovementReason = "sale"
	MovementPurchaseReceipt MovementReason = "purchase_receipt"
	MovementAdjustment      MovementReason = "adjustment"
)

type StockMovement struct {
	ID           int             `json:"id"`
	TankID       int             `json:"tank_id"`
	Quantity     decimal.Decimal `json:"quantity"` // signed delta in tank units
	Reason       MovementReason  `json:"reason"`
	Reference    *string         `json:"reference,omitempty"`
	MovementDate string          `json:"movement_date"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TankReconciliation reports drift between the stored stock level and the sum
// of audit movements for one tank.
type TankReconciliation struct {
	TankID       int             `json:"tank_id"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	MovementSum  decimal.Decimal `json:"movement_sum"`
	Drift        decimal.Decimal `json:"drift"` // current_stock - movement_sum
}
