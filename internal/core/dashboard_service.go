package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// DashboardService aggregates the station overview: sales for the current
// day and month, receivables, pending procurement, product mix, and a
// seven-day trend. "Today" is the calendar day in the station's configured
// time zone, not the server's.
type DashboardService struct {
	pool *pgxpool.Pool
}

func NewDashboardService(pool *pgxpool.Pool) *DashboardService {
	return &DashboardService{pool: pool}
}

type SalesAggregate struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type ProductSales struct {
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

type DailySales struct {
	Day   string          `json:"day"` // YYYY-MM-DD, station-local
	Total decimal.Decimal `json:"total"`
}

type DashboardSummary struct {
	StationID           int             `json:"station_id"`
	Today               SalesAggregate  `json:"today"`
	MonthToDate         SalesAggregate  `json:"month_to_date"`
	CustomerOutstanding decimal.Decimal `json:"customer_outstanding"`
	PendingPOTotal      decimal.Decimal `json:"pending_po_total"`
	RecentOrders        []PurchaseOrder `json:"recent_orders"`
	TodayByProduct      []ProductSales  `json:"today_by_product"`
	WeeklyTrend         []DailySales    `json:"weekly_trend"`
	GeneratedAt         time.Time       `json:"generated_at"`
}

// dayBounds returns the UTC instants bounding the calendar day that contains
// now in loc, plus the first instant of that day's month.
func dayBounds(now time.Time, loc *time.Location) (dayStart, dayEnd, monthStart time.Time) {
	local := now.In(loc)
	dayStart = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	dayEnd = dayStart.AddDate(0, 0, 1)
	monthStart = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return dayStart.UTC(), dayEnd.UTC(), monthStart.UTC()
}

func (s *DashboardService) stationTimezone(ctx context.Context, stationID int) (*time.Location, error) {
	var tz string
	err := s.pool.QueryRow(ctx, "SELECT timezone FROM stations WHERE id = $1", stationID).Scan(&tz)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("station %d: %w", stationID, ErrNotFound)
		}
		return nil, fmt.Errorf("resolve station %d timezone: %w", stationID, err)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("station %d has invalid timezone %q: %w", stationID, tz, err)
	}
	return loc, nil
}

func (s *DashboardService) GetSummary(ctx context.Context, stationID int) (*DashboardSummary, error) {
	loc, err := s.stationTimezone(ctx, stationID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	dayStart, dayEnd, monthStart := dayBounds(now, loc)

	summary := &DashboardSummary{StationID: stationID, GeneratedAt: now}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM sales_transactions
		WHERE station_id = $1 AND transaction_date >= $2 AND transaction_date < $3
	`, stationID, dayStart, dayEnd).Scan(&summary.Today.Count, &summary.Today.Total)
	if err != nil {
		return nil, fmt.Errorf("aggregate today's sales: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM sales_transactions
		WHERE station_id = $1 AND transaction_date >= $2 AND transaction_date < $3
	`, stationID, monthStart, dayEnd).Scan(&summary.MonthToDate.Count, &summary.MonthToDate.Total)
	if err != nil {
		return nil, fmt.Errorf("aggregate month-to-date sales: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(outstanding_amount), 0) FROM customers WHERE station_id = $1
	`, stationID).Scan(&summary.CustomerOutstanding)
	if err != nil {
		return nil, fmt.Errorf("sum customer outstanding: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0) FROM purchase_orders
		WHERE station_id = $1 AND status = 'pending'
	`, stationID).Scan(&summary.PendingPOTotal)
	if err != nil {
		return nil, fmt.Errorf("sum pending purchase orders: %w", err)
	}

	recent, err := s.recentOrders(ctx, stationID, 5)
	if err != nil {
		return nil, err
	}
	summary.RecentOrders = recent

	byProduct, err := s.todayByProduct(ctx, stationID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	summary.TodayByProduct = byProduct

	trend, err := s.weeklyTrend(ctx, stationID, loc, dayEnd)
	if err != nil {
		return nil, err
	}
	summary.WeeklyTrend = trend

	return summary, nil
}

func (s *DashboardService) recentOrders(ctx context.Context, stationID, limit int) ([]PurchaseOrder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT po.id, po.station_id, po.supplier_id, sp.name, po.order_number, po.status,
		       po.total_amount, po.order_date::text, po.created_at
		FROM purchase_orders po
		JOIN suppliers sp ON sp.id = po.supplier_id
		WHERE po.station_id = $1
		ORDER BY po.order_date DESC, po.id DESC
		LIMIT $2
	`, stationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent orders: %w", err)
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		if err := rows.Scan(&po.ID, &po.StationID, &po.SupplierID, &po.SupplierName, &po.OrderNumber,
			&po.Status, &po.TotalAmount, &po.OrderDate, &po.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recent order: %w", err)
		}
		orders = append(orders, po)
	}
	return orders, rows.Err()
}

func (s *DashboardService) todayByProduct(ctx context.Context, stationID int, dayStart, dayEnd time.Time) ([]ProductSales, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.code, p.name, SUM(i.quantity), SUM(i.total_price)
		FROM sales_transaction_items i
		JOIN sales_transactions st ON st.id = i.transaction_id
		JOIN products p ON p.id = i.product_id
		WHERE st.station_id = $1 AND st.transaction_date >= $2 AND st.transaction_date < $3
		GROUP BY p.code, p.name
		ORDER BY SUM(i.total_price) DESC
	`, stationID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("aggregate today's sales by product: %w", err)
	}
	defer rows.Close()

	var products []ProductSales
	for rows.Next() {
		var ps ProductSales
		if err := rows.Scan(&ps.ProductCode, &ps.ProductName, &ps.Quantity, &ps.Total); err != nil {
			return nil, fmt.Errorf("scan product sales: %w", err)
		}
		products = append(products, ps)
	}
	return products, rows.Err()
}

// weekStart returns the UTC instant of station-local midnight seven calendar
// days before dayEnd. Across a DST change that is 167 or 169 hours, so the
// arithmetic has to happen in loc, not on the UTC instant.
func weekStart(dayEnd time.Time, loc *time.Location) time.Time {
	return dayEnd.In(loc).AddDate(0, 0, -7).UTC()
}

// weeklyTrend buckets the trailing 7 station-local calendar days, ending with
// today. Days with no sales appear with a zero total.
func (s *DashboardService) weeklyTrend(ctx context.Context, stationID int, loc *time.Location, dayEnd time.Time) ([]DailySales, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT (transaction_date AT TIME ZONE $4)::date::text AS day, SUM(total_amount)
		FROM sales_transactions
		WHERE station_id = $1 AND transaction_date >= $2 AND transaction_date < $3
		GROUP BY day
	`, stationID, weekStart(dayEnd, loc), dayEnd, loc.String())
	if err != nil {
		return nil, fmt.Errorf("aggregate weekly trend: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var day string
		var total decimal.Decimal
		if err := rows.Scan(&day, &total); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		totals[day] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trend := make([]DailySales, 0, 7)
	for i := 6; i >= 0; i-- {
		d := dayEnd.In(loc).AddDate(0, 0, -(i + 1)).Format("2006-01-02")
		total, ok := totals[d]
		if !ok {
			total = decimal.Zero
		}
		trend = append(trend, DailySales{Day: d, Total: total})
	}
	return trend, nil
}
