package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardSummary(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	dashboard := NewDashboardService(pool)
	ctx := context.Background()

	price := dec("1.00")

	// One sale today, one well in the past.
	_, err := svc.Sales.CreateTransaction(ctx, SaleInput{
		StationID:     f.StationID,
		PaymentMethod: PaymentCash,
		Items:         []SaleItemInput{{ProductID: f.ProductID, Quantity: dec("120"), UnitPrice: &price}},
	})
	require.NoError(t, err)

	old := time.Now().AddDate(0, -2, 0)
	_, err = svc.Sales.CreateTransaction(ctx, SaleInput{
		StationID:     f.StationID,
		PaymentMethod: PaymentCash,
		Date:          &old,
		Items:         []SaleItemInput{{ProductID: f.ProductID, Quantity: dec("999"), UnitPrice: &price}},
	})
	require.NoError(t, err)

	// A pending order for the procurement widget.
	_, err = svc.Orders.CreatePO(ctx, POInput{
		StationID:  f.StationID,
		SupplierID: f.SupplierID,
		Items:      []POItemInput{{ProductID: f.ProductID, Quantity: dec("1000"), UnitPrice: dec("0.90")}},
	})
	require.NoError(t, err)

	summary, err := dashboard.GetSummary(ctx, f.StationID)
	require.NoError(t, err)

	// Only the sale dated today counts for today.
	assert.Equal(t, 1, summary.Today.Count)
	assert.True(t, summary.Today.Total.Equal(dec("120.00")), "got %s", summary.Today.Total)

	assert.True(t, summary.PendingPOTotal.Equal(dec("900.00")))
	require.Len(t, summary.RecentOrders, 1)

	require.Len(t, summary.TodayByProduct, 1)
	assert.Equal(t, "P92", summary.TodayByProduct[0].ProductCode)
	assert.True(t, summary.TodayByProduct[0].Quantity.Equal(dec("120")))

	// Seven buckets, last one is today with today's total.
	require.Len(t, summary.WeeklyTrend, 7)
	assert.True(t, summary.WeeklyTrend[6].Total.Equal(dec("120.00")))
	for _, day := range summary.WeeklyTrend[:6] {
		assert.True(t, day.Total.IsZero(), "day %s should be zero", day.Day)
	}
}

func TestDashboardUnknownStation(t *testing.T) {
	pool := setupTestDB(t)
	seedFixture(t, pool)
	dashboard := NewDashboardService(pool)

	_, err := dashboard.GetSummary(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}
