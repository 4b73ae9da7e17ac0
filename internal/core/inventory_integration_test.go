package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustStockBounds(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	ctx := context.Background()

	// 5000 on hand, 10000 capacity.
	level, err := svc.Inventory.AdjustStock(ctx, f.TankID, dec("-1000"), "dip reading")
	require.NoError(t, err)
	assert.True(t, level.Equal(dec("4000")))

	// Below zero rejected, level unchanged.
	_, err = svc.Inventory.AdjustStock(ctx, f.TankID, dec("-4001"), "bad reading")
	assert.ErrorIs(t, err, ErrValidation)

	// Over capacity rejected.
	_, err = svc.Inventory.AdjustStock(ctx, f.TankID, dec("6001"), "too much")
	assert.ErrorIs(t, err, ErrValidation)

	tank, err := svc.Inventory.GetTank(ctx, f.TankID)
	require.NoError(t, err)
	assert.True(t, tank.CurrentStock.Equal(dec("4000")))

	// Unknown tank is NotFound, not a bounds violation.
	_, err = svc.Inventory.AdjustStock(ctx, 9999, dec("1"), "")
	assert.ErrorIs(t, err, ErrNotFound)

	// Failed adjustments leave no movement rows behind.
	movements, err := svc.Inventory.GetStockMovements(ctx, f.TankID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, MovementAdjustment, movements[0].Reason)
	assert.True(t, movements[0].Quantity.Equal(dec("-1000")))
}

func TestLowStockTanks(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	ctx := context.Background()

	low, err := svc.Inventory.LowStockTanks(ctx, f.StationID)
	require.NoError(t, err)
	assert.Empty(t, low)

	// Drop to the minimum level (500).
	_, err = svc.Inventory.AdjustStock(ctx, f.TankID, dec("-4500"), "")
	require.NoError(t, err)

	low, err = svc.Inventory.LowStockTanks(ctx, f.StationID)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, f.TankID, low[0].ID)
}

func TestReconcileTankReportsDrift(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	ctx := context.Background()

	// Opening stock of 5000 predates movement logging, so drift starts there.
	report, err := svc.Inventory.ReconcileTank(ctx, f.TankID)
	require.NoError(t, err)
	assert.True(t, report.Drift.Equal(dec("5000")))

	// Logged movements do not change the drift.
	_, err = svc.Inventory.AdjustStock(ctx, f.TankID, dec("-200"), "")
	require.NoError(t, err)

	report, err = svc.Inventory.ReconcileTank(ctx, f.TankID)
	require.NoError(t, err)
	assert.True(t, report.CurrentStock.Equal(dec("4800")))
	assert.True(t, report.MovementSum.Equal(dec("-200")))
	assert.True(t, report.Drift.Equal(dec("5000")))
}

func TestCreateTankValidation(t *testing.T) {
	pool := setupTestDB(t)
	f := seedFixture(t, pool)
	svc := newServices(pool)
	ctx := context.Background()

	_, err := svc.Inventory.CreateTank(ctx, f.StationID, f.ProductID, "", dec("1000"), dec("0"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Inventory.CreateTank(ctx, f.StationID, f.ProductID, "TK-2", dec("0"), dec("0"))
	assert.ErrorIs(t, err, ErrValidation)

	tank, err := svc.Inventory.CreateTank(ctx, f.StationID, f.ProductID, "TK-2", dec("8000"), dec("800"))
	require.NoError(t, err)
	assert.True(t, tank.CurrentStock.IsZero())
	assert.Equal(t, TankActive, tank.Status)
	assert.Equal(t, "P92", tank.ProductCode)
}
