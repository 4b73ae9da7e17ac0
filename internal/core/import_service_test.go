package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportTemplates(t *testing.T) {
	svc := &ImportService{}

	headers, err := svc.Template(ImportSales)
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Customer Name", "Product Name", "Quantity", "Unit Price", "Payment Method", "Invoice Number"}, headers)

	for _, typ := range []string{ImportExpenses, ImportPayments, ImportPurchases} {
		headers, err := svc.Template(typ)
		require.NoError(t, err)
		assert.NotEmpty(t, headers)
	}

	_, err = svc.Template("inventory")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseImportDate(t *testing.T) {
	d, err := parseImportDate(" 2026-08-15 ")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-15", d.Format("2006-01-02"))

	_, err = parseImportDate("15/08/2026")
	assert.Error(t, err)
	_, err = parseImportDate("")
	assert.Error(t, err)
}

func TestParseImportDecimal(t *testing.T) {
	d, err := parseImportDecimal("quantity", "120.5")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec("120.5")))

	_, err = parseImportDecimal("quantity", "12O.5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity")
}

func TestUserStationAccess(t *testing.T) {
	station := 2
	admin := &User{Role: RoleAdmin}
	manager := &User{Role: RoleManager, StationID: &station}
	operator := &User{Role: RoleOperator, StationID: &station}

	assert.True(t, admin.CanAccessStation(1))
	assert.True(t, admin.CanAccessStation(2))
	assert.True(t, manager.CanAccessStation(2))
	assert.False(t, manager.CanAccessStation(1))
	assert.False(t, operator.CanAccessStation(3))

	assert.True(t, admin.CanDelete())
	assert.True(t, manager.CanDelete())
	assert.False(t, operator.CanDelete())
}
