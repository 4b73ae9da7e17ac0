package web

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"station-backoffice/internal/core"
)

func ctxWithUser(u *core.User) context.Context {
	return context.WithValue(context.Background(), userContextKey, u)
}

func TestRequireStationAccess(t *testing.T) {
	station := 1
	admin := &core.User{Role: core.RoleAdmin}
	operator := &core.User{Role: core.RoleOperator, StationID: &station}

	assert.NoError(t, requireStationAccess(ctxWithUser(admin), 2))
	assert.NoError(t, requireStationAccess(ctxWithUser(operator), 1))
	assert.ErrorIs(t, requireStationAccess(ctxWithUser(operator), 2), core.ErrUnauthorized)
	assert.ErrorIs(t, requireStationAccess(context.Background(), 1), core.ErrUnauthorized)
}

func TestStationForResolution(t *testing.T) {
	station := 3
	manager := &core.User{Role: core.RoleManager, StationID: &station}
	admin := &core.User{Role: core.RoleAdmin}

	r := httptest.NewRequest("GET", "/api/sales", nil)

	// Manager defaults to their own station and cannot pick another.
	id, err := stationFor(r.WithContext(ctxWithUser(manager)), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	_, err = stationFor(r.WithContext(ctxWithUser(manager)), 4)
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	// Admin must name a station explicitly.
	id, err = stationFor(r.WithContext(ctxWithUser(admin)), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	_, err = stationFor(r.WithContext(ctxWithUser(admin)), 0)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestTokenRoundTrip(t *testing.T) {
	s := &Server{jwtSecret: []byte("test-secret")}
	station := 5
	user := &core.User{ID: 42, Username: "mgr", Role: core.RoleManager, StationID: &station}

	raw, err := s.issueToken(user)
	require.NoError(t, err)

	claims, err := s.parseToken(raw)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, core.RoleManager, claims.Role)
	require.NotNil(t, claims.StationID)
	assert.Equal(t, 5, *claims.StationID)

	// A token signed with another secret is rejected.
	other := &Server{jwtSecret: []byte("wrong")}
	_, err = other.parseToken(raw)
	assert.Error(t, err)
}
