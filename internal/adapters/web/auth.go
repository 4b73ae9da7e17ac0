package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"station-backoffice/internal/core"
)

const (
	authCookieName = "station_session"
	tokenLifetime  = 12 * time.Hour
)

type contextKey string

const userContextKey contextKey = "user"

type authClaims struct {
	UserID    int    `json:"uid"`
	StationID *int   `json:"station_id,omitempty"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(user *core.User) (string, error) {
	claims := authClaims{
		UserID:    user.ID,
		StationID: user.StationID,
		Role:      user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *Server) parseToken(raw string) (*authClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &authClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*authClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		badRequest(w, "username and password are required")
		return
	}

	user, err := s.app.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		return
	}

	token, err := s.issueToken(user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(tokenLifetime),
	})
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	writeJSON(w, http.StatusOK, user)
}

// requireAuth authenticates the request from the session cookie (or a bearer
// token) and loads the user into the context. Role and station checks happen
// per handler against this server-side identity, never against client input.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := ""
		if cookie, err := r.Cookie(authCookieName); err == nil {
			raw = cookie.Value
		} else if auth := r.Header.Get("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
			raw = auth[7:]
		}
		if raw == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return
		}

		claims, err := s.parseToken(raw)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired session"})
			return
		}

		user, err := s.app.Users.GetByID(r.Context(), claims.UserID)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired session"})
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFrom(ctx context.Context) *core.User {
	user, _ := ctx.Value(userContextKey).(*core.User)
	return user
}

// requireStationAccess rejects callers acting outside their own station.
func requireStationAccess(ctx context.Context, stationID int) error {
	user := userFrom(ctx)
	if user == nil || !user.CanAccessStation(stationID) {
		return fmt.Errorf("station %d: %w", stationID, core.ErrUnauthorized)
	}
	return nil
}

// stationFor resolves the effective station for a request: explicit query
// parameter if the caller may access it, otherwise the caller's own station.
func stationFor(r *http.Request, explicit int) (int, error) {
	user := userFrom(r.Context())
	if user == nil {
		return 0, core.ErrUnauthorized
	}
	if explicit != 0 {
		if !user.CanAccessStation(explicit) {
			return 0, fmt.Errorf("station %d: %w", explicit, core.ErrUnauthorized)
		}
		return explicit, nil
	}
	if user.StationID != nil {
		return *user.StationID, nil
	}
	return 0, fmt.Errorf("stationId is required for admin users: %w", core.ErrValidation)
}
