package auth

import (
	"testing"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	s := NewJWTService("secret", time.Hour)
	tok, err := s.GenerateToken(models.Identity{Email: " Admin@Desk.io", Role: models.RoleAdmin, Active: true})
	require.NoError(t, err)

	id, err := s.ValidateToken(tok)
	require.NoError(t, err)
	require.Equal(t, &models.Identity{Email: "admin@desk.io", Role: models.RoleAdmin, Active: true}, id)
	require.True(t, id.IsAdmin())
}

func TestJWTService_Rejects(t *testing.T) {
	s := NewJWTService("secret", time.Hour)

	other, err := NewJWTService("other", time.Hour).GenerateToken(models.Identity{Email: "u@x.io", Active: true})
	require.NoError(t, err)
	_, err = s.ValidateToken(other)
	require.ErrorIs(t, err, models.ErrUnauthenticated)

	_, err = s.ValidateToken("garbage")
	require.ErrorIs(t, err, models.ErrUnauthenticated)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Email:            "u@x.io",
		Active:           true,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = s.ValidateToken(signed)
	require.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestJWTService_UnknownRoleIsUser(t *testing.T) {
	s := NewJWTService("secret", time.Hour)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Email: "u@x.io", Role: "superuser", Active: true}).SignedString([]byte("secret"))
	require.NoError(t, err)

	id, err := s.ValidateToken(tok)
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, id.Role)
}
