package auth

import (
	"strings"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const issuer = "shipdesk"

// Claims выдаёт внешний сервис аутентификации; сами токены здесь только проверяются.
type Claims struct {
	Email  string `json:"email"`
	Role   string `json:"role"` // user | admin
	Active bool   `json:"active"`
	jwt.RegisteredClaims
}

type JWTService struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTService(secret string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTService{secret: []byte(secret), ttl: ttl}
}

// GenerateToken нужен для тестов и служебных утилит.
func (s *JWTService) GenerateToken(id models.Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email:  models.NormalizeEmail(id.Email),
		Role:   string(id.Role),
		Active: id.Active,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) ValidateToken(tokenString string) (*models.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(models.ErrUnauthenticated, err.Error())
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.Wrap(models.ErrUnauthenticated, "invalid token")
	}

	role := models.RoleUser
	if strings.EqualFold(claims.Role, string(models.RoleAdmin)) {
		role = models.RoleAdmin
	}
	return &models.Identity{
		Email:  models.NormalizeEmail(claims.Email),
		Role:   role,
		Active: claims.Active,
	}, nil
}
