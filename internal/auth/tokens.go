// Package auth выпускает и проверяет JWT и хеширует пароли.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/untibullet/scouting-reports/internal/models"
)

// Типы токенов
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims содержимое токена
type Claims struct {
	Role string `json:"role"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// UserID возвращает ID пользователя из subject
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// TokenPair пара токенов, отдаваемая клиенту
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clockwork.Clock
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration, clock clockwork.Clock) *TokenManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      clock,
	}
}

// IssuePair выпускает access и refresh токены для пользователя
func (m *TokenManager) IssuePair(user *models.User) (TokenPair, error) {
	access, err := m.issue(user.ID, user.Role, TokenTypeAccess, m.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.issue(user.ID, user.Role, TokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh выпускает новый access токен по refresh токену
func (m *TokenManager) Refresh(refreshToken string) (string, error) {
	claims, err := m.parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	userID, err := claims.UserID()
	if err != nil {
		return "", err
	}
	return m.issue(userID, models.ParseRole(claims.Role), TokenTypeAccess, m.accessTTL)
}

// ParseAccess проверяет access токен; refresh токен здесь не принимается
func (m *TokenManager) ParseAccess(token string) (*Claims, error) {
	return m.parse(token, TokenTypeAccess)
}

func (m *TokenManager) issue(userID int64, role models.Role, tokenType string, ttl time.Duration) (string, error) {
	now := m.clock.Now()
	claims := Claims{
		Role: role.String(),
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) parse(token, tokenType string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
