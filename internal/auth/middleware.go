package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/untibullet/scouting-reports/internal/models"
	"go.uber.org/zap"
)

const userContextKey = "auth.user"

// UserLoader загружает пользователя по ID из токена
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Middleware требует валидный access токен в заголовке Authorization: Bearer <token>.
// Роль берется из сохраненного пользователя, а не из токена.
func Middleware(tokens *TokenManager, users UserLoader, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := extractToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication credentials were not provided.")
			}

			claims, err := tokens.ParseAccess(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Given token not valid for any token type")
			}

			userID, err := claims.UserID()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Given token not valid for any token type")
			}

			user, err := users.GetUserByID(c.Request().Context(), userID)
			if err != nil {
				logger.Warn("auth: пользователь из токена не найден", zap.Int64("user_id", userID), zap.Error(err))
				return echo.NewHTTPError(http.StatusUnauthorized, "User not found")
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser возвращает пользователя, установленного Middleware
func CurrentUser(c echo.Context) (*models.User, bool) {
	user, ok := c.Get(userContextKey).(*models.User)
	return user, ok && user != nil
}

func extractToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
