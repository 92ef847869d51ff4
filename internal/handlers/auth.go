package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/untibullet/scouting-reports/internal/auth"
	"github.com/untibullet/scouting-reports/internal/models"
	"github.com/untibullet/scouting-reports/internal/repository"
	"go.uber.org/zap"
)

type registerRequest struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	FirstName       string `json:"first_name" validate:"required,max=150"`
	LastName        string `json:"last_name" validate:"required,max=150"`
	Role            string `json:"role" validate:"required,oneof=coach analyst"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// authResponse пользователь вместе с выпущенными токенами
type authResponse struct {
	User   *models.User   `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

// Register регистрирует тренера или аналитика
func (h *Handler) Register(c echo.Context) error {
	h.logger.Info("Register: начало обработки запроса")

	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		h.logger.Warn("Register: невалидный запрос", zap.Error(err))
		return err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("Register: ошибка хеширования пароля", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to register user"))
	}

	user, err := h.store.CreateUser(c.Request().Context(), &models.User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.ParseRole(req.Role),
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			h.logger.Warn("Register: пользователь уже существует", zap.String("email", req.Email))
			return c.JSON(http.StatusBadRequest, newErrorResponse(ErrCodeUserExists, "A user with that email already exists."))
		}
		h.logger.Error("Register: ошибка создания пользователя", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to register user"))
	}

	tokens, err := h.tokens.IssuePair(user)
	if err != nil {
		h.logger.Error("Register: ошибка выпуска токенов", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to issue tokens"))
	}

	h.logger.Info("Register: пользователь зарегистрирован", zap.Int64("user_id", user.ID), zap.Stringer("role", user.Role))
	return c.JSON(http.StatusCreated, authResponse{User: user, Tokens: tokens})
}

// Login выдает токены по email и паролю
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.store.GetUserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.logger.Warn("Login: пользователь не найден", zap.String("email", req.Email))
			return c.JSON(http.StatusUnauthorized, newErrorResponse(ErrCodeUnauthenticated, auth.ErrInvalidCredentials.Error()))
		}
		h.logger.Error("Login: ошибка получения пользователя", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to log in"))
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		h.logger.Warn("Login: неверный пароль", zap.Int64("user_id", user.ID))
		return c.JSON(http.StatusUnauthorized, newErrorResponse(ErrCodeUnauthenticated, auth.ErrInvalidCredentials.Error()))
	}

	tokens, err := h.tokens.IssuePair(user)
	if err != nil {
		h.logger.Error("Login: ошибка выпуска токенов", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to issue tokens"))
	}

	h.logger.Info("Login: успешный вход", zap.Int64("user_id", user.ID))
	return c.JSON(http.StatusOK, authResponse{User: user, Tokens: tokens})
}

// RefreshToken выпускает новый access токен
func (h *Handler) RefreshToken(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	access, err := h.tokens.Refresh(req.Refresh)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, newErrorResponse(ErrCodeUnauthenticated, "Token is invalid or expired"))
	}

	return c.JSON(http.StatusOK, map[string]string{"access": access})
}

// GetCurrentUser возвращает текущего пользователя
func (h *Handler) GetCurrentUser(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteCurrentUser удаляет аккаунт текущего пользователя вместе с его отчетами
func (h *Handler) DeleteCurrentUser(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	if err := h.store.DeleteUser(c.Request().Context(), user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNotFound()
		}
		h.logger.Error("DeleteCurrentUser: ошибка удаления пользователя", zap.Error(err), zap.Int64("user_id", user.ID))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to delete user"))
	}

	h.logger.Info("DeleteCurrentUser: пользователь удален", zap.Int64("user_id", user.ID))
	return c.NoContent(http.StatusNoContent)
}
