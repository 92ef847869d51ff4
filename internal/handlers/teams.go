package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/untibullet/scouting-reports/internal/models"
	"github.com/untibullet/scouting-reports/internal/repository"
	"go.uber.org/zap"
)

// ListTeams возвращает все команды
func (h *Handler) ListTeams(c echo.Context) error {
	teams, err := h.store.ListTeams(c.Request().Context())
	if err != nil {
		h.logger.Error("ListTeams: ошибка получения команд", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to list teams"))
	}
	return c.JSON(http.StatusOK, teams)
}

// CreateTeam создает команду; создателем становится текущий пользователь
func (h *Handler) CreateTeam(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req models.TeamInput
	if err := bindAndValidate(c, &req); err != nil {
		h.logger.Warn("CreateTeam: невалидный запрос", zap.Error(err))
		return err
	}

	team, err := h.store.CreateTeam(c.Request().Context(), req, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			return newAPIError(http.StatusBadRequest, ErrCodeValidation, "invalid team data")
		}
		h.logger.Error("CreateTeam: ошибка создания команды", zap.Error(err), zap.String("name", req.Name))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to create team"))
	}

	h.logger.Info("CreateTeam: команда создана", zap.Int64("team_id", team.ID), zap.Int64("created_by", user.ID))
	return c.JSON(http.StatusCreated, team)
}

// GetTeam получает команду по ID
func (h *Handler) GetTeam(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	team, err := h.store.GetTeam(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNotFound()
		}
		h.logger.Error("GetTeam: ошибка получения команды", zap.Error(err), zap.Int64("team_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to get team"))
	}

	return c.JSON(http.StatusOK, team)
}

// UpdateTeam обновляет команду
func (h *Handler) UpdateTeam(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req models.TeamInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	team, err := h.store.UpdateTeam(c.Request().Context(), id, req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNotFound()
		}
		if errors.Is(err, repository.ErrInvalidInput) {
			return newAPIError(http.StatusBadRequest, ErrCodeValidation, "invalid team data")
		}
		h.logger.Error("UpdateTeam: ошибка обновления команды", zap.Error(err), zap.Int64("team_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to update team"))
	}

	h.logger.Info("UpdateTeam: команда обновлена", zap.Int64("team_id", id))
	return c.JSON(http.StatusOK, team)
}

// DeleteTeam удаляет команду и все ее отчеты
func (h *Handler) DeleteTeam(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.store.DeleteTeam(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNotFound()
		}
		h.logger.Error("DeleteTeam: ошибка удаления команды", zap.Error(err), zap.Int64("team_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to delete team"))
	}

	h.logger.Info("DeleteTeam: команда удалена", zap.Int64("team_id", id))
	return c.NoContent(http.StatusNoContent)
}

// ListLeagues возвращает лиги, в которых есть команды
func (h *Handler) ListLeagues(c echo.Context) error {
	leagues, err := h.store.ListLeagues(c.Request().Context())
	if err != nil {
		h.logger.Error("ListLeagues: ошибка получения лиг", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to list leagues"))
	}
	return c.JSON(http.StatusOK, leagues)
}
