package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/untibullet/scouting-reports/internal/access"
	"github.com/untibullet/scouting-reports/internal/events"
	"github.com/untibullet/scouting-reports/internal/models"
	"github.com/untibullet/scouting-reports/internal/repository"
	"go.uber.org/zap"
)

const (
	msgReportExists  = "You have already created a report for this team."
	msgListingFailed = "Error fetching reports. Please try again."
)

type statusRequest struct {
	Status models.ReportStatus `json:"status" validate:"required"`
}

// permissionError переводит отказ политики доступа в ответ 403
func permissionError(err error) error {
	var denied *access.DeniedError
	if errors.As(err, &denied) {
		return newAPIError(http.StatusForbidden, ErrCodePermissionDenied, denied.Message)
	}
	return newAPIError(http.StatusForbidden, ErrCodePermissionDenied, err.Error())
}

// jsonKind проверяет, что значение поля является JSON указанного вида ('[' или '{')
func jsonKind(raw json.RawMessage, open byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == open && json.Valid(trimmed)
}

// validateReportFields проверяет статус и форму JSON полей отчета
func validateReportFields(in *models.ReportInput) error {
	if in.Status != nil && !in.Status.Valid() {
		return newAPIError(http.StatusBadRequest, ErrCodeValidation,
			fmt.Sprintf("status: \"%s\" is not a valid choice.", *in.Status))
	}
	if in.KeyPlayers != nil && !jsonKind(in.KeyPlayers, '[') {
		return newAPIError(http.StatusBadRequest, ErrCodeValidation, "key_players: Expected a list of items.")
	}
	if in.MatchStats != nil && !jsonKind(in.MatchStats, '{') {
		return newAPIError(http.StatusBadRequest, ErrCodeValidation, "match_stats: Expected a dictionary of items.")
	}
	if in.TacticalSummary != nil && !jsonKind(in.TacticalSummary, '{') {
		return newAPIError(http.StatusBadRequest, ErrCodeValidation, "tactical_summary: Expected a dictionary of items.")
	}
	return nil
}

// bindReportInput разбирает и проверяет тело запроса с отчетом
func bindReportInput(c echo.Context) (models.ReportInput, error) {
	var in models.ReportInput
	if err := bindAndValidate(c, &in); err != nil {
		return in, err
	}
	if err := validateReportFields(&in); err != nil {
		return in, err
	}
	return in, nil
}

// writeError переводит ошибки записи отчета в ответы API
func (h *Handler) writeError(c echo.Context, op string, teamID int64, err error) error {
	switch {
	case errors.Is(err, repository.ErrAlreadyExists):
		h.metrics.ObserveReport(op, "duplicate")
		return newAPIError(http.StatusBadRequest, ErrCodeReportExists, msgReportExists)
	case errors.Is(err, repository.ErrInvalidReference):
		h.metrics.ObserveReport(op, "invalid")
		return newAPIError(http.StatusBadRequest, ErrCodeValidation,
			fmt.Sprintf("team: Invalid pk \"%d\" - object does not exist.", teamID))
	case errors.Is(err, repository.ErrInvalidInput):
		h.metrics.ObserveReport(op, "invalid")
		return newAPIError(http.StatusBadRequest, ErrCodeValidation, "invalid report data")
	case errors.Is(err, repository.ErrNotFound):
		return errNotFound()
	}
	h.metrics.ObserveReport(op, "error")
	h.logger.Error("ошибка записи отчета", zap.String("operation", op), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to save report"))
}

func (h *Handler) publish(c echo.Context, eventType string, rep *models.Report) {
	event := events.NewReportEvent(h.clock, eventType, rep.ID, rep.TeamID, rep.AuthorID, string(rep.Status))
	if err := h.publisher.Publish(c.Request().Context(), event); err != nil {
		h.logger.Warn("не удалось опубликовать событие отчета",
			zap.String("event_type", eventType), zap.Int64("report_id", rep.ID), zap.Error(err))
	}
}

// listReports отдает отчеты в области видимости пользователя.
// Любой сбой скрывается за общим сообщением и пишется в лог.
func (h *Handler) listReports(c echo.Context, handler string, user *models.User, teamID *int64) error {
	reports, err := h.store.ListReports(c.Request().Context(), access.ReportScope(user, teamID))
	if err != nil {
		h.logger.Error(handler+": ошибка получения отчетов", zap.Error(err), zap.Int64("user_id", user.ID))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, msgListingFailed))
	}

	h.logger.Info(handler+": отчеты получены",
		zap.Int64("user_id", user.ID), zap.Stringer("role", user.Role), zap.Int("count", len(reports)))
	return c.JSON(http.StatusOK, reports)
}

// ListReports возвращает видимые пользователю отчеты: тренеру все, остальным только свои.
// Параметр team ограничивает выборку одной командой.
func (h *Handler) ListReports(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var teamID *int64
	if raw := c.QueryParam("team"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return newAPIError(http.StatusBadRequest, ErrCodeValidation, "team: A valid integer is required.")
		}
		teamID = &id
	}

	return h.listReports(c, "ListReports", user, teamID)
}

// ListTeamReports возвращает видимые пользователю отчеты по команде
func (h *Handler) ListTeamReports(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	teamID, err := pathID(c, "team_id")
	if err != nil {
		return err
	}

	return h.listReports(c, "ListTeamReports", user, &teamID)
}

// GetMyTeamReport возвращает отчет текущего пользователя по команде
func (h *Handler) GetMyTeamReport(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	teamID, err := pathID(c, "team_id")
	if err != nil {
		return err
	}

	authorID := user.ID
	reports, err := h.store.ListReports(c.Request().Context(), models.ReportFilter{AuthorID: &authorID, TeamID: &teamID})
	if err != nil {
		h.logger.Error("GetMyTeamReport: ошибка получения отчета", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, msgListingFailed))
	}
	if len(reports) == 0 {
		return errNotFound()
	}

	return c.JSON(http.StatusOK, reports[0])
}

// CreateReport создает отчет. Создавать отчеты могут только аналитики,
// автором всегда становится текущий пользователь.
func (h *Handler) CreateReport(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	h.logger.Info("CreateReport: начало обработки запроса", zap.Int64("user_id", user.ID))

	if err := access.CheckReportPermission(user, http.MethodPost); err != nil {
		h.logger.Warn("CreateReport: недостаточно прав", zap.Int64("user_id", user.ID), zap.Stringer("role", user.Role))
		h.metrics.ObserveReport("create", "forbidden")
		return permissionError(err)
	}

	in, err := bindReportInput(c)
	if err != nil {
		h.logger.Warn("CreateReport: невалидный запрос", zap.Error(err))
		return err
	}

	rep, err := h.store.CreateReport(c.Request().Context(), user.ID, in)
	if err != nil {
		h.logger.Warn("CreateReport: отчет не создан",
			zap.Int64("user_id", user.ID), zap.Int64("team_id", in.TeamID), zap.Error(err))
		return h.writeError(c, "create", in.TeamID, err)
	}

	h.metrics.ObserveReport("create", "ok")
	h.publish(c, events.ReportCreated, rep)

	h.logger.Info("CreateReport: отчет создан", zap.Int64("report_id", rep.ID), zap.Int64("team_id", rep.TeamID))
	return c.JSON(http.StatusCreated, rep)
}

// GetReport возвращает отчет, если он виден пользователю
func (h *Handler) GetReport(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	rep, err := h.store.GetReport(c.Request().Context(), id, access.ReportScope(user, nil))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNotFound()
		}
		h.logger.Error("GetReport: ошибка получения отчета", zap.Error(err), zap.Int64("report_id", id))
		return c.JSON(http.StatusInternalServerError, newErrorResponse(ErrCodeInternal, "failed to get report"))
	}

	return c.JSON(http.StatusOK, rep)
}

// loadReportForWrite проверяет права на изменение и загружает отчет.
// Порядок проверок: роль (403), видимость (404), авторство (403).
func (h *Handler) loadReportForWrite(c echo.Context, user *models.User) (*models.Report, error) {
	method := c.Request().Method
	if err := access.CheckReportPermission(user, method); err != nil {
		return nil, permissionError(err)
	}

	id, err := pathID(c, "id")
	if err != nil {
		return nil, err
	}

	rep, err := h.store.GetReport(c.Request().Context(), id, access.ReportScope(user, nil))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errNotFound()
		}
		h.logger.Error("ошибка загрузки отчета", zap.Error(err), zap.Int64("report_id", id))
		return nil, newAPIError(http.StatusInternalServerError, ErrCodeInternal, "failed to get report")
	}

	if err := access.CheckReportObjectPermission(user, method, rep); err != nil {
		return nil, permissionError(err)
	}

	return rep, nil
}

// UpdateReport обновляет отчет; менять его может только автор
func (h *Handler) UpdateReport(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	existing, err := h.loadReportForWrite(c, user)
	if err != nil {
		h.logger.Warn("UpdateReport: отказ", zap.Int64("user_id", user.ID), zap.Error(err))
		return err
	}

	in, err := bindReportInput(c)
	if err != nil {
		return err
	}

	return h.saveReport(c, "UpdateReport", existing, in)
}

// PatchReport частично обновляет отчет: непереданные поля, включая команду, не меняются
func (h *Handler) PatchReport(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	existing, err := h.loadReportForWrite(c, user)
	if err != nil {
		h.logger.Warn("PatchReport: отказ", zap.Int64("user_id", user.ID), zap.Error(err))
		return err
	}

	var patch models.ReportPatch
	if err := bindAndValidate(c, &patch); err != nil {
		return err
	}
	in := patch.Apply(existing)
	if err := validateReportFields(&in); err != nil {
		return err
	}

	return h.saveReport(c, "PatchReport", existing, in)
}

func (h *Handler) saveReport(c echo.Context, handler string, existing *models.Report, in models.ReportInput) error {
	rep, err := h.store.UpdateReport(c.Request().Context(), existing.ID, in)
	if err != nil {
		return h.writeError(c, "update", in.TeamID, err)
	}

	h.metrics.ObserveReport("update", "ok")
	h.publish(c, events.ReportUpdated, rep)

	h.logger.Info(handler+": отчет обновлен", zap.Int64("report_id", rep.ID))
	return c.JSON(http.StatusOK, rep)
}

// UpdateReportStatus меняет только статус отчета
func (h *Handler) UpdateReportStatus(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	existing, err := h.loadReportForWrite(c, user)
	if err != nil {
		return err
	}

	var req statusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if !req.Status.Valid() {
		return newAPIError(http.StatusBadRequest, ErrCodeValidation,
			fmt.Sprintf("status: \"%s\" is not a valid choice.", req.Status))
	}

	rep, err := h.store.UpdateReportStatus(c.Request().Context(), existing.ID, req.Status)
	if err != nil {
		return h.writeError(c, "status", existing.TeamID, err)
	}

	h.metrics.ObserveReport("status", "ok")
	h.publish(c, events.ReportUpdated, rep)

	h.logger.Info("UpdateReportStatus: статус обновлен", zap.Int64("report_id", rep.ID), zap.String("status", string(rep.Status)))
	return c.JSON(http.StatusOK, rep)
}

// DeleteReport удаляет отчет; удалить его может только автор
func (h *Handler) DeleteReport(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	existing, err := h.loadReportForWrite(c, user)
	if err != nil {
		h.logger.Warn("DeleteReport: отказ", zap.Int64("user_id", user.ID), zap.Error(err))
		return err
	}

	if err := h.store.DeleteReport(c.Request().Context(), existing.ID); err != nil {
		return h.writeError(c, "delete", existing.TeamID, err)
	}

	h.metrics.ObserveReport("delete", "ok")
	h.publish(c, events.ReportDeleted, existing)

	h.logger.Info("DeleteReport: отчет удален", zap.Int64("report_id", existing.ID))
	return c.NoContent(http.StatusNoContent)
}
