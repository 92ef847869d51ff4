// Package access содержит правила доступа к отчетам в зависимости от роли пользователя.
package access

import (
	"errors"
	"net/http"

	"github.com/untibullet/scouting-reports/internal/models"
)

// ErrPermissionDenied базовая ошибка отказа в доступе (HTTP 403)
var ErrPermissionDenied = errors.New("permission denied")

// DeniedError отказ в доступе с сообщением для клиента
type DeniedError struct {
	Message string
}

func (e *DeniedError) Error() string { return e.Message }

func (e *DeniedError) Is(target error) bool { return target == ErrPermissionDenied }

const (
	msgDefault     = "You do not have permission to perform this action."
	msgAnalystOnly = "Only analysts can create reports."
)

func deny(msg string) error {
	return &DeniedError{Message: msg}
}

// IsSafeMethod сообщает, является ли метод только читающим
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// CanViewAllReports сообщает, видит ли роль отчеты всех авторов
func CanViewAllReports(role models.Role) bool {
	switch role {
	case models.RoleCoach:
		return true
	case models.RoleAnalyst, models.RoleUnknown:
		return false
	}
	return false
}

// ReportScope возвращает фильтр видимости отчетов для пользователя.
// Тренер видит все отчеты, остальные только свои.
func ReportScope(user *models.User, teamID *int64) models.ReportFilter {
	filter := models.ReportFilter{TeamID: teamID}
	if !CanViewAllReports(user.Role) {
		id := user.ID
		filter.AuthorID = &id
	}
	return filter
}

// CheckReportPermission проверяет доступ к коллекции отчетов.
// Читать может любой аутентифицированный пользователь, изменять только аналитик.
func CheckReportPermission(user *models.User, method string) error {
	if IsSafeMethod(method) {
		return nil
	}
	switch user.Role {
	case models.RoleAnalyst:
		return nil
	case models.RoleCoach, models.RoleUnknown:
		if method == http.MethodPost {
			return deny(msgAnalystOnly)
		}
		return deny(msgDefault)
	}
	return deny(msgDefault)
}

// CheckReportObjectPermission проверяет доступ к конкретному отчету.
// Изменять и удалять отчет может только его автор-аналитик.
func CheckReportObjectPermission(user *models.User, method string, report *models.Report) error {
	if IsSafeMethod(method) {
		return nil
	}
	if err := CheckReportPermission(user, method); err != nil {
		return err
	}
	if report.AuthorID != user.ID {
		return deny(msgDefault)
	}
	return nil
}
