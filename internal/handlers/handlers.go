package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/untibullet/scouting-reports/internal/auth"
	"github.com/untibullet/scouting-reports/internal/events"
	"github.com/untibullet/scouting-reports/internal/metrics"
	"github.com/untibullet/scouting-reports/internal/models"
	"github.com/untibullet/scouting-reports/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Коды ошибок для API
const (
	ErrCodeUnauthenticated  = "UNAUTHENTICATED"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeReportExists     = "REPORT_EXISTS"
	ErrCodeUserExists       = "USER_EXISTS"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeThrottled        = "THROTTLED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// Store описывает, что обработчикам нужно от слоя данных
type Store interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error

	CreateTeam(ctx context.Context, in models.TeamInput, createdBy int64) (*models.Team, error)
	GetTeam(ctx context.Context, id int64) (*models.Team, error)
	ListTeams(ctx context.Context) ([]models.Team, error)
	UpdateTeam(ctx context.Context, id int64, in models.TeamInput) (*models.Team, error)
	DeleteTeam(ctx context.Context, id int64) error
	ListLeagues(ctx context.Context) ([]string, error)

	CreateReport(ctx context.Context, authorID int64, in models.ReportInput) (*models.Report, error)
	GetReport(ctx context.Context, id int64, scope models.ReportFilter) (*models.Report, error)
	ListReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
	UpdateReport(ctx context.Context, id int64, in models.ReportInput) (*models.Report, error)
	UpdateReportStatus(ctx context.Context, id int64, status models.ReportStatus) (*models.Report, error)
	DeleteReport(ctx context.Context, id int64) error
}

var _ Store = (*repository.Repository)(nil)

type Handler struct {
	store     Store
	tokens    *auth.TokenManager
	publisher events.Publisher
	metrics   *metrics.Metrics
	clock     clockwork.Clock
	logger    *zap.Logger
}

// New создает новый экземпляр обработчика
func New(store Store, tokens *auth.TokenManager, publisher events.Publisher, m *metrics.Metrics, clock clockwork.Clock, logger *zap.Logger) *Handler {
	return &Handler{
		store:     store,
		tokens:    tokens,
		publisher: publisher,
		metrics:   m,
		clock:     clock,
		logger:    logger,
	}
}

// ErrorResponse представляет структуру ошибки API
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// newErrorResponse создает стандартный ответ с ошибкой
func newErrorResponse(code, message string) ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	return resp
}

// apiError ошибка, которую ErrorHandler отдает клиенту как есть
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Message }

func (e *apiError) StatusCode() int { return e.Status }

func newAPIError(status int, code, message string) *apiError {
	return &apiError{Status: status, Code: code, Message: message}
}

func errNotFound() *apiError {
	return newAPIError(http.StatusNotFound, ErrCodeNotFound, "Not found.")
}

// ErrorHandler приводит все ошибки echo к формату ErrorResponse
func (h *Handler) ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	code := ErrCodeInternal
	message := "internal server error"

	var apiErr *apiError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
		status, code, message = apiErr.Status, apiErr.Code, apiErr.Message
	case errors.As(err, &httpErr):
		status = httpErr.Code
		code = codeForStatus(status)
		message = fmt.Sprint(httpErr.Message)
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("unhandled error",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err))
	}

	var respErr error
	if c.Request().Method == http.MethodHead {
		respErr = c.NoContent(status)
	} else {
		respErr = c.JSON(status, newErrorResponse(code, message))
	}
	if respErr != nil {
		h.logger.Error("failed to write error response", zap.Error(respErr))
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return ErrCodeUnauthenticated
	case http.StatusForbidden:
		return ErrCodePermissionDenied
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusMethodNotAllowed:
		return ErrCodeMethodNotAllowed
	case http.StatusTooManyRequests:
		return ErrCodeThrottled
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return ErrCodeValidation
	}
	return ErrCodeInternal
}

// RequestValidator реализует echo.Validator на go-playground/validator
type RequestValidator struct {
	validate *validator.Validate
}

func NewValidator() *RequestValidator {
	v := validator.New()
	// В сообщениях об ошибках используем имена полей из json
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{validate: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.validate.Struct(i)
}

// bindAndValidate разбирает тело запроса и проверяет его
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return newAPIError(http.StatusBadRequest, ErrCodeValidation, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return newAPIError(http.StatusBadRequest, ErrCodeValidation, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+": This field is required.")
		case "max":
			parts = append(parts, fmt.Sprintf("%s: Ensure this field has no more than %s characters.", fe.Field(), fe.Param()))
		case "min":
			parts = append(parts, fmt.Sprintf("%s: Ensure this field has at least %s characters.", fe.Field(), fe.Param()))
		case "email":
			parts = append(parts, fe.Field()+": Enter a valid email address.")
		case "url", "http_url":
			parts = append(parts, fe.Field()+": Enter a valid URL.")
		case "hexcolor", "len":
			parts = append(parts, fe.Field()+": Enter a hex color like #1A2B3C.")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s: Must be one of: %s.", fe.Field(), fe.Param()))
		case "eqfield":
			parts = append(parts, fe.Field()+": Passwords do not match.")
		default:
			parts = append(parts, fmt.Sprintf("%s: Invalid value.", fe.Field()))
		}
	}
	return strings.Join(parts, " ")
}

// currentUser возвращает аутентифицированного пользователя запроса
func currentUser(c echo.Context) (*models.User, error) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		return nil, newAPIError(http.StatusUnauthorized, ErrCodeUnauthenticated, "Authentication credentials were not provided.")
	}
	return user, nil
}

// pathID разбирает числовой параметр пути; нечисловое значение дает 404
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errNotFound()
	}
	return id, nil
}

// RegisterRoutes настраивает echo и регистрирует все маршруты API
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()
	e.HTTPErrorHandler = h.ErrorHandler

	// Маршруты доступны и со слешем на конце, и без
	e.Pre(middleware.RemoveTrailingSlash())

	authn := auth.Middleware(h.tokens, h.store, h.logger)

	// Ограничение подбора паролей: лимит на IP клиента
	throttle := middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{Rate: rate.Limit(1), Burst: 30, ExpiresIn: 5 * time.Minute},
	))

	// Auth
	e.POST("/auth/register", h.Register, throttle)
	e.POST("/auth/login", h.Login, throttle)
	e.POST("/auth/token/refresh", h.RefreshToken, throttle)
	e.GET("/auth/user", h.GetCurrentUser, authn)
	e.DELETE("/auth/user", h.DeleteCurrentUser, authn)

	// Teams
	e.GET("/teams", h.ListTeams, authn)
	e.POST("/teams", h.CreateTeam, authn)
	e.GET("/teams/:id", h.GetTeam, authn)
	e.PUT("/teams/:id", h.UpdateTeam, authn)
	e.DELETE("/teams/:id", h.DeleteTeam, authn)
	e.GET("/leagues", h.ListLeagues, authn)

	// Reports
	e.GET("/reports", h.ListReports, authn)
	e.POST("/reports", h.CreateReport, authn)
	e.GET("/reports/:id", h.GetReport, authn)
	e.PUT("/reports/:id", h.UpdateReport, authn)
	e.PATCH("/reports/:id", h.PatchReport, authn)
	e.DELETE("/reports/:id", h.DeleteReport, authn)
	e.PUT("/reports/:id/status", h.UpdateReportStatus, authn)
	e.GET("/reports/team/:team_id", h.ListTeamReports, authn)
	e.GET("/reports/my-report/team/:team_id", h.GetMyTeamReport, authn)
}
