// models/models.go
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Role роль пользователя в системе
type Role int

const (
	RoleUnknown Role = iota
	RoleCoach
	RoleAnalyst
)

// ParseRole преобразует строковое значение роли; неизвестные значения дают RoleUnknown
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "coach":
		return RoleCoach
	case "analyst":
		return RoleAnalyst
	default:
		return RoleUnknown
	}
}

func (r Role) String() string {
	switch r {
	case RoleCoach:
		return "coach"
	case RoleAnalyst:
		return "analyst"
	default:
		return "unknown"
	}
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = ParseRole(s)
	return nil
}

// ReportStatus статус готовности отчета
type ReportStatus string

const (
	StatusNotStarted ReportStatus = "not-started"
	StatusInProgress ReportStatus = "in-progress"
	StatusCompleted  ReportStatus = "completed"
)

// Valid проверяет, что статус входит в допустимый набор
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// DefaultTeamColor цвет команды по умолчанию
const DefaultTeamColor = "#000000"

// User представляет пользователя (тренер или аналитик)
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Role         Role      `json:"role" db:"role"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// FullName возвращает имя и фамилию через пробел
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Team представляет спортивную команду
type Team struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Logo      string    `json:"logo" db:"logo"`
	Color     string    `json:"color" db:"color"`
	League    string    `json:"league" db:"league"`
	CreatedBy *int64    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Report представляет отчет аналитика по команде.
// Для пары (team, author) существует не более одного отчета.
type Report struct {
	ID                  int64           `json:"id" db:"id"`
	TeamID              int64           `json:"team" db:"team_id"`
	TeamName            string          `json:"team_name" db:"-"`
	TeamLogo            string          `json:"team_logo" db:"-"`
	AuthorID            int64           `json:"author" db:"author_id"`
	AuthorName          string          `json:"author_name" db:"-"`
	Status              ReportStatus    `json:"status" db:"status"`
	KeyPlayers          json.RawMessage `json:"key_players" db:"key_players"`
	MatchStats          json.RawMessage `json:"match_stats" db:"match_stats"`
	TacticalSummary     json.RawMessage `json:"tactical_summary" db:"tactical_summary"`
	PerformanceInsights string          `json:"performance_insights" db:"performance_insights"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// ReportFilter задает выборку отчетов.
// AuthorID == nil означает отчеты всех авторов.
type ReportFilter struct {
	AuthorID *int64
	TeamID   *int64
}

// TeamInput поля команды, которые задает клиент
type TeamInput struct {
	Name   string `json:"name" validate:"required,max=100"`
	Logo   string `json:"logo" validate:"omitempty,http_url,max=200"`
	Color  string `json:"color" validate:"omitempty,hexcolor,len=7"`
	League string `json:"league" validate:"required,max=100"`
}

// ReportInput поля отчета, которые задает клиент.
// Автор в теле запроса не принимается: он всегда берется из токена.
type ReportInput struct {
	TeamID              int64           `json:"team" validate:"required,gt=0"`
	Status              *ReportStatus   `json:"status"`
	KeyPlayers          json.RawMessage `json:"key_players"`
	MatchStats          json.RawMessage `json:"match_stats"`
	TacticalSummary     json.RawMessage `json:"tactical_summary"`
	PerformanceInsights *string         `json:"performance_insights"`
}

// ReportPatch частичное обновление отчета: команда тоже необязательна
type ReportPatch struct {
	TeamID              *int64          `json:"team" validate:"omitempty,gt=0"`
	Status              *ReportStatus   `json:"status"`
	KeyPlayers          json.RawMessage `json:"key_players"`
	MatchStats          json.RawMessage `json:"match_stats"`
	TacticalSummary     json.RawMessage `json:"tactical_summary"`
	PerformanceInsights *string         `json:"performance_insights"`
}

// Apply превращает патч в полное обновление; без team остается текущая команда
func (p ReportPatch) Apply(current *Report) ReportInput {
	in := ReportInput{
		TeamID:              current.TeamID,
		Status:              p.Status,
		KeyPlayers:          p.KeyPlayers,
		MatchStats:          p.MatchStats,
		TacticalSummary:     p.TacticalSummary,
		PerformanceInsights: p.PerformanceInsights,
	}
	if p.TeamID != nil {
		in.TeamID = *p.TeamID
	}
	return in
}
