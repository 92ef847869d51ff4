package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/untibullet/scouting-reports/internal/models"
)

// Отчет всегда выбирается вместе с названием и логотипом команды и именем автора
const reportSelect = `
    SELECT r.id, r.team_id, t.name, t.logo, r.author_id, u.first_name, u.last_name,
           r.status, r.key_players, r.match_stats, r.tactical_summary,
           r.performance_insights, r.created_at, r.updated_at
    FROM reports r
    JOIN teams t ON t.id = r.team_id
    JOIN users u ON u.id = r.author_id
`

func scanReport(row pgx.Row) (*models.Report, error) {
	var rep models.Report
	var firstName, lastName, status string
	var keyPlayers, matchStats, tacticalSummary []byte

	err := row.Scan(
		&rep.ID, &rep.TeamID, &rep.TeamName, &rep.TeamLogo, &rep.AuthorID, &firstName, &lastName,
		&status, &keyPlayers, &matchStats, &tacticalSummary,
		&rep.PerformanceInsights, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	author := models.User{FirstName: firstName, LastName: lastName}
	rep.AuthorName = author.FullName()
	rep.Status = models.ReportStatus(status)
	rep.KeyPlayers = json.RawMessage(keyPlayers)
	rep.MatchStats = json.RawMessage(matchStats)
	rep.TacticalSummary = json.RawMessage(tacticalSummary)

	return &rep, nil
}

// nullableJSON возвращает nil для пустого значения, чтобы COALESCE оставил текущее
func nullableJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func withDefaultJSON(raw json.RawMessage, def string) []byte {
	if len(raw) == 0 {
		return []byte(def)
	}
	return []byte(raw)
}

func statusParam(status *models.ReportStatus) *string {
	if status == nil {
		return nil
	}
	s := string(*status)
	return &s
}

// CreateReport создает отчет автора authorID по команде.
// Единственность пары (team, author) обеспечивает ограничение reports_team_author_key:
// его нарушение возвращается как ErrAlreadyExists, несуществующая команда как ErrInvalidReference.
func (r *Repository) CreateReport(ctx context.Context, authorID int64, in models.ReportInput) (*models.Report, error) {
	status := models.StatusNotStarted
	if in.Status != nil {
		status = *in.Status
	}
	insights := ""
	if in.PerformanceInsights != nil {
		insights = *in.PerformanceInsights
	}

	query := `
        INSERT INTO reports (team_id, author_id, status, key_players, match_stats, tactical_summary, performance_insights)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `

	var id int64
	err := r.pool.QueryRow(ctx, query,
		in.TeamID, authorID, string(status),
		withDefaultJSON(in.KeyPlayers, "[]"),
		withDefaultJSON(in.MatchStats, "{}"),
		withDefaultJSON(in.TacticalSummary, "{}"),
		insights,
	).Scan(&id)
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	return r.GetReport(ctx, id, models.ReportFilter{})
}

// GetReport получает отчет по ID в пределах области видимости scope.
// Отчет вне области видимости считается ненайденным.
func (r *Repository) GetReport(ctx context.Context, id int64, scope models.ReportFilter) (*models.Report, error) {
	query := reportSelect + `
    WHERE r.id = $1
      AND ($2::bigint IS NULL OR r.author_id = $2)
      AND ($3::bigint IS NULL OR r.team_id = $3)
    `

	rep, err := scanReport(r.pool.QueryRow(ctx, query, id, scope.AuthorID, scope.TeamID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return rep, nil
}

// ListReports возвращает отчеты по фильтру, последние обновленные первыми
func (r *Repository) ListReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	query := reportSelect + `
    WHERE ($1::bigint IS NULL OR r.author_id = $1)
      AND ($2::bigint IS NULL OR r.team_id = $2)
    ORDER BY r.updated_at DESC, r.id DESC
    `

	rows, err := r.pool.Query(ctx, query, filter.AuthorID, filter.TeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]models.Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	return reports, nil
}

// UpdateReport обновляет отчет; незаданные необязательные поля сохраняют текущие значения.
// Автор отчета не меняется.
func (r *Repository) UpdateReport(ctx context.Context, id int64, in models.ReportInput) (*models.Report, error) {
	query := `
        UPDATE reports
        SET team_id              = $2,
            status               = COALESCE($3, status),
            key_players          = COALESCE($4, key_players),
            match_stats          = COALESCE($5, match_stats),
            tactical_summary     = COALESCE($6, tactical_summary),
            performance_insights = COALESCE($7, performance_insights),
            updated_at           = NOW()
        WHERE id = $1
        RETURNING id
    `

	var updatedID int64
	err := r.pool.QueryRow(ctx, query,
		id, in.TeamID, statusParam(in.Status),
		nullableJSON(in.KeyPlayers),
		nullableJSON(in.MatchStats),
		nullableJSON(in.TacticalSummary),
		in.PerformanceInsights,
	).Scan(&updatedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to update report: %w", err)
	}

	return r.GetReport(ctx, updatedID, models.ReportFilter{})
}

// UpdateReportStatus меняет только статус отчета
func (r *Repository) UpdateReportStatus(ctx context.Context, id int64, status models.ReportStatus) (*models.Report, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE reports SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to update report status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return r.GetReport(ctx, id, models.ReportFilter{})
}

// DeleteReport удаляет отчет
func (r *Repository) DeleteReport(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
