package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/untibullet/scouting-reports/internal/models"
)

const teamColumns = `id, name, logo, color, league, created_by, created_at, updated_at`

func scanTeam(row pgx.Row) (*models.Team, error) {
	var t models.Team
	err := row.Scan(&t.ID, &t.Name, &t.Logo, &t.Color, &t.League, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func teamColor(color string) string {
	if color == "" {
		return models.DefaultTeamColor
	}
	return color
}

// CreateTeam создает команду от имени пользователя createdBy
func (r *Repository) CreateTeam(ctx context.Context, in models.TeamInput, createdBy int64) (*models.Team, error) {
	query := `
        INSERT INTO teams (name, logo, color, league, created_by)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + teamColumns

	team, err := scanTeam(r.pool.QueryRow(ctx, query, in.Name, in.Logo, teamColor(in.Color), in.League, createdBy))
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	return team, nil
}

// GetTeam получает команду по ID
func (r *Repository) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	team, err := scanTeam(r.pool.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// ListTeams возвращает все команды, новые первыми
func (r *Repository) ListTeams(ctx context.Context) ([]models.Team, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+teamColumns+` FROM teams ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, *team)
	}

	return teams, rows.Err()
}

// UpdateTeam обновляет данные команды; created_by не меняется
func (r *Repository) UpdateTeam(ctx context.Context, id int64, in models.TeamInput) (*models.Team, error) {
	query := `
        UPDATE teams
        SET name = $2, logo = $3, color = $4, league = $5, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + teamColumns

	team, err := scanTeam(r.pool.QueryRow(ctx, query, id, in.Name, in.Logo, teamColor(in.Color), in.League))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to update team: %w", err)
	}
	return team, nil
}

// DeleteTeam удаляет команду вместе со всеми ее отчетами
func (r *Repository) DeleteTeam(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListLeagues возвращает список лиг, в которых есть команды
func (r *Repository) ListLeagues(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT league FROM teams ORDER BY league`)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}

	leagues, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect leagues: %w", err)
	}
	if leagues == nil {
		leagues = []string{}
	}

	return leagues, nil
}
