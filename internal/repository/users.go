package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/untibullet/scouting-reports/internal/models"
)

const userColumns = `id, email, first_name, last_name, role, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = models.ParseRole(role)
	return &u, nil
}

// CreateUser создает пользователя; email уникален без учета регистра
func (r *Repository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
        INSERT INTO users (email, first_name, last_name, role, password_hash)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + userColumns

	created, err := scanUser(r.pool.QueryRow(ctx, query,
		strings.ToLower(user.Email), user.FirstName, user.LastName, user.Role.String(), user.PasswordHash,
	))
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return created, nil
}

// GetUserByID получает пользователя по ID
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetUserByEmail получает пользователя по email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, strings.ToLower(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// DeleteUser удаляет пользователя.
// Отчеты пользователя удаляются каскадно, у созданных им команд created_by становится NULL.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
