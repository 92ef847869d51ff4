// repository/repository.go
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("resource already exists")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidReference = errors.New("referenced resource does not exist")
)

// Коды ошибок PostgreSQL
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// mapConstraintError переводит нарушения ограничений БД в ошибки репозитория.
// Возвращает nil, если err не является нарушением ограничения.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return ErrAlreadyExists
	case pgForeignKeyViolation:
		return ErrInvalidReference
	case pgCheckViolation:
		return ErrInvalidInput
	}
	return nil
}
