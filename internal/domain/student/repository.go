package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository defines student data access. Every lookup is scoped to the
// owning account so one parent can never act on another parent's child.
type Repository interface {
	GetByIDForAccount(ctx context.Context, id, accountID uuid.UUID) (*Student, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Student, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new student repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByIDForAccount(ctx context.Context, id, accountID uuid.UUID) (*Student, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var s Student
	err := r.db.GetContext(ctx, &s, `
		SELECT id, account_id, full_name, created_at
		FROM students
		WHERE id = $1 AND account_id = $2
	`, id, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("student repository get: %w", err)
	}

	return &s, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]Student, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	students := make([]Student, 0)
	err := r.db.SelectContext(ctx, &students, `
		SELECT id, account_id, full_name, created_at
		FROM students
		WHERE account_id = $1
		ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("student repository list: %w", err)
	}

	return students, nil
}
