package catalog

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

// Repository defines catalog data access
type Repository interface {
	// GetClassesWithCourses resolves the given class ids. Every id must
	// resolve; a missing id fails the whole lookup with ErrClassNotFound.
	GetClassesWithCourses(ctx context.Context, ids []uuid.UUID) ([]ClassWithCourse, error)
	GetClassWithCourse(ctx context.Context, id uuid.UUID) (*ClassWithCourse, error)
	ListUpcoming(ctx context.Context, limit int) ([]ClassWithCourse, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new catalog repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const classWithCourseColumns = `
	cl.id AS class_id,
	co.id AS course_id,
	co.title,
	co.level,
	co.is_trial,
	co.is_regular,
	co.price_cents,
	cl.starts_at,
	cl.ends_at
`

func (r *repository) GetClassesWithCourses(ctx context.Context, ids []uuid.UUID) ([]ClassWithCourse, error) {
	// Repeated ids collapse to one row, so resolve against the unique set
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	if len(unique) == 0 {
		return nil, ErrClassNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query, args, err := sqlx.In(`
		SELECT `+classWithCourseColumns+`
		FROM classes cl
		JOIN courses co ON co.id = cl.course_id
		WHERE cl.id IN (?)
	`, unique)
	if err != nil {
		return nil, fmt.Errorf("catalog repository resolve classes: %w", err)
	}

	rows := make([]ClassWithCourse, 0, len(unique))
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("catalog repository resolve classes: %w", err)
	}

	if len(rows) != len(unique) {
		return nil, ErrClassNotFound
	}

	return rows, nil
}

func (r *repository) GetClassWithCourse(ctx context.Context, id uuid.UUID) (*ClassWithCourse, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var row ClassWithCourse
	err := r.db.GetContext(ctx, &row, `
		SELECT `+classWithCourseColumns+`
		FROM classes cl
		JOIN courses co ON co.id = cl.course_id
		WHERE cl.id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("catalog repository get class: %w", err)
	}

	return &row, nil
}

func (r *repository) ListUpcoming(ctx context.Context, limit int) ([]ClassWithCourse, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}

	rows := make([]ClassWithCourse, 0)
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+classWithCourseColumns+`
		FROM classes cl
		JOIN courses co ON co.id = cl.course_id
		WHERE cl.starts_at > now()
		ORDER BY cl.starts_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog repository list upcoming: %w", err)
	}

	return rows, nil
}
