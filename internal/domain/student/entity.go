package student

import (
	"time"

	"github.com/google/uuid"
)

// Student represents a child attached to a parent account
type Student struct {
	ID        uuid.UUID `db:"id"`
	AccountID uuid.UUID `db:"account_id"`
	FullName  string    `db:"full_name"`
	CreatedAt time.Time `db:"created_at"`
}
