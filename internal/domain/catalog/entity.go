package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Course groups classes of one subject track. Level orders courses within
// the track; price is the nominal per-class price.
type Course struct {
	ID         uuid.UUID `db:"id"`
	Title      string    `db:"title"`
	Level      int       `db:"level"`
	IsTrial    bool      `db:"is_trial"`
	IsRegular  bool      `db:"is_regular"`
	PriceCents int64     `db:"price_cents"`
	CreatedAt  time.Time `db:"created_at"`
}

// Class is a scheduled instance of a course
type Class struct {
	ID        uuid.UUID `db:"id"`
	CourseID  uuid.UUID `db:"course_id"`
	StartsAt  time.Time `db:"starts_at"`
	EndsAt    time.Time `db:"ends_at"`
	CreatedAt time.Time `db:"created_at"`
}

// ClassWithCourse is the join row enrollment pricing works on
type ClassWithCourse struct {
	ClassID    uuid.UUID `db:"class_id"`
	CourseID   uuid.UUID `db:"course_id"`
	Title      string    `db:"title"`
	Level      int       `db:"level"`
	IsTrial    bool      `db:"is_trial"`
	IsRegular  bool      `db:"is_regular"`
	PriceCents int64     `db:"price_cents"`
	StartsAt   time.Time `db:"starts_at"`
	EndsAt     time.Time `db:"ends_at"`
}
