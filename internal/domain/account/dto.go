package account

import (
	"time"

	"github.com/google/uuid"
)

// Response represents an account in API responses
type Response struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Paid      bool       `json:"paid"`
	RefererID *uuid.UUID `json:"referer_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToResponse converts an account to its API representation
func (a *Account) ToResponse() *Response {
	resp := &Response{
		ID:        a.ID,
		Email:     a.Email,
		Paid:      a.Paid,
		CreatedAt: a.CreatedAt,
	}

	if a.RefererID.Valid {
		id := a.RefererID.UUID
		resp.RefererID = &id
	}

	return resp
}
