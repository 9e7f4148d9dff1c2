package model

import (
	"time"

	"github.com/google/uuid"
)

type Specialty struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Specialist is the professional profile behind a user account. Templates,
// slots and appointments reference the profile id, not the user id, so
// ownership checks have to resolve one from the other.
type Specialist struct {
	ID        int64     `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (s *Specialist) FullName() string {
	return s.FirstName + " " + s.LastName
}
