package entities

import "time"

// Project is the denormalized view of the owning project that the NDA workflow
// needs: ownership for authorization and display fields for document rendering.
type Project struct {
	ID          string    `json:"id" db:"id"`
	OwnerUserID string    `json:"owner_user_id" db:"owner_user_id"`
	OwnerName   string    `json:"owner_name" db:"owner_name"`
	OwnerEmail  string    `json:"owner_email" db:"owner_email"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
