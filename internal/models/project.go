package models

import "time"

// Project mirrors the collaboration platform's project entity. This service
// only reads projects and memberships; they are owned by the platform API.
type Project struct {
	ID        int       `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Code      string    `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ProjectMember is a project membership joined with user identity, as
// returned by the chat members listing.
type ProjectMember struct {
	UserID   int    `db:"user_id" json:"id"`
	Email    string `db:"email" json:"email"`
	FullName string `db:"full_name" json:"full_name"`
	Role     string `db:"role" json:"role"`
}
