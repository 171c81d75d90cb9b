package models

// User mirrors the platform's user entity; read-only for this service.
type User struct {
	ID       int    `db:"id" json:"id"`
	Email    string `db:"email" json:"email"`
	FullName string `db:"full_name" json:"full_name"`
}
