package domain

import "time"

// User represents a row of the t_users table.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserStats is a point-in-time summary of the user table.
type UserStats struct {
	Total    int64
	Active   int64
	Inactive int64
	NewToday int64
}
