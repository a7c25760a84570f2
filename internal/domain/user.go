package domain

import "time"

// UserRole distinguishes requesters, agents and administrators.
type UserRole string

const (
	UserRoleUser  UserRole = "USER"
	UserRoleAgent UserRole = "AGENT"
	UserRoleAdmin UserRole = "ADMIN"
)

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is anyone who files, works on or administers tickets.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	Status       UserStatus
	// QueueIDs are the service desk queues an agent works.
	QueueIDs  []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports administrative capability.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}
