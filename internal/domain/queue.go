package domain

import "time"

// Queue is a service desk ticket collection.
type Queue struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category classifies tickets within a queue.
type Category struct {
	ID        string
	QueueID   string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
