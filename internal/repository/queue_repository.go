package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// QueueRepository manages queue persistence.
type QueueRepository interface {
	Create(ctx context.Context, queue *domain.Queue) error
	GetByID(ctx context.Context, id string) (*domain.Queue, error)
	ListActive(ctx context.Context) ([]domain.Queue, error)
}

type queueRepository struct {
	pool *pgxpool.Pool
}

// NewQueueRepository builds the repository.
func NewQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &queueRepository{pool: pool}
}

func (r *queueRepository) Create(ctx context.Context, queue *domain.Queue) error {
	const query = `
        INSERT INTO queues (name, description, is_active)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		queue.Name,
		queue.Description,
		queue.IsActive,
	).Scan(&queue.ID, &queue.CreatedAt, &queue.UpdatedAt)
}

func (r *queueRepository) GetByID(ctx context.Context, id string) (*domain.Queue, error) {
	const query = `
        SELECT id, name, description, is_active, created_at, updated_at
        FROM queues WHERE id=$1`
	var queue domain.Queue
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&queue.ID,
		&queue.Name,
		&queue.Description,
		&queue.IsActive,
		&queue.CreatedAt,
		&queue.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &queue, nil
}

func (r *queueRepository) ListActive(ctx context.Context) ([]domain.Queue, error) {
	const query = `
        SELECT id, name, description, is_active, created_at, updated_at
        FROM queues WHERE is_active=TRUE ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Queue{}
	for rows.Next() {
		var queue domain.Queue
		if err := rows.Scan(&queue.ID, &queue.Name, &queue.Description, &queue.IsActive, &queue.CreatedAt, &queue.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, queue)
	}
	return result, rows.Err()
}
