package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// HistoryRepository stores audit entries. Entries outlive their ticket.
type HistoryRepository interface {
	Create(ctx context.Context, item *domain.HistoryItem) error
	GetByID(ctx context.Context, id string) (*domain.HistoryItem, error)
	// ListByTicket returns entries newest first.
	ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryItem, error)
	// FindTicketIDs returns the distinct ticket ids owning an entry of the
	// given type whose details contain text (case-insensitive). A nil text
	// matches any entry of that type.
	FindTicketIDs(ctx context.Context, typ domain.HistoryType, text *string) ([]string, error)
	Delete(ctx context.Context, id string) error
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds the Postgres repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) Create(ctx context.Context, item *domain.HistoryItem) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, user_id, type, details)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		item.TicketID,
		item.UserID,
		item.Type,
		item.Details,
	).Scan(&item.ID, &item.CreatedAt)
}

func (r *historyRepository) GetByID(ctx context.Context, id string) (*domain.HistoryItem, error) {
	const query = `
        SELECT id, ticket_id, user_id, type, details, created_at
        FROM ticket_history WHERE id=$1`
	var item domain.HistoryItem
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.TicketID,
		&item.UserID,
		&item.Type,
		&item.Details,
		&item.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *historyRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryItem, error) {
	const query = `
        SELECT id, ticket_id, user_id, type, details, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at DESC, seq DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.HistoryItem{}
	for rows.Next() {
		var item domain.HistoryItem
		if err := rows.Scan(
			&item.ID,
			&item.TicketID,
			&item.UserID,
			&item.Type,
			&item.Details,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *historyRepository) FindTicketIDs(ctx context.Context, typ domain.HistoryType, text *string) ([]string, error) {
	query := `SELECT DISTINCT ticket_id FROM ticket_history WHERE type=$1`
	args := []any{typ}
	if text != nil {
		args = append(args, "%"+escapeLike(*text)+"%")
		query += ` AND details ILIKE $2`
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *historyRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_history WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
