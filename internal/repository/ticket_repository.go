package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/filter"
)

// Sort orders query results. Ties are always broken by id in the same direction.
type Sort struct {
	Field filter.Field
	Desc  bool
}

// DefaultSort lists newest tickets first.
var DefaultSort = Sort{Field: filter.FieldCreatedAt, Desc: true}

// TicketRepository encapsulates ticket persistence. FindMatching treats a
// limit <= 0 as unbounded.
type TicketRepository interface {
	Insert(ctx context.Context, ticket *domain.Ticket) error
	FindByID(ctx context.Context, id string) (*domain.Ticket, error)
	FindMatching(ctx context.Context, pred filter.Predicate, sort Sort, skip, limit int) ([]domain.Ticket, error)
	CountMatching(ctx context.Context, pred filter.Predicate) (int64, error)
	UpdateFields(ctx context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error)
	Delete(ctx context.Context, id string) error
}

const ticketSelect = `
        SELECT id, queue_id, category_id, title, details, status, priority, assigned_to_id,
               created_by_id, document_ids, closing_notes, archived, created_at, updated_at, closed_at
        FROM tickets`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (queue_id, category_id, title, details, status, priority, assigned_to_id,
                             created_by_id, document_ids, closing_notes, archived, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	docs := ticket.DocumentIDs
	if docs == nil {
		docs = []string{}
	}
	return r.pool.QueryRow(ctx, query,
		ticket.QueueID,
		ticket.CategoryID,
		ticket.Title,
		ticket.Details,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedToID,
		ticket.CreatedByID,
		docs,
		ticket.ClosingNotes,
		ticket.Archived,
		ticket.ClosedAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) FindByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, ticketSelect+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return ticket, err
}

func (r *ticketRepository) FindMatching(ctx context.Context, pred filter.Predicate, sort Sort, skip, limit int) ([]domain.Ticket, error) {
	var where sqlWhere
	clause, err := where.compile(pred)
	if err != nil {
		return nil, err
	}
	order, err := orderBySQL(sort)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY %s`, ticketSelect, clause, order)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	if skip > 0 {
		query += fmt.Sprintf(" OFFSET %d", skip)
	}

	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountMatching(ctx context.Context, pred filter.Predicate) (int64, error) {
	var where sqlWhere
	clause, err := where.compile(pred)
	if err != nil {
		return 0, err
	}
	var total int64
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+clause, where.args...).Scan(&total)
	return total, err
}

func (r *ticketRepository) UpdateFields(ctx context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error) {
	if patch.Empty() {
		return r.FindByID(ctx, id)
	}

	sets := []string{}
	args := []any{}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Details != nil {
		set("details", *patch.Details)
	}
	if patch.CategoryID != nil {
		set("category_id", *patch.CategoryID)
	}
	if patch.Priority != nil {
		set("priority", *patch.Priority)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.ClosingNotes != nil {
		set("closing_notes", *patch.ClosingNotes)
	}
	if patch.Archived != nil {
		set("archived", *patch.Archived)
	}
	if patch.DocumentIDs != nil {
		docs := *patch.DocumentIDs
		if docs == nil {
			docs = []string{}
		}
		set("document_ids", docs)
	}
	if patch.AssignedToID.Set {
		set("assigned_to_id", patch.AssignedToID.Value)
	}
	if patch.ClosedAt.Set {
		set("closed_at", patch.ClosedAt.Value)
	}
	sets = append(sets, "updated_at=NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$%d
        RETURNING id, queue_id, category_id, title, details, status, priority, assigned_to_id,
                  created_by_id, document_ids, closing_notes, archived, created_at, updated_at, closed_at`,
		strings.Join(sets, ", "), len(args))
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return ticket, err
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.QueueID,
		&ticket.CategoryID,
		&ticket.Title,
		&ticket.Details,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AssignedToID,
		&ticket.CreatedByID,
		&ticket.DocumentIDs,
		&ticket.ClosingNotes,
		&ticket.Archived,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
