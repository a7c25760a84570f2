package filter

import (
	"context"
	"fmt"

	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// CommentIndex resolves the ids of tickets that have comment history. A nil
// text returns every ticket with at least one comment.
type CommentIndex interface {
	FindTicketIDsMatching(ctx context.Context, text *string) ([]string, error)
}

// Builder turns filter requests into predicates.
type Builder struct {
	comments CommentIndex
}

// NewBuilder constructs a builder. comments may be nil, in which case search
// only looks at ticket fields and hasComments is rejected.
func NewBuilder(comments CommentIndex) *Builder {
	return &Builder{comments: comments}
}

// Build resolves req and composes the predicate every query mode shares.
func (b *Builder) Build(ctx context.Context, req Request) (Predicate, error) {
	res, err := Resolve(req)
	if err != nil {
		return Predicate{}, err
	}
	return b.Compose(ctx, res)
}

// Compose builds the predicate for an already resolved request.
func (b *Builder) Compose(ctx context.Context, res Resolved) (Predicate, error) {
	clauses := []Predicate{
		setClause(FieldQueue, res.Queue),
		setClause(FieldCategory, res.Category),
		setClause(FieldStatus, res.Status),
		setClause(FieldPriority, res.Priority),
	}

	if len(res.Participants) > 0 {
		clauses = append(clauses, Or(
			In(FieldCreatedBy, res.Participants...),
			In(FieldAssignedTo, res.Participants...),
		))
	} else {
		clauses = append(clauses,
			setClause(FieldAssignedTo, res.AssignedTo),
			setClause(FieldCreatedBy, res.CreatedBy),
		)
	}

	if sd := res.ServiceDesk; sd != nil {
		own := None()
		if sd.UserID != "" {
			own = Eq(FieldCreatedBy, sd.UserID)
		}
		clauses = append(clauses, Or(In(FieldQueue, sd.QueueIDs...), own))
	}

	if res.Search != "" {
		search := res.Search
		textMatch := Or(Contains(FieldTitle, search), Contains(FieldDetails, search))
		if b.comments != nil {
			ids, err := b.comments.FindTicketIDsMatching(ctx, &search)
			if err != nil {
				return Predicate{}, fmt.Errorf("search comments: %w", err)
			}
			textMatch = Or(textMatch, In(FieldID, ids...))
		}
		clauses = append(clauses, textMatch)
	}

	if res.HasDocuments != nil {
		if *res.HasDocuments {
			clauses = append(clauses, Not(Empty(FieldDocuments)))
		} else {
			clauses = append(clauses, Empty(FieldDocuments))
		}
	}

	if res.HasComments != nil {
		if b.comments == nil {
			return Predicate{}, apperrors.NewInvalidFilter("hasComments is not supported by this store", map[string]any{"field": "hasComments"})
		}
		ids, err := b.comments.FindTicketIDsMatching(ctx, nil)
		if err != nil {
			return Predicate{}, fmt.Errorf("find commented tickets: %w", err)
		}
		commented := In(FieldID, ids...)
		if *res.HasComments {
			clauses = append(clauses, commented)
		} else {
			clauses = append(clauses, Not(commented))
		}
	}

	clauses = append(clauses,
		rangeClause(FieldCreatedAt, res.Created),
		rangeClause(FieldUpdatedAt, res.Updated),
		rangeClause(FieldClosedAt, res.Closed),
	)

	if !res.IncludeArchived {
		clauses = append(clauses, Not(IsTrue(FieldArchived)))
	}

	return And(clauses...), nil
}

func setClause(field Field, set *Set) Predicate {
	if set == nil {
		return All()
	}
	match := In(field, set.Values...)
	if set.IncludeNull {
		match = Or(match, IsNull(field))
	}
	return match
}

func rangeClause(field Field, r TimeRange) Predicate {
	if r.empty() {
		return All()
	}
	parts := make([]Predicate, 0, 2)
	if r.From != nil {
		parts = append(parts, GTE(field, *r.From))
	}
	if r.To != nil {
		parts = append(parts, LTE(field, *r.To))
	}
	return And(parts...)
}
