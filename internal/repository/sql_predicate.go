package repository

import (
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk/internal/filter"
)

var ticketColumns = map[filter.Field]string{
	filter.FieldID:         "id",
	filter.FieldQueue:      "queue_id",
	filter.FieldCategory:   "category_id",
	filter.FieldStatus:     "status",
	filter.FieldPriority:   "priority",
	filter.FieldAssignedTo: "assigned_to_id",
	filter.FieldCreatedBy:  "created_by_id",
	filter.FieldTitle:      "title",
	filter.FieldDetails:    "details",
	filter.FieldDocuments:  "document_ids",
	filter.FieldCreatedAt:  "created_at",
	filter.FieldUpdatedAt:  "updated_at",
	filter.FieldClosedAt:   "closed_at",
	filter.FieldArchived:   "archived",
}

// sqlWhere accumulates positional arguments while compiling a predicate.
type sqlWhere struct {
	args []any
}

func (w *sqlWhere) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

// compileSQL renders p as a Postgres boolean expression. Placeholders start
// after any args already held by w.
func (w *sqlWhere) compile(p filter.Predicate) (string, error) {
	switch p.Op {
	case filter.OpAll:
		return "TRUE", nil
	case filter.OpNone:
		return "FALSE", nil
	case filter.OpAnd, filter.OpOr:
		parts := make([]string, 0, len(p.Children))
		for _, c := range p.Children {
			part, err := w.compile(c)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		sep := " AND "
		if p.Op == filter.OpOr {
			sep = " OR "
		}
		return "(" + strings.Join(parts, sep) + ")", nil
	case filter.OpNot:
		inner, err := w.compile(p.Children[0])
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	}

	col, ok := ticketColumns[p.Field]
	if !ok {
		return "", fmt.Errorf("unsupported filter field %q", p.Field)
	}

	switch p.Op {
	case filter.OpIn:
		if len(p.Values) == 1 {
			return fmt.Sprintf("%s = %s", col, w.arg(p.Values[0])), nil
		}
		return fmt.Sprintf("%s = ANY(%s)", col, w.arg(p.Values)), nil
	case filter.OpIsNull:
		return col + " IS NULL", nil
	case filter.OpGTE:
		return fmt.Sprintf("%s >= %s", col, w.arg(p.Time)), nil
	case filter.OpLTE:
		return fmt.Sprintf("%s <= %s", col, w.arg(p.Time)), nil
	case filter.OpContains:
		return fmt.Sprintf("%s ILIKE %s", col, w.arg("%"+escapeLike(p.Text)+"%")), nil
	case filter.OpEmpty:
		return fmt.Sprintf("cardinality(%s) = 0", col), nil
	case filter.OpIsTrue:
		return col + " IS TRUE", nil
	}
	return "", fmt.Errorf("unsupported filter op %q", p.Op)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func orderBySQL(sort Sort) (string, error) {
	col, ok := ticketColumns[sort.Field]
	if !ok {
		return "", fmt.Errorf("unsupported sort field %q", sort.Field)
	}
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, id %s", col, dir, dir), nil
}
