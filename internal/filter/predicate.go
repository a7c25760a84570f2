package filter

import (
	"fmt"
	"strings"
	"time"
)

// Field names a ticket attribute a predicate can constrain.
type Field string

const (
	FieldID         Field = "id"
	FieldQueue      Field = "queue"
	FieldCategory   Field = "category"
	FieldStatus     Field = "status"
	FieldPriority   Field = "priority"
	FieldAssignedTo Field = "assignedTo"
	FieldCreatedBy  Field = "createdBy"
	FieldTitle      Field = "title"
	FieldDetails    Field = "details"
	FieldDocuments  Field = "documents"
	FieldCreatedAt  Field = "createdAt"
	FieldUpdatedAt  Field = "updatedAt"
	FieldClosedAt   Field = "closedAt"
	FieldArchived   Field = "archived"
)

// Op is a predicate node kind.
type Op string

const (
	OpAll      Op = "all"
	OpNone     Op = "none"
	OpAnd      Op = "and"
	OpOr       Op = "or"
	OpNot      Op = "not"
	OpIn       Op = "in"
	OpIsNull   Op = "isNull"
	OpGTE      Op = "gte"
	OpLTE      Op = "lte"
	OpContains Op = "contains"
	OpEmpty    Op = "empty"
	OpIsTrue   Op = "isTrue"
)

// Predicate is a store-agnostic boolean expression over tickets. Stores
// compile it to their own query language; Match evaluates it in memory.
type Predicate struct {
	Op       Op
	Field    Field
	Values   []string
	Time     time.Time
	Text     string
	Children []Predicate
}

// All matches every ticket.
func All() Predicate { return Predicate{Op: OpAll} }

// None matches no ticket.
func None() Predicate { return Predicate{Op: OpNone} }

// And conjoins predicates, flattening nested ANDs and folding constants.
func And(parts ...Predicate) Predicate {
	children := make([]Predicate, 0, len(parts))
	for _, p := range parts {
		switch p.Op {
		case OpAll:
			continue
		case OpNone:
			return None()
		case OpAnd:
			children = append(children, p.Children...)
		default:
			children = append(children, p)
		}
	}
	switch len(children) {
	case 0:
		return All()
	case 1:
		return children[0]
	}
	return Predicate{Op: OpAnd, Children: children}
}

// Or disjoins predicates, flattening nested ORs and folding constants.
func Or(parts ...Predicate) Predicate {
	children := make([]Predicate, 0, len(parts))
	for _, p := range parts {
		switch p.Op {
		case OpNone:
			continue
		case OpAll:
			return All()
		case OpOr:
			children = append(children, p.Children...)
		default:
			children = append(children, p)
		}
	}
	switch len(children) {
	case 0:
		return None()
	case 1:
		return children[0]
	}
	return Predicate{Op: OpOr, Children: children}
}

// Not negates p.
func Not(p Predicate) Predicate {
	switch p.Op {
	case OpAll:
		return None()
	case OpNone:
		return All()
	case OpNot:
		return p.Children[0]
	}
	return Predicate{Op: OpNot, Children: []Predicate{p}}
}

// In matches tickets whose field equals one of values. No values matches nothing.
func In(field Field, values ...string) Predicate {
	if len(values) == 0 {
		return None()
	}
	return Predicate{Op: OpIn, Field: field, Values: values}
}

// Eq is In with a single value.
func Eq(field Field, value string) Predicate {
	return In(field, value)
}

// IsNull matches tickets whose field has no value.
func IsNull(field Field) Predicate {
	return Predicate{Op: OpIsNull, Field: field}
}

// GTE matches tickets whose time field is at or after t.
func GTE(field Field, t time.Time) Predicate {
	return Predicate{Op: OpGTE, Field: field, Time: t}
}

// LTE matches tickets whose time field is at or before t.
func LTE(field Field, t time.Time) Predicate {
	return Predicate{Op: OpLTE, Field: field, Time: t}
}

// Contains matches a case-insensitive literal substring.
func Contains(field Field, text string) Predicate {
	return Predicate{Op: OpContains, Field: field, Text: text}
}

// Empty matches tickets whose list field has no elements.
func Empty(field Field) Predicate {
	return Predicate{Op: OpEmpty, Field: field}
}

// IsTrue matches tickets whose flag is set.
func IsTrue(field Field) Predicate {
	return Predicate{Op: OpIsTrue, Field: field}
}

// String renders the predicate for logs and test failure messages.
func (p Predicate) String() string {
	switch p.Op {
	case OpAll, OpNone:
		return string(p.Op)
	case OpAnd, OpOr:
		parts := make([]string, len(p.Children))
		for i, c := range p.Children {
			parts[i] = c.String()
		}
		return "(" + strings.Join(parts, " "+strings.ToUpper(string(p.Op))+" ") + ")"
	case OpNot:
		return "NOT " + p.Children[0].String()
	case OpIn:
		return fmt.Sprintf("%s IN [%s]", p.Field, strings.Join(p.Values, ","))
	case OpIsNull:
		return fmt.Sprintf("%s IS NULL", p.Field)
	case OpGTE:
		return fmt.Sprintf("%s >= %s", p.Field, p.Time.Format(time.RFC3339))
	case OpLTE:
		return fmt.Sprintf("%s <= %s", p.Field, p.Time.Format(time.RFC3339))
	case OpContains:
		return fmt.Sprintf("%s ~* %q", p.Field, p.Text)
	case OpEmpty:
		return fmt.Sprintf("%s IS EMPTY", p.Field)
	case OpIsTrue:
		return fmt.Sprintf("%s IS TRUE", p.Field)
	}
	return "?" + string(p.Op)
}
