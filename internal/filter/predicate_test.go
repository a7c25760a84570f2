package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicateFolding(t *testing.T) {
	q := Eq(FieldQueue, "q1")

	assert.Equal(t, OpAll, And().Op)
	assert.Equal(t, OpNone, Or().Op)
	assert.Equal(t, q, And(All(), q))
	assert.Equal(t, OpNone, And(q, None()).Op)
	assert.Equal(t, q, Or(None(), q))
	assert.Equal(t, OpAll, Or(q, All()).Op)
	assert.Equal(t, OpNone, In(FieldID).Op)
	assert.Equal(t, q, Not(Not(q)))
	assert.Equal(t, OpNone, Not(All()).Op)
}

func TestPredicateFlattening(t *testing.T) {
	a, b, c := Eq(FieldQueue, "a"), Eq(FieldStatus, "Opened"), Eq(FieldPriority, "High")
	p := And(a, And(b, c))
	assert.Equal(t, OpAnd, p.Op)
	assert.Len(t, p.Children, 3)

	o := Or(Or(a, b), c)
	assert.Equal(t, OpOr, o.Op)
	assert.Len(t, o.Children, 3)
}

func TestPredicateString(t *testing.T) {
	p := And(Eq(FieldStatus, "Closed"), Or(IsNull(FieldAssignedTo), In(FieldAssignedTo, "u1")))
	assert.Equal(t, "(status IN [Closed] AND (assignedTo IS NULL OR assignedTo IN [u1]))", p.String())
}
