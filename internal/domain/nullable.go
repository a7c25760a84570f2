package domain

// Nullable is a tri-state value: unset, explicitly null, or a value.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Null returns a Nullable explicitly set to null.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// Some returns a Nullable holding v.
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// FromPtr returns a set Nullable holding a copy of *p, or null when p is nil.
func FromPtr[T any](p *T) Nullable[T] {
	if p == nil {
		return Null[T]()
	}
	return Some(*p)
}

// IsNull reports whether the value was explicitly set to null.
func (n Nullable[T]) IsNull() bool {
	return n.Set && n.Value == nil
}

// Ptr returns a copy of the held value, or nil.
func (n Nullable[T]) Ptr() *T {
	if n.Value == nil {
		return nil
	}
	v := *n.Value
	return &v
}
