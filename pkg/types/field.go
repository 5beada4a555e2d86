package types

import "encoding/json"

// Field is one member of a partial update. Set is true only when the key was
// present in the payload, so "absent" and "explicitly cleared" stay distinct:
// use Field[null.String] (or another null type) for clearable columns.
type Field[T any] struct {
	Set   bool
	Value T
}

func NewField[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	return json.Unmarshal(data, &f.Value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Apply writes the value into dst when the field was set and reports whether it did.
func (f Field[T]) Apply(dst *T) bool {
	if !f.Set {
		return false
	}
	*dst = f.Value
	return true
}

// Or returns the value when set and fallback otherwise.
func (f Field[T]) Or(fallback T) T {
	if f.Set {
		return f.Value
	}
	return fallback
}

// ValidationValue exposes the inner value to the struct validator. Absent fields
// report nil so `omitempty` rules skip them.
func (f Field[T]) ValidationValue() interface{} {
	if !f.Set {
		return nil
	}
	return f.Value
}
