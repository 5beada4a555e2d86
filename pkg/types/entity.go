package types

import (
	"encoding/json"
	"time"

	"github.com/aarondl/null/v8"
)

type BaseEntity struct {
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Deletion is the soft-delete state of a record: either Active or Deleted at a point in time.
// The zero value is Active.
type Deletion struct {
	at *time.Time
}

func Active() Deletion { return Deletion{} }

func DeletedAt(t time.Time) Deletion {
	t = t.UTC()
	return Deletion{at: &t}
}

// DeletionFromNull converts a nullable deleted_at column.
func DeletionFromNull(t null.Time) Deletion {
	if !t.Valid {
		return Active()
	}
	return DeletedAt(t.Time)
}

func (d Deletion) IsDeleted() bool { return d.at != nil }

// At returns the deletion time and true when the record is deleted.
func (d Deletion) At() (time.Time, bool) {
	if d.at == nil {
		return time.Time{}, false
	}
	return *d.at, true
}

// Null is the value written to a nullable deleted_at column.
func (d Deletion) Null() null.Time {
	if d.at == nil {
		return null.Time{}
	}
	return null.TimeFrom(*d.at)
}

func (d Deletion) MarshalJSON() ([]byte, error) {
	if d.at == nil {
		return []byte("null"), nil
	}
	return json.Marshal(d.at)
}
