package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

const DefaultAssignmentRole = "assigned"

// Assignment links a user to a request under a role. Unassigning keeps the row
// with IsActive=false, and assigning the same (request, user, role) again reactivates it.
type Assignment struct {
	ID           uint64    `json:"id"`
	RequestID    uint64    `json:"requestId"`
	UserID       string    `json:"userId"`
	Role         string    `json:"role"`
	AssignedBy   string    `json:"assignedBy"`
	AssignedAt   time.Time `json:"assignedAt"`
	UnassignedAt null.Time `json:"unassignedAt"`
	IsActive     bool      `json:"isActive"`
}
