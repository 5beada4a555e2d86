package entities

import (
	"time"

	"github.com/aarondl/null/v8"
)

// Protocol is an allocated protocol number. Only RequestID changes after insert.
type Protocol struct {
	ID            uint64      `json:"id"`
	Year          int         `json:"year"`
	Sequence      int64       `json:"sequence"`
	Prefix        string      `json:"prefix"`
	FullNumber    string      `json:"fullNumber"`
	ProcessTypeID uint64      `json:"processTypeId"`
	GroupID       string      `json:"groupId"`
	RequestID     null.Uint64 `json:"requestId"`
	CreatedAt     time.Time   `json:"createdAt"`
}
