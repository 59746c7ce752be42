package domain

import (
	"time"
)

type StreamID string

// Stream is inert metadata about a broadcast. ID is empty until a store assigns it.
type Stream struct {
	ID          StreamID  `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	IsLive      bool      `json:"is_live"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StreamPatch carries the fields of a partial update. Nil fields are left untouched.
// CreatedAt is deliberately absent: it is fixed at creation.
type StreamPatch struct {
	Title       *string
	Description *string
	IsLive      *bool
	UpdatedAt   *time.Time
}

// IsEmpty reports whether the patch sets no field at all.
func (p StreamPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.IsLive == nil && p.UpdatedAt == nil
}

// Apply merges the patch into s in place.
func (p StreamPatch) Apply(s *Stream) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Description != nil {
		d := *p.Description
		s.Description = &d
	}
	if p.IsLive != nil {
		s.IsLive = *p.IsLive
	}
	if p.UpdatedAt != nil {
		s.UpdatedAt = *p.UpdatedAt
	}
}

// Clone returns a deep copy so stores never hand out their internal records.
func (s *Stream) Clone() *Stream {
	if s == nil {
		return nil
	}
	c := *s
	if s.Description != nil {
		d := *s.Description
		c.Description = &d
	}
	return &c
}
