package record

import (
	"time"
)

// Kind identifies which record variant a value is.
type Kind string

const (
	KindEvent    Kind = "event"
	KindIdentity Kind = "identity"
	KindGroup    Kind = "group"
	KindRevenue  Kind = "revenue"
	KindLog      Kind = "log"
)

// Priority controls whether a record forces an immediate flush.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

// Event categories that are always treated as high priority.
const (
	CategoryAuthentication = "authentication"
	CategoryError          = "error"
)

// Record is implemented by every record variant the batch manager accepts.
type Record interface {
	// Kind reports the variant.
	Kind() Kind

	// Subject returns the user/subject identifier the record belongs to.
	Subject() string

	// Timestamp returns the record's creation time.
	Timestamp() time.Time

	// Priority classifies the record for flush scheduling.
	Priority() Priority
}

// Event is a named analytics event with free-form properties.
type Event struct {
	UserID       string         `json:"user_id"`
	Name         string         `json:"name"`
	Category     string         `json:"category,omitempty"`
	Time         time.Time      `json:"time"`
	Properties   map[string]any `json:"properties,omitempty"`
	HighPriority bool           `json:"high_priority,omitempty"`
}

func (e Event) Kind() Kind           { return KindEvent }
func (e Event) Subject() string      { return e.UserID }
func (e Event) Timestamp() time.Time { return e.Time }

func (e Event) Priority() Priority {
	if e.HighPriority || e.Category == CategoryAuthentication || e.Category == CategoryError {
		return PriorityHigh
	}
	return PriorityNormal
}

// Identity records traits about a user.
type Identity struct {
	UserID       string         `json:"user_id"`
	Time         time.Time      `json:"time"`
	Traits       map[string]any `json:"traits,omitempty"`
	HighPriority bool           `json:"high_priority,omitempty"`
}

func (i Identity) Kind() Kind           { return KindIdentity }
func (i Identity) Subject() string      { return i.UserID }
func (i Identity) Timestamp() time.Time { return i.Time }

func (i Identity) Priority() Priority {
	if i.HighPriority {
		return PriorityHigh
	}
	return PriorityNormal
}

// Group associates a user with a group.
type Group struct {
	UserID       string         `json:"user_id"`
	GroupID      string         `json:"group_id"`
	Time         time.Time      `json:"time"`
	Properties   map[string]any `json:"properties,omitempty"`
	HighPriority bool           `json:"high_priority,omitempty"`
}

func (g Group) Kind() Kind           { return KindGroup }
func (g Group) Subject() string      { return g.UserID }
func (g Group) Timestamp() time.Time { return g.Time }

func (g Group) Priority() Priority {
	if g.HighPriority {
		return PriorityHigh
	}
	return PriorityNormal
}

// Product is a line item attached to a revenue record.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name,omitempty"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Revenue records a purchase or refund. Revenue is always high priority.
type Revenue struct {
	UserID      string         `json:"user_id"`
	OrderID     string         `json:"order_id"`
	Amount      float64        `json:"amount"`
	Currency    string         `json:"currency"`
	RevenueType string         `json:"revenue_type,omitempty"`
	Products    []Product      `json:"products,omitempty"`
	Time        time.Time      `json:"time"`
	Properties  map[string]any `json:"properties,omitempty"`
}

func (r Revenue) Kind() Kind           { return KindRevenue }
func (r Revenue) Subject() string      { return r.UserID }
func (r Revenue) Timestamp() time.Time { return r.Time }
func (r Revenue) Priority() Priority   { return PriorityHigh }

// LogEntry is a structured log line. ContextID correlates entries within
// one session.
type LogEntry struct {
	UserID       string         `json:"user_id"`
	Level        Level          `json:"level"`
	Service      string         `json:"service,omitempty"`
	Message      string         `json:"message"`
	Source       string         `json:"source,omitempty"`
	ContextID    uint64         `json:"context_id,omitempty"`
	Time         time.Time      `json:"time"`
	Fields       map[string]any `json:"fields,omitempty"`
	HighPriority bool           `json:"high_priority,omitempty"`
}

func (l LogEntry) Kind() Kind           { return KindLog }
func (l LogEntry) Subject() string      { return l.UserID }
func (l LogEntry) Timestamp() time.Time { return l.Time }

func (l LogEntry) Priority() Priority {
	if l.HighPriority || l.Level.High() {
		return PriorityHigh
	}
	return PriorityNormal
}
