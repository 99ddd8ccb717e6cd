package nexori

import "time"

// Priority of a panic event.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// PanicStatus is the lifecycle status of a panic event.
type PanicStatus string

const (
	PanicActive   PanicStatus = "active"
	PanicAttended PanicStatus = "attended"
	PanicResolved PanicStatus = "resolved"
)

// PanicEvent is emitted on panic:created, panic:updated and panic:resolved.
type PanicEvent struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	UserName    string      `json:"userName"`
	Priority    Priority    `json:"priority"`
	Status      PanicStatus `json:"status"`
	Timestamp   time.Time   `json:"timestamp"`
	Location    string      `json:"location,omitempty"`
	AttendedAt  *time.Time  `json:"attendedAt,omitempty"`
	AttendedBy  string      `json:"attendedBy,omitempty"`
	ResolvedAt  *time.Time  `json:"resolvedAt,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	Attachments []string    `json:"attachments,omitempty"`
}

// BikeEvent is emitted on bike:* broadcasts.
type BikeEvent struct {
	ID           string    `json:"id"`
	SerialNumber string    `json:"serialNumber"`
	OwnerName    string    `json:"ownerName,omitempty"`
	Status       string    `json:"status"` // checked_in, checked_out, maintenance
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MinuteEvent is emitted on minute:* broadcasts.
type MinuteEvent struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Status     string   `json:"status"`
	AssignedTo string   `json:"assignedTo,omitempty"`
	Attachment string   `json:"attachment,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// UserEvent is emitted on user:* broadcasts.
type UserEvent struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

// SessionConfirmed is the payload of socket:connected.
type SessionConfirmed struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
}

// LifecycleInfo is the payload of connection lifecycle signals.
type LifecycleInfo struct {
	Attempt int    `json:"attempt,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
