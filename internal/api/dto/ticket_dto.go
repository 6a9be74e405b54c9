package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-api/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
}

// UpdateTicketRequest is the admin-only partial update payload. Absent
// fields are left untouched; an empty assigned_to clears the assignee.
type UpdateTicketRequest struct {
	Status     *domain.TicketStatus   `json:"status,omitempty"`
	Priority   *domain.TicketPriority `json:"priority,omitempty"`
	AssignedTo *string                `json:"assigned_to,omitempty"`
}

// AddResponseRequest payload.
type AddResponseRequest struct {
	Message string `json:"message"`
}

// ResponseView represents a thread entry with its author expanded.
type ResponseView struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	Message   string    `json:"message"`
	Author    *UserView `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketView is the denormalized ticket snapshot.
type TicketView struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	Owner       *UserView             `json:"owner"`
	Assignee    *UserView             `json:"assignee,omitempty"`
	Responses   []ResponseView        `json:"responses,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// Pagination carries listing metadata.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// StatsView holds per-role bucket counts.
type StatsView struct {
	Total      int                           `json:"total"`
	ByStatus   map[domain.TicketStatus]int   `json:"by_status"`
	ByCategory map[domain.TicketCategory]int `json:"by_category"`
	ByPriority map[domain.TicketPriority]int `json:"by_priority"`
}
