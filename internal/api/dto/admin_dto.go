package dto

import "github.com/spec-kit/helpdesk-api/internal/domain"

// UpdateRoleRequest payload.
type UpdateRoleRequest struct {
	Role domain.Role `json:"role"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AdminID string `json:"admin_id"`
}

// AdminView is the {id, name, email} projection of an admin account.
type AdminView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserListItem is a user row in the admin listing.
type UserListItem struct {
	UserView
	TicketCount int `json:"ticket_count"`
}

// DashboardStatsView is the admin dashboard payload.
type DashboardStatsView struct {
	TotalTickets  int                           `json:"total_tickets"`
	TotalUsers    int                           `json:"total_users"`
	TotalAdmins   int                           `json:"total_admins"`
	ByStatus      map[domain.TicketStatus]int   `json:"tickets_by_status"`
	ByCategory    map[domain.TicketCategory]int `json:"tickets_by_category"`
	ByPriority    map[domain.TicketPriority]int `json:"tickets_by_priority"`
	RecentTickets []TicketView                  `json:"recent_tickets"`
}
