package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-api/internal/auth"
	"github.com/spec-kit/helpdesk-api/internal/domain"
	"github.com/spec-kit/helpdesk-api/internal/events"
	"github.com/spec-kit/helpdesk-api/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-api/pkg/util"
)

// AdminService covers user administration, assignment, and the dashboard.
type AdminService struct {
	users      repository.UserRepository
	tickets    repository.TicketRepository
	responses  repository.ResponseRepository
	dispatcher events.Dispatcher
}

// AdminDependencies bundles repositories for the admin service.
type AdminDependencies struct {
	UserRepo     repository.UserRepository
	TicketRepo   repository.TicketRepository
	ResponseRepo repository.ResponseRepository
	Dispatcher   events.Dispatcher
}

// NewAdminService creates the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	return &AdminService{
		users:      deps.UserRepo,
		tickets:    deps.TicketRepo,
		responses:  deps.ResponseRepo,
		dispatcher: deps.Dispatcher,
	}
}

// UserListInput describes the admin user listing filters.
type UserListInput struct {
	Search string
	Role   string
	Page   int
}

// UserPage is one page of user records with pagination metadata.
type UserPage struct {
	Items      []repository.UserWithTicketCount
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// AdminSummary is the credential-free projection of an admin account.
type AdminSummary struct {
	ID    string
	Name  string
	Email string
}

// DashboardStats are the exact, recomputed-per-call dashboard counts.
type DashboardStats struct {
	TotalTickets  int
	TotalUsers    int
	TotalAdmins   int
	ByStatus      map[domain.TicketStatus]int
	ByCategory    map[domain.TicketCategory]int
	ByPriority    map[domain.TicketPriority]int
	RecentTickets []TicketSnapshot
}

// ListUsers returns a page of accounts with optional name/email search and
// role filter, each with the count of tickets they own.
func (s *AdminService) ListUsers(ctx context.Context, input UserListInput) (*UserPage, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}

	filter := repository.UserFilter{
		Limit:  PageSize,
		Offset: (page - 1) * PageSize,
	}
	if input.Search != "" {
		search := input.Search
		filter.Search = &search
	}
	if input.Role != "" && input.Role != "all" {
		role := domain.Role(input.Role)
		filter.Role = &role
	}

	total, err := s.users.Count(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	items, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	totalPages := (total + PageSize - 1) / PageSize
	return &UserPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   PageSize,
		TotalPages: totalPages,
	}, nil
}

// UpdateUserRole sets the target's role. Changing one's own role is always
// denied, regardless of the caller's role.
func (s *AdminService) UpdateUserRole(ctx context.Context, requester *domain.User, targetID string, newRole domain.Role) (*domain.User, error) {
	if err := auth.CheckRoleChange(requester, targetID, newRole); err != nil {
		return nil, err
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": targetID})
		}
		return nil, apperrors.MapError(err)
	}

	oldRole := target.Role
	if err := s.users.UpdateRole(ctx, targetID, newRole); err != nil {
		return nil, apperrors.MapError(err)
	}
	target.Role = newRole

	s.publishEvent(ctx, events.Event{
		Type:    events.EventUserRoleChanged,
		ActorID: requester.ID,
		Payload: events.UserRoleChangedPayload{
			UserID:  target.ID,
			OldRole: oldRole,
			NewRole: newRole,
		},
	})
	return target, nil
}

// AssignTicket points the ticket's assignee at the given admin. The target
// must carry the admin role; on failure the assignee is left unchanged.
// Status is not touched.
func (s *AdminService) AssignTicket(ctx context.Context, requester *domain.User, ticketID, adminID string) (*TicketSnapshot, error) {
	if !auth.CanManageTickets(requester) {
		return nil, apperrors.NewForbidden("admin access required")
	}

	assignee, err := s.users.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": adminID})
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.CheckAssignee(assignee); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	ticket.AssigneeID = &assignee.ID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketAssigned,
		ActorID: requester.ID,
		Payload: events.TicketAssignedPayload{
			TicketID:   ticket.ID,
			AssigneeID: ticket.AssigneeID,
		},
	})

	snapshots, err := buildSnapshots(ctx, s.users, s.responses, []domain.Ticket{*ticket}, true)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &snapshots[0], nil
}

// ListAdmins returns all admin accounts projected to id, name, and email.
func (s *AdminService) ListAdmins(ctx context.Context) ([]AdminSummary, error) {
	admins, err := s.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	result := make([]AdminSummary, 0, len(admins))
	for _, admin := range admins {
		result = append(result, AdminSummary{
			ID:    admin.ID,
			Name:  admin.Name,
			Email: admin.Email,
		})
	}
	return result, nil
}

// GetDashboardStats recomputes the full dashboard on each call: totals,
// the three bucket groupings, and the five most recent tickets with owner
// and assignee attached (responses omitted).
func (s *AdminService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	totalTickets, err := s.tickets.Count(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	totalUsers, err := s.users.CountByRole(ctx, domain.RoleUser)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	totalAdmins, err := s.users.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byStatus, err := s.tickets.CountByStatus(ctx, nil)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byCategory, err := s.tickets.CountByCategory(ctx, nil)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byPriority, err := s.tickets.CountByPriority(ctx, nil)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	recent, err := s.tickets.ListRecent(ctx, 5)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	recentSnapshots, err := buildSnapshots(ctx, s.users, s.responses, recent, false)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &DashboardStats{
		TotalTickets:  totalTickets,
		TotalUsers:    totalUsers,
		TotalAdmins:   totalAdmins,
		ByStatus:      byStatus,
		ByCategory:    byCategory,
		ByPriority:    byPriority,
		RecentTickets: recentSnapshots,
	}, nil
}

func (s *AdminService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
