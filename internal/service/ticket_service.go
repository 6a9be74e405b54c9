package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-api/internal/auth"
	"github.com/spec-kit/helpdesk-api/internal/domain"
	"github.com/spec-kit/helpdesk-api/internal/events"
	"github.com/spec-kit/helpdesk-api/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-api/pkg/util"
)

// PageSize is the fixed listing page size.
const PageSize = 10

// TicketService coordinates ticket workflows. Every operation takes the
// requester explicitly; there is no ambient current-user state.
type TicketService struct {
	tickets    repository.TicketRepository
	responses  repository.ResponseRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	ResponseRepo repository.ResponseRepository
	UserRepo     repository.UserRepository
	Dispatcher   events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		responses:  deps.ResponseRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
}

// TicketListInput describes listing filters. Empty or "all" values are
// no-ops; filters combine with AND.
type TicketListInput struct {
	Status     string
	Category   string
	Priority   string
	Search     string
	AssignedTo string
	Page       int
}

// TicketUpdateInput is the admin-only partial update. A nil field is left
// untouched; an empty AssignedTo clears the assignee.
type TicketUpdateInput struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	AssignedTo *string
}

// TicketPage is one page of snapshots plus pagination metadata.
type TicketPage struct {
	Items      []TicketSnapshot
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// TicketStats holds the per-role bucket counts. Buckets always cover the
// full enum sets, so they sum to Total.
type TicketStats struct {
	Total      int
	ByStatus   map[domain.TicketStatus]int
	ByCategory map[domain.TicketCategory]int
	ByPriority map[domain.TicketPriority]int
}

// CreateTicket files a new ticket for the requester. Status is forced to
// Open and the thread starts with a response equal to the description,
// inserted atomically with the ticket.
func (s *TicketService) CreateTicket(ctx context.Context, requester *domain.User, input TicketCreateInput) (*TicketSnapshot, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}
	if !domain.ValidTicketCategory(input.Category) {
		return nil, apperrors.NewValidationError("category must be Technical, Billing, or General", map[string]any{"category": input.Category})
	}
	if !domain.ValidTicketPriority(input.Priority) {
		return nil, apperrors.NewValidationError("priority must be Low, Medium, or High", map[string]any{"priority": input.Priority})
	}

	ticket := &domain.Ticket{
		OwnerID:     requester.ID,
		Title:       title,
		Description: description,
		Category:    input.Category,
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
	}
	initial := &domain.TicketResponse{
		AuthorID: requester.ID,
		Message:  description,
	}
	if err := s.tickets.CreateWithInitialResponse(ctx, ticket, initial); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketCreated,
		ActorID: requester.ID,
		Payload: events.TicketCreatedPayload{
			TicketID: ticket.ID,
			Title:    ticket.Title,
			Category: ticket.Category,
			Priority: ticket.Priority,
		},
	})
	return s.snapshotOne(ctx, ticket, true)
}

// ListTickets returns a page of tickets the requester may see. Non-admin
// requesters are scoped to their own tickets before any client filter
// applies.
func (s *TicketService) ListTickets(ctx context.Context, requester *domain.User, input TicketListInput) (*TicketPage, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}

	filter := repository.TicketFilter{
		Limit:  PageSize,
		Offset: (page - 1) * PageSize,
	}
	if !requester.IsAdmin() {
		ownerID := requester.ID
		filter.OwnerID = &ownerID
	}
	if input.Status != "" && input.Status != "all" {
		status := domain.TicketStatus(input.Status)
		filter.Status = &status
	}
	if input.Category != "" && input.Category != "all" {
		category := domain.TicketCategory(input.Category)
		filter.Category = &category
	}
	if input.Priority != "" && input.Priority != "all" {
		priority := domain.TicketPriority(input.Priority)
		filter.Priority = &priority
	}
	if strings.TrimSpace(input.Search) != "" {
		search := input.Search
		filter.Search = &search
	}
	if input.AssignedTo != "" && input.AssignedTo != "all" {
		assignee := input.AssignedTo
		filter.AssigneeID = &assignee
	}

	total, err := s.tickets.Count(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	snapshots, err := buildSnapshots(ctx, s.users, s.responses, tickets, true)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	totalPages := (total + PageSize - 1) / PageSize
	return &TicketPage{
		Items:      snapshots,
		Total:      total,
		Page:       page,
		PageSize:   PageSize,
		TotalPages: totalPages,
	}, nil
}

// GetTicket fetches a single ticket, enforcing read permission.
func (s *TicketService) GetTicket(ctx context.Context, requester *domain.User, ticketID string) (*TicketSnapshot, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !auth.CanViewTicket(requester, ticket) {
		return nil, apperrors.NewForbidden("unauthorized to view this ticket")
	}
	return s.snapshotOne(ctx, ticket, true)
}

// UpdateTicket applies an admin-only partial update of status, priority,
// and assignment. No field changes when any check fails.
func (s *TicketService) UpdateTicket(ctx context.Context, requester *domain.User, ticketID string, input TicketUpdateInput) (*TicketSnapshot, error) {
	if !auth.CanManageTickets(requester) {
		return nil, apperrors.NewForbidden("unauthorized to update this ticket")
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if input.Status != nil && !domain.ValidTicketStatus(*input.Status) {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
	}
	if input.Priority != nil && !domain.ValidTicketPriority(*input.Priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
	}
	if input.AssignedTo != nil && *input.AssignedTo != "" {
		assignee, err := s.users.GetByID(ctx, *input.AssignedTo)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("user", map[string]any{"user_id": *input.AssignedTo})
			}
			return nil, apperrors.MapError(err)
		}
		if err := auth.CheckAssignee(assignee); err != nil {
			return nil, err
		}
	}

	oldStatus := ticket.Status
	assignmentChanged := false
	if input.Status != nil {
		ticket.Status = *input.Status
	}
	if input.Priority != nil {
		ticket.Priority = *input.Priority
	}
	if input.AssignedTo != nil {
		assignmentChanged = true
		if *input.AssignedTo == "" {
			ticket.AssigneeID = nil
		} else {
			assigneeID := *input.AssignedTo
			ticket.AssigneeID = &assigneeID
		}
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketUpdated,
		ActorID: requester.ID,
		Payload: events.TicketUpdatedPayload{
			TicketID:    ticket.ID,
			OldStatus:   oldStatus,
			NewStatus:   ticket.Status,
			NewPriority: ticket.Priority,
		},
	})
	if assignmentChanged {
		s.publishEvent(ctx, events.Event{
			Type:    events.EventTicketAssigned,
			ActorID: requester.ID,
			Payload: events.TicketAssignedPayload{
				TicketID:   ticket.ID,
				AssigneeID: ticket.AssigneeID,
			},
		})
	}
	return s.snapshotOne(ctx, ticket, true)
}

// AddResponse appends a message to the ticket thread and bumps the
// ticket's updated-at marker. Closed tickets accept no new responses.
func (s *TicketService) AddResponse(ctx context.Context, requester *domain.User, ticketID, message string) (*ResponseWithAuthor, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("message required", nil)
	}
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !auth.CanRespond(requester, ticket) {
		return nil, apperrors.NewForbidden("unauthorized to respond to this ticket")
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewValidationError("closed tickets accept no new responses", nil)
	}

	response := &domain.TicketResponse{
		TicketID: ticket.ID,
		AuthorID: requester.ID,
		Message:  message,
	}
	if err := s.tickets.AppendResponse(ctx, response); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventResponseAdded,
		ActorID: requester.ID,
		Payload: events.ResponseAddedPayload{
			TicketID:       ticket.ID,
			ResponseID:     response.ID,
			AuthorID:       response.AuthorID,
			MessagePreview: stringPreview(response.Message, 120),
		},
	})
	return &ResponseWithAuthor{Response: *response, Author: requester}, nil
}

// Stats computes exact bucket counts, scoped to the requester's tickets
// unless they are an admin. Recomputed in full on every call.
func (s *TicketService) Stats(ctx context.Context, requester *domain.User) (*TicketStats, error) {
	var ownerID *string
	if !requester.IsAdmin() {
		id := requester.ID
		ownerID = &id
	}

	filter := repository.TicketFilter{OwnerID: ownerID}
	total, err := s.tickets.Count(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byStatus, err := s.tickets.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byCategory, err := s.tickets.CountByCategory(ctx, ownerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byPriority, err := s.tickets.CountByPriority(ctx, ownerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &TicketStats{
		Total:      total,
		ByStatus:   byStatus,
		ByCategory: byCategory,
		ByPriority: byPriority,
	}, nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) snapshotOne(ctx context.Context, ticket *domain.Ticket, includeResponses bool) (*TicketSnapshot, error) {
	snapshots, err := buildSnapshots(ctx, s.users, s.responses, []domain.Ticket{*ticket}, includeResponses)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &snapshots[0], nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
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

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
