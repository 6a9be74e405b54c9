package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-api/internal/domain"
	"github.com/spec-kit/helpdesk-api/internal/events"
	"github.com/spec-kit/helpdesk-api/internal/repository"
)

// memStore is an in-memory stand-in for the Postgres repositories. IDs are
// sequential and timestamps strictly increase, so ordering assertions behave
// like the real created_at DESC, id DESC sort.
type memStore struct {
	mu        sync.Mutex
	users     map[string]domain.User
	tickets   map[string]domain.Ticket
	responses map[string][]domain.TicketResponse
	seq       int
	clock     time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]domain.User{},
		tickets:   map[string]domain.Ticket{},
		responses: map[string][]domain.TicketResponse{},
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) addUser(name string, role domain.Role) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := domain.User{
		ID:        s.nextID("user"),
		Name:      name,
		Email:     strings.ToLower(name) + "@example.com",
		Role:      role,
		CreatedAt: s.tick(),
	}
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = user
	return &user
}

type fakeUserRepo struct{ store *memStore }

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user.ID = r.store.nextID("user")
	user.CreatedAt = r.store.tick()
	user.UpdatedAt = user.CreatedAt
	r.store.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = r.store.tick()
	r.store.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) UpdateRole(_ context.Context, id string, role domain.Role) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Role = role
	user.UpdatedAt = r.store.tick()
	r.store.users[id] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if user.Email == email {
			found := user
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []string) (map[string]domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	result := make(map[string]domain.User, len(ids))
	for _, id := range ids {
		if user, ok := r.store.users[id]; ok {
			result[id] = user
		}
	}
	return result, nil
}

func (r *fakeUserRepo) List(_ context.Context, filter repository.UserFilter) ([]repository.UserWithTicketCount, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	matched := r.matchedLocked(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	result := make([]repository.UserWithTicketCount, 0, end-offset)
	for _, user := range matched[offset:end] {
		count := 0
		for _, ticket := range r.store.tickets {
			if ticket.OwnerID == user.ID {
				count++
			}
		}
		result = append(result, repository.UserWithTicketCount{User: user, TicketCount: count})
	}
	return result, nil
}

func (r *fakeUserRepo) Count(_ context.Context, filter repository.UserFilter) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return len(r.matchedLocked(filter)), nil
}

func (r *fakeUserRepo) matchedLocked(filter repository.UserFilter) []domain.User {
	var matched []domain.User
	for _, user := range r.store.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.Search != nil {
			needle := strings.ToLower(strings.TrimSpace(*filter.Search))
			if needle != "" &&
				!strings.Contains(strings.ToLower(user.Name), needle) &&
				!strings.Contains(strings.ToLower(user.Email), needle) {
				continue
			}
		}
		matched = append(matched, user)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return matched
}

func (r *fakeUserRepo) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var result []domain.User
	for _, user := range r.store.users {
		if user.Role == role {
			result = append(result, user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *fakeUserRepo) CountByRole(_ context.Context, role domain.Role) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, user := range r.store.users {
		if user.Role == role {
			count++
		}
	}
	return count, nil
}

type fakeTicketRepo struct{ store *memStore }

func (r *fakeTicketRepo) CreateWithInitialResponse(_ context.Context, ticket *domain.Ticket, response *domain.TicketResponse) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket.ID = r.store.nextID("ticket")
	ticket.CreatedAt = r.store.tick()
	ticket.UpdatedAt = ticket.CreatedAt
	r.store.tickets[ticket.ID] = *ticket

	response.ID = r.store.nextID("resp")
	response.TicketID = ticket.ID
	response.CreatedAt = ticket.CreatedAt
	r.store.responses[ticket.ID] = append(r.store.responses[ticket.ID], *response)
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.store.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.AssigneeID = ticket.AssigneeID
	stored.Status = ticket.Status
	stored.Priority = ticket.Priority
	stored.UpdatedAt = r.store.tick()
	r.store.tickets[ticket.ID] = stored
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket, ok := r.store.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	matched := r.matchedLocked(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *fakeTicketRepo) Count(_ context.Context, filter repository.TicketFilter) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return len(r.matchedLocked(filter)), nil
}

func (r *fakeTicketRepo) matchedLocked(filter repository.TicketFilter) []domain.Ticket {
	var matched []domain.Ticket
	for _, ticket := range r.store.tickets {
		if filter.OwnerID != nil && ticket.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && ticket.Category != *filter.Category {
			continue
		}
		if filter.Priority != nil && ticket.Priority != *filter.Priority {
			continue
		}
		if filter.Search != nil {
			needle := strings.ToLower(strings.TrimSpace(*filter.Search))
			if needle != "" &&
				!strings.Contains(strings.ToLower(ticket.Title), needle) &&
				!strings.Contains(strings.ToLower(ticket.Description), needle) {
				continue
			}
		}
		matched = append(matched, ticket)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return matched
}

func (r *fakeTicketRepo) CountByStatus(_ context.Context, ownerID *string) (map[domain.TicketStatus]int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	result := map[domain.TicketStatus]int{}
	for _, status := range domain.TicketStatuses {
		result[status] = 0
	}
	for _, ticket := range r.store.tickets {
		if ownerID != nil && ticket.OwnerID != *ownerID {
			continue
		}
		result[ticket.Status]++
	}
	return result, nil
}

func (r *fakeTicketRepo) CountByCategory(_ context.Context, ownerID *string) (map[domain.TicketCategory]int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	result := map[domain.TicketCategory]int{}
	for _, category := range domain.TicketCategories {
		result[category] = 0
	}
	for _, ticket := range r.store.tickets {
		if ownerID != nil && ticket.OwnerID != *ownerID {
			continue
		}
		result[ticket.Category]++
	}
	return result, nil
}

func (r *fakeTicketRepo) CountByPriority(_ context.Context, ownerID *string) (map[domain.TicketPriority]int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	result := map[domain.TicketPriority]int{}
	for _, priority := range domain.TicketPriorities {
		result[priority] = 0
	}
	for _, ticket := range r.store.tickets {
		if ownerID != nil && ticket.OwnerID != *ownerID {
			continue
		}
		result[ticket.Priority]++
	}
	return result, nil
}

func (r *fakeTicketRepo) ListRecent(ctx context.Context, limit int) ([]domain.Ticket, error) {
	matched, err := r.ListWithFilter(ctx, repository.TicketFilter{Limit: limit})
	if err != nil {
		return nil, err
	}
	return matched, nil
}

func (r *fakeTicketRepo) AppendResponse(_ context.Context, response *domain.TicketResponse) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket, ok := r.store.tickets[response.TicketID]
	if !ok {
		return pgx.ErrNoRows
	}
	response.ID = r.store.nextID("resp")
	response.CreatedAt = r.store.tick()
	r.store.responses[response.TicketID] = append(r.store.responses[response.TicketID], *response)
	ticket.UpdatedAt = response.CreatedAt
	r.store.tickets[response.TicketID] = ticket
	return nil
}

type fakeResponseRepo struct{ store *memStore }

func (r *fakeResponseRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketResponse, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	thread := append([]domain.TicketResponse{}, r.store.responses[ticketID]...)
	sort.Slice(thread, func(i, j int) bool {
		if !thread[i].CreatedAt.Equal(thread[j].CreatedAt) {
			return thread[i].CreatedAt.Before(thread[j].CreatedAt)
		}
		return thread[i].ID < thread[j].ID
	})
	return thread, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

type serviceFixture struct {
	store      *memStore
	users      *fakeUserRepo
	tickets    *fakeTicketRepo
	responses  *fakeResponseRepo
	dispatcher *recordingDispatcher
	ticketSvc  *TicketService
	adminSvc   *AdminService
}

func newServiceFixture() *serviceFixture {
	store := newMemStore()
	users := &fakeUserRepo{store: store}
	tickets := &fakeTicketRepo{store: store}
	responses := &fakeResponseRepo{store: store}
	dispatcher := &recordingDispatcher{}

	return &serviceFixture{
		store:      store,
		users:      users,
		tickets:    tickets,
		responses:  responses,
		dispatcher: dispatcher,
		ticketSvc: NewTicketService(TicketDependencies{
			TicketRepo:   tickets,
			ResponseRepo: responses,
			UserRepo:     users,
			Dispatcher:   dispatcher,
		}),
		adminSvc: NewAdminService(AdminDependencies{
			UserRepo:     users,
			TicketRepo:   tickets,
			ResponseRepo: responses,
			Dispatcher:   dispatcher,
		}),
	}
}
