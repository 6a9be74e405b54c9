package service

import (
	"context"

	"github.com/spec-kit/helpdesk-api/internal/domain"
	"github.com/spec-kit/helpdesk-api/internal/repository"
)

// ResponseWithAuthor pairs a thread entry with its expanded author.
type ResponseWithAuthor struct {
	Response domain.TicketResponse
	Author   *domain.User
}

// TicketSnapshot is the denormalized read model returned by every ticket
// operation: the ticket plus owner, assignee, and (optionally) the response
// thread with authors attached. Assembled by an explicit read-time
// projection, one field set per endpoint.
type TicketSnapshot struct {
	Ticket    domain.Ticket
	Owner     *domain.User
	Assignee  *domain.User
	Responses []ResponseWithAuthor
}

// buildSnapshots loads owners, assignees, and response threads for the
// given tickets in batch.
func buildSnapshots(ctx context.Context, users repository.UserRepository, responses repository.ResponseRepository, tickets []domain.Ticket, includeResponses bool) ([]TicketSnapshot, error) {
	snapshots := make([]TicketSnapshot, 0, len(tickets))

	var threads map[string][]domain.TicketResponse
	if includeResponses {
		threads = make(map[string][]domain.TicketResponse, len(tickets))
		for _, ticket := range tickets {
			thread, err := responses.ListByTicket(ctx, ticket.ID)
			if err != nil {
				return nil, err
			}
			threads[ticket.ID] = thread
		}
	}

	idSet := map[string]struct{}{}
	for _, ticket := range tickets {
		idSet[ticket.OwnerID] = struct{}{}
		if ticket.AssigneeID != nil {
			idSet[*ticket.AssigneeID] = struct{}{}
		}
		for _, response := range threads[ticket.ID] {
			idSet[response.AuthorID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	accounts, err := users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, ticket := range tickets {
		snapshot := TicketSnapshot{Ticket: ticket}
		if owner, ok := accounts[ticket.OwnerID]; ok {
			snapshot.Owner = cloneUser(owner)
		}
		if ticket.AssigneeID != nil {
			if assignee, ok := accounts[*ticket.AssigneeID]; ok {
				snapshot.Assignee = cloneUser(assignee)
			}
		}
		for _, response := range threads[ticket.ID] {
			entry := ResponseWithAuthor{Response: response}
			if author, ok := accounts[response.AuthorID]; ok {
				entry.Author = cloneUser(author)
			}
			snapshot.Responses = append(snapshot.Responses, entry)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

func cloneUser(u domain.User) *domain.User {
	copied := u
	return &copied
}
