package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-api/internal/domain"
)

// ResponseRepository reads ticket thread entries. Writes go through
// TicketRepository so the ticket's updated_at marker moves in the same
// transaction.
type ResponseRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketResponse, error)
}

type responseRepository struct {
	db DB
}

// NewResponseRepository builds repository.
func NewResponseRepository(db DB) ResponseRepository {
	return &responseRepository{db: db}
}

func (r *responseRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketResponse, error) {
	const query = `
        SELECT id, ticket_id, author_user_id, message, created_at
        FROM ticket_responses WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketResponse
	for rows.Next() {
		var response domain.TicketResponse
		if err := rows.Scan(
			&response.ID,
			&response.TicketID,
			&response.AuthorID,
			&response.Message,
			&response.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, response)
	}
	return result, rows.Err()
}
