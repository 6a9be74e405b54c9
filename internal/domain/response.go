package domain

import "time"

// TicketResponse is an immutable message in a ticket's thread. Display
// order equals creation order.
type TicketResponse struct {
	ID        string
	TicketID  string
	AuthorID  string
	Message   string
	CreatedAt time.Time
}
