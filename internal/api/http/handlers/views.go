package handlers

import (
	"github.com/spec-kit/helpdesk-api/internal/api/dto"
	"github.com/spec-kit/helpdesk-api/internal/service"
)

func ticketView(snapshot *service.TicketSnapshot) dto.TicketView {
	view := dto.TicketView{
		ID:          snapshot.Ticket.ID,
		Title:       snapshot.Ticket.Title,
		Description: snapshot.Ticket.Description,
		Category:    snapshot.Ticket.Category,
		Priority:    snapshot.Ticket.Priority,
		Status:      snapshot.Ticket.Status,
		Owner:       dto.NewUserView(snapshot.Owner),
		Assignee:    dto.NewUserView(snapshot.Assignee),
		CreatedAt:   snapshot.Ticket.CreatedAt,
		UpdatedAt:   snapshot.Ticket.UpdatedAt,
	}
	for i := range snapshot.Responses {
		view.Responses = append(view.Responses, responseView(&snapshot.Responses[i]))
	}
	return view
}

func ticketViews(snapshots []service.TicketSnapshot) []dto.TicketView {
	views := make([]dto.TicketView, 0, len(snapshots))
	for i := range snapshots {
		views = append(views, ticketView(&snapshots[i]))
	}
	return views
}

func responseView(entry *service.ResponseWithAuthor) dto.ResponseView {
	return dto.ResponseView{
		ID:        entry.Response.ID,
		TicketID:  entry.Response.TicketID,
		Message:   entry.Response.Message,
		Author:    dto.NewUserView(entry.Author),
		CreatedAt: entry.Response.CreatedAt,
	}
}

func paginationView(total, page, pageSize, totalPages int) dto.Pagination {
	return dto.Pagination{
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
