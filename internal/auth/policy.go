package auth

import (
	"github.com/spec-kit/helpdesk-api/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-api/pkg/util"
)

// Policy is the single place where role and ownership rules live. Every
// mutating service operation consults these checks before touching state.

// CanViewTicket reports whether the requester may read the ticket.
// Admins read any ticket; everyone else only their own.
func CanViewTicket(requester *domain.User, ticket *domain.Ticket) bool {
	if requester == nil || ticket == nil {
		return false
	}
	return requester.IsAdmin() || ticket.OwnerID == requester.ID
}

// CanManageTickets reports whether the requester may change status,
// priority, or assignment. Admin-only.
func CanManageTickets(requester *domain.User) bool {
	return requester.IsAdmin()
}

// CanRespond reports whether the requester may append to the ticket's
// thread: admins, or the owning user.
func CanRespond(requester *domain.User, ticket *domain.Ticket) bool {
	if requester == nil || ticket == nil {
		return false
	}
	return requester.IsAdmin() || ticket.OwnerID == requester.ID
}

// CheckRoleChange validates a role mutation. Self-role-change is denied
// regardless of the caller's role.
func CheckRoleChange(requester *domain.User, targetID string, newRole domain.Role) error {
	if !requester.IsAdmin() {
		return apperrors.NewForbidden("admin access required")
	}
	if requester.ID == targetID {
		return apperrors.NewForbidden("cannot change your own role")
	}
	if !domain.ValidRole(newRole) {
		return apperrors.NewValidationError("role must be user or admin", map[string]any{"role": newRole})
	}
	return nil
}

// CheckAssignee validates an assignment target: it must resolve to an
// admin account.
func CheckAssignee(assignee *domain.User) error {
	if assignee == nil || !assignee.IsAdmin() {
		return apperrors.NewInvalidAssignee(nil)
	}
	return nil
}
