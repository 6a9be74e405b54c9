package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-api/internal/domain"
	"github.com/spec-kit/helpdesk-api/internal/events"
)

func TestListUsers_SearchAndRoleFilter(t *testing.T) {
	fx := newServiceFixture()
	alice := fx.store.addUser("alice", domain.RoleUser)
	fx.store.addUser("bob", domain.RoleUser)
	fx.store.addUser("carol", domain.RoleAdmin)
	ctx := context.Background()

	mustCreateTicket(t, fx, alice, "one")
	mustCreateTicket(t, fx, alice, "two")

	page, err := fx.adminSvc.ListUsers(ctx, UserListInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, PageSize, page.PageSize)

	page, err = fx.adminSvc.ListUsers(ctx, UserListInput{Search: "ali"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, alice.ID, page.Items[0].User.ID)
	assert.Equal(t, 2, page.Items[0].TicketCount)

	page, err = fx.adminSvc.ListUsers(ctx, UserListInput{Role: "admin"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, domain.RoleAdmin, page.Items[0].User.Role)

	// "all" is a no-op role filter.
	page, err = fx.adminSvc.ListUsers(ctx, UserListInput{Role: "all"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
}

func TestUpdateUserRole(t *testing.T) {
	fx := newServiceFixture()
	admin := fx.store.addUser("root", domain.RoleAdmin)
	user := fx.store.addUser("alice", domain.RoleUser)
	ctx := context.Background()

	updated, err := fx.adminSvc.UpdateUserRole(ctx, admin, user.ID, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, updated.Role)

	stored, err := fx.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, stored.Role)

	changed := fx.dispatcher.byType(events.EventUserRoleChanged)
	require.Len(t, changed, 1)
	payload, ok := changed[0].Payload.(events.UserRoleChangedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.RoleUser, payload.OldRole)
	assert.Equal(t, domain.RoleAdmin, payload.NewRole)
}

func TestUpdateUserRole_Denied(t *testing.T) {
	fx := newServiceFixture()
	admin := fx.store.addUser("root", domain.RoleAdmin)
	user := fx.store.addUser("alice", domain.RoleUser)
	ctx := context.Background()

	_, err := fx.adminSvc.UpdateUserRole(ctx, admin, admin.ID, domain.RoleUser)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	stored, err := fx.users.GetByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, stored.Role, "self role change must not persist")

	_, err = fx.adminSvc.UpdateUserRole(ctx, user, admin.ID, domain.RoleUser)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = fx.adminSvc.UpdateUserRole(ctx, admin, "user-9999", domain.RoleAdmin)
	assert.Equal(t, "NOT_FOUND", errCode(t, err))

	_, err = fx.adminSvc.UpdateUserRole(ctx, admin, user.ID, domain.Role("owner"))
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestAssignTicket(t *testing.T) {
	fx := newServiceFixture()
	admin := fx.store.addUser("root", domain.RoleAdmin)
	helper := fx.store.addUser("helper", domain.RoleAdmin)
	owner := fx.store.addUser("alice", domain.RoleUser)
	ctx := context.Background()

	created := mustCreateTicket(t, fx, owner, "Alice ticket")

	snapshot, err := fx.adminSvc.AssignTicket(ctx, admin, created.Ticket.ID, helper.ID)
	require.NoError(t, err)
	require.NotNil(t, snapshot.Ticket.AssigneeID)
	assert.Equal(t, helper.ID, *snapshot.Ticket.AssigneeID)
	assert.Equal(t, domain.TicketStatusOpen, snapshot.Ticket.Status, "assignment does not touch status")
	require.NotNil(t, snapshot.Assignee)
	assert.Equal(t, helper.ID, snapshot.Assignee.ID)
	assert.Len(t, snapshot.Responses, 1, "assignment result carries the full thread")

	assert.Len(t, fx.dispatcher.byType(events.EventTicketAssigned), 1)
}

func TestAssignTicket_Denied(t *testing.T) {
	fx := newServiceFixture()
	admin := fx.store.addUser("root", domain.RoleAdmin)
	owner := fx.store.addUser("alice", domain.RoleUser)
	ctx := context.Background()

	created := mustCreateTicket(t, fx, owner, "Alice ticket")

	_, err := fx.adminSvc.AssignTicket(ctx, owner, created.Ticket.ID, admin.ID)
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	_, err = fx.adminSvc.AssignTicket(ctx, admin, created.Ticket.ID, owner.ID)
	assert.Equal(t, "INVALID_ASSIGNEE", errCode(t, err))

	stored, err := fx.tickets.GetByID(ctx, created.Ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssigneeID, "failed assignment leaves the assignee unchanged")

	_, err = fx.adminSvc.AssignTicket(ctx, admin, "missing", admin.ID)
	assert.Equal(t, "NOT_FOUND", errCode(t, err))

	_, err = fx.adminSvc.AssignTicket(ctx, admin, created.Ticket.ID, "user-9999")
	assert.Equal(t, "NOT_FOUND", errCode(t, err))
}

func TestListAdmins(t *testing.T) {
	fx := newServiceFixture()
	fx.store.addUser("zed", domain.RoleAdmin)
	fx.store.addUser("amy", domain.RoleAdmin)
	fx.store.addUser("bob", domain.RoleUser)

	admins, err := fx.adminSvc.ListAdmins(context.Background())
	require.NoError(t, err)
	require.Len(t, admins, 2)
	assert.Equal(t, "amy", admins[0].Name)
	assert.Equal(t, "zed", admins[1].Name)
	assert.NotEmpty(t, admins[0].Email)
}

func TestGetDashboardStats(t *testing.T) {
	fx := newServiceFixture()
	admin := fx.store.addUser("root", domain.RoleAdmin)
	alice := fx.store.addUser("alice", domain.RoleUser)
	bob := fx.store.addUser("bob", domain.RoleUser)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		mustCreateTicket(t, fx, alice, "alice ticket")
	}
	for i := 0; i < 3; i++ {
		mustCreateTicket(t, fx, bob, "bob ticket")
	}
	closed := domain.TicketStatusClosed
	latest := mustCreateTicket(t, fx, bob, "latest ticket")
	_, err := fx.ticketSvc.UpdateTicket(ctx, admin, latest.Ticket.ID, TicketUpdateInput{Status: &closed})
	require.NoError(t, err)

	stats, err := fx.adminSvc.GetDashboardStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 8, stats.TotalTickets)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.TotalAdmins)
	assert.Equal(t, 7, stats.ByStatus[domain.TicketStatusOpen])
	assert.Equal(t, 1, stats.ByStatus[domain.TicketStatusClosed])
	assert.Equal(t, 0, stats.ByStatus[domain.TicketStatusResolved])

	require.Len(t, stats.RecentTickets, 5)
	assert.Equal(t, latest.Ticket.ID, stats.RecentTickets[0].Ticket.ID)
	assert.Empty(t, stats.RecentTickets[0].Responses, "dashboard omits response threads")
	require.NotNil(t, stats.RecentTickets[0].Owner)
	assert.Equal(t, bob.ID, stats.RecentTickets[0].Owner.ID)
}
