package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-api/internal/api/dto"
	"github.com/spec-kit/helpdesk-api/internal/auth"
	"github.com/spec-kit/helpdesk-api/internal/service"
	apperrors "github.com/spec-kit/helpdesk-api/pkg/util"
)

// AdminHandler manages user administration and the dashboard.
type AdminHandler struct {
	service *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{service: adminService}
}

// ListUsers GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	input := service.UserListInput{
		Search: c.Query("search"),
		Role:   c.Query("role"),
		Page:   parseInt(c.Query("page"), 1),
	}
	page, err := h.service.ListUsers(c.Context(), input)
	if err != nil {
		return err
	}

	items := make([]dto.UserListItem, 0, len(page.Items))
	for i := range page.Items {
		row := &page.Items[i]
		items = append(items, dto.UserListItem{
			UserView:    *dto.NewUserView(&row.User),
			TicketCount: row.TicketCount,
		})
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"users":      items,
		"pagination": paginationView(page.Total, page.Page, page.PageSize, page.TotalPages),
	})
}

// UpdateUserRole PUT /admin/users/:id/role.
func (h *AdminHandler) UpdateUserRole(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.service.UpdateUserRole(c.Context(), principal, c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    dto.NewUserView(user),
	})
}

// AssignTicket POST /admin/tickets/:id/assign.
func (h *AdminHandler) AssignTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AdminID == "" {
		return apperrors.NewValidationError("admin_id is required", nil)
	}
	snapshot, err := h.service.AssignTicket(c.Context(), principal, c.Params("id"), req.AdminID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"ticket":  ticketView(snapshot),
	})
}

// ListAdmins GET /admin/admins.
func (h *AdminHandler) ListAdmins(c *fiber.Ctx) error {
	admins, err := h.service.ListAdmins(c.Context())
	if err != nil {
		return err
	}
	views := make([]dto.AdminView, 0, len(admins))
	for _, admin := range admins {
		views = append(views, dto.AdminView{
			ID:    admin.ID,
			Name:  admin.Name,
			Email: admin.Email,
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"admins":  views,
	})
}

// GetDashboardStats GET /admin/dashboard-stats.
func (h *AdminHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.GetDashboardStats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"stats": dto.DashboardStatsView{
			TotalTickets:  stats.TotalTickets,
			TotalUsers:    stats.TotalUsers,
			TotalAdmins:   stats.TotalAdmins,
			ByStatus:      stats.ByStatus,
			ByCategory:    stats.ByCategory,
			ByPriority:    stats.ByPriority,
			RecentTickets: ticketViews(stats.RecentTickets),
		},
	})
}
