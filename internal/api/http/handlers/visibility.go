package handlers

import (
	"slices"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// canView applies the listing scope to a single ticket.
func canView(p *auth.Principal, t *domain.Ticket) bool {
	switch p.User.Role {
	case domain.UserRoleAdmin:
		return true
	case domain.UserRoleAgent:
		return t.CreatedByID == p.User.ID || slices.Contains(p.User.QueueIDs, t.QueueID)
	default:
		return t.CreatedByID == p.User.ID
	}
}

// visibleTicket loads the ticket named by the id route param. Tickets outside
// the caller's scope are reported as NOT_FOUND, as if absent.
func visibleTicket(c *fiber.Ctx, tickets *service.TicketService) (*domain.Ticket, *auth.Principal, error) {
	principal, err := requirePrincipal(c)
	if err != nil {
		return nil, nil, err
	}
	id := c.Params("id")
	ticket, err := tickets.Get(c.UserContext(), id)
	if err != nil {
		return nil, nil, err
	}
	if !canView(principal, ticket) {
		return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return ticket, principal, nil
}
