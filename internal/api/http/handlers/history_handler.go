package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// HistoryHandler serves a ticket's audit trail and comments.
type HistoryHandler struct {
	tickets    *service.TicketService
	history    *service.HistoryService
	dispatcher events.Dispatcher
}

// NewHistoryHandler constructs handler. A nil dispatcher discards events.
func NewHistoryHandler(tickets *service.TicketService, history *service.HistoryService, dispatcher events.Dispatcher) *HistoryHandler {
	if dispatcher == nil {
		dispatcher = events.Discard
	}
	return &HistoryHandler{tickets: tickets, history: history, dispatcher: dispatcher}
}

// ListHistory GET /tickets/:id/history.
func (h *HistoryHandler) ListHistory(c *fiber.Ctx) error {
	ticket, _, err := visibleTicket(c, h.tickets)
	if err != nil {
		return err
	}
	items, err := h.history.ListByTicket(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	out := make([]dto.HistoryItemResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewHistoryItemResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// AddComment POST /tickets/:id/history.
func (h *HistoryHandler) AddComment(c *fiber.Ctx) error {
	_, principal, err := visibleTicket(c, h.tickets)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	out, err := h.tickets.AddComment(c.UserContext(), principal.ID(), c.Params("id"), sanitizeText(req.Body))
	if err != nil {
		return err
	}
	h.dispatcher.Dispatch(c.UserContext(), out.Events...)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewHistoryItemResponse(out.Entry)})
}

// RemoveComment DELETE /tickets/:id/comments/:commentId.
func (h *HistoryHandler) RemoveComment(c *fiber.Ctx) error {
	_, principal, err := visibleTicket(c, h.tickets)
	if err != nil {
		return err
	}
	if err := h.tickets.RemoveComment(c.UserContext(), principal.ID(), c.Params("id"), c.Params("commentId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
