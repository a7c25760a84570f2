package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/filter"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// TicketsHandler exposes ticket lifecycle and listing endpoints.
type TicketsHandler struct {
	tickets    *service.TicketService
	query      *service.TicketQueryService
	dispatcher events.Dispatcher
}

// NewTicketsHandler constructs handler. A nil dispatcher discards events.
func NewTicketsHandler(tickets *service.TicketService, query *service.TicketQueryService, dispatcher events.Dispatcher) *TicketsHandler {
	if dispatcher == nil {
		dispatcher = events.Discard
	}
	return &TicketsHandler{tickets: tickets, query: query, dispatcher: dispatcher}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.QueueID == "" || req.CategoryID == "" {
		return apperrors.NewValidationError("queue_id and category_id required", nil)
	}

	out, err := h.tickets.Create(c.UserContext(), principal.ID(), service.CreateInput{
		QueueID:     req.QueueID,
		CategoryID:  req.CategoryID,
		Title:       sanitizeText(req.Title),
		Details:     sanitizeText(req.Details),
		Priority:    req.Priority,
		DocumentIDs: req.DocumentIDs,
	})
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusCreated, out)
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	req, err := h.scopedRequest(c)
	if err != nil {
		return err
	}
	page, limit, err := parsePaging(c)
	if err != nil {
		return err
	}
	result, err := h.query.List(c.UserContext(), req, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.NewTicketResponses(result.Items),
		"meta": dto.PageMeta{Page: result.Page, Limit: result.Limit, Total: result.Total},
	})
}

// CountTickets GET /tickets/count.
func (h *TicketsHandler) CountTickets(c *fiber.Ctx) error {
	req, err := h.scopedRequest(c)
	if err != nil {
		return err
	}
	total, err := h.query.Count(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"count": total}})
}

// ExportTickets GET /tickets/export?format=xlsx|csv.
func (h *TicketsHandler) ExportTickets(c *fiber.Ctx) error {
	req, err := h.scopedRequest(c)
	if err != nil {
		return err
	}
	format := strings.ToLower(c.Query("format", "xlsx"))
	if format != "xlsx" && format != "csv" {
		return apperrors.NewValidationError("format must be xlsx or csv", map[string]any{"format": format})
	}

	tickets, err := h.query.All(c.UserContext(), req)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	contentType := "text/csv"
	if format == "csv" {
		err = service.WriteTicketsCSV(&buf, tickets)
	} else {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = service.WriteTicketsXLSX(&buf, tickets)
	}
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="tickets-%s.%s"`, time.Now().UTC().Format("20060102"), format))
	return c.Send(buf.Bytes())
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, _, err := visibleTicket(c, h.tickets)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.UpdateInput{
		Title:        sanitizePtr(req.Title),
		Details:      sanitizePtr(req.Details),
		CategoryID:   req.CategoryID,
		Priority:     req.Priority,
		Status:       req.Status,
		ClosingNotes: sanitizePtr(req.ClosingNotes),
	}
	var err error
	if input.AssignedToID, err = decodeNullable[string](req.AssignedToID, "assigned_to_id"); err != nil {
		return err
	}
	if input.ClosedAt, err = decodeNullable[time.Time](req.ClosedAt, "closed_at"); err != nil {
		return err
	}

	out, err := h.tickets.Update(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, out)
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.tickets.Remove(c.UserContext(), principal.ID(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AssignTicket POST /tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	out, err := h.tickets.Assign(c.UserContext(), principal.ID(), c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, out)
}

// ChangeStatus POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	out, err := h.tickets.ChangeStatus(c.UserContext(), principal.ID(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, out)
}

// ChangePriority POST /tickets/:id/priority.
func (h *TicketsHandler) ChangePriority(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChangePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	out, err := h.tickets.ChangePriority(c.UserContext(), principal.ID(), c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, out)
}

// ChangeCategory POST /tickets/:id/category.
func (h *TicketsHandler) ChangeCategory(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChangeCategoryRequest
	if err := c.BodyParser(&req); err != nil || req.CategoryID == "" {
		return apperrors.NewValidationError("category_id required", nil)
	}
	out, err := h.tickets.ChangeCategory(c.UserContext(), principal.ID(), c.Params("id"), req.CategoryID)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, out)
}

// AddDocument POST /tickets/:id/documents/:documentId.
func (h *TicketsHandler) AddDocument(c *fiber.Ctx) error {
	_, principal, err := visibleTicket(c, h.tickets)
	if err != nil {
		return err
	}
	out, err := h.tickets.AddDocument(c.UserContext(), principal.ID(), c.Params("id"), c.Params("documentId"))
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, out)
}

// RemoveDocument DELETE /tickets/:id/documents/:documentId.
func (h *TicketsHandler) RemoveDocument(c *fiber.Ctx) error {
	_, principal, err := visibleTicket(c, h.tickets)
	if err != nil {
		return err
	}
	out, err := h.tickets.RemoveDocument(c.UserContext(), principal.ID(), c.Params("id"), c.Params("documentId"))
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, out)
}

func (h *TicketsHandler) scopedRequest(c *fiber.Ctx) (filter.Request, error) {
	principal, err := requirePrincipal(c)
	if err != nil {
		return filter.Request{}, err
	}
	req, err := parseFilterRequest(c)
	if err != nil {
		return req, err
	}
	scopeToPrincipal(&req, principal)
	return req, nil
}

// respond hands the outcome's events to the dispatcher and writes the ticket.
func (h *TicketsHandler) respond(c *fiber.Ctx, status int, out *service.Outcome) error {
	if len(out.Events) > 0 {
		h.dispatcher.Dispatch(c.UserContext(), out.Events...)
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.NewTicketResponse(out.Ticket)})
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

// decodeNullable maps an absent key to unset and a JSON null to null.
func decodeNullable[T any](raw json.RawMessage, field string) (domain.Nullable[T], error) {
	if len(raw) == 0 {
		return domain.Nullable[T]{}, nil
	}
	if string(bytes.TrimSpace(raw)) == "null" {
		return domain.Null[T](), nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return domain.Nullable[T]{}, apperrors.NewValidationError("invalid "+field, nil)
	}
	return domain.Some(v), nil
}
