package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/filter"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// nullLiteral in assignedTo or assignedToUserIds selects unassigned tickets.
const nullLiteral = "null"

func parseFilterRequest(c *fiber.Ctx) (filter.Request, error) {
	req := filter.Request{
		QueueID:          optional(c.Query("queueId")),
		QueueIDs:         csv(c.Query("queueIds")),
		CategoryID:       optional(c.Query("categoryId")),
		CategoryIDs:      csv(c.Query("categoryIds")),
		CreatedBy:        optional(c.Query("createdBy")),
		CreatedByUserIDs: csv(c.Query("createdByUserIds")),
		UserIDs:          csv(c.Query("userIds")),
		Search:           optional(c.Query("search")),
		CreatedAfter:     c.Query("createdAfter"),
		CreatedBefore:    c.Query("createdBefore"),
		UpdatedAfter:     c.Query("updatedAfter"),
		UpdatedBefore:    c.Query("updatedBefore"),
		ClosedAfter:      c.Query("closedAfter"),
		ClosedBefore:     c.Query("closedBefore"),
	}

	if v := optional(c.Query("status")); v != nil {
		s := domain.TicketStatus(*v)
		req.Status = &s
	}
	for _, v := range csv(c.Query("statuses")) {
		req.Statuses = append(req.Statuses, domain.TicketStatus(v))
	}
	if v := optional(c.Query("priority")); v != nil {
		p := domain.TicketPriority(*v)
		req.Priority = &p
	}
	for _, v := range csv(c.Query("priorities")) {
		req.Priorities = append(req.Priorities, domain.TicketPriority(v))
	}

	if v := optional(c.Query("assignedTo")); v != nil {
		if *v == nullLiteral {
			req.AssignedTo = domain.Null[string]()
		} else {
			req.AssignedTo = domain.Some(*v)
		}
	}
	for _, v := range csv(c.Query("assignedToUserIds")) {
		if v == nullLiteral {
			req.AssignedToUserIDs = append(req.AssignedToUserIDs, nil)
			continue
		}
		id := v
		req.AssignedToUserIDs = append(req.AssignedToUserIDs, &id)
	}

	var err error
	if req.HasDocuments, err = queryBool(c, "hasDocuments"); err != nil {
		return req, err
	}
	if req.HasComments, err = queryBool(c, "hasComments"); err != nil {
		return req, err
	}
	archived, err := queryBool(c, "includeArchived")
	if err != nil {
		return req, err
	}
	req.IncludeArchived = archived != nil && *archived

	return req, nil
}

// scopeToPrincipal limits what non-administrators can list: agents see
// their queues plus their own tickets, requesters only their own.
func scopeToPrincipal(req *filter.Request, p *auth.Principal) {
	switch p.User.Role {
	case domain.UserRoleAdmin:
	case domain.UserRoleAgent:
		req.ServiceDesk = &filter.ServiceDesk{QueueIDs: p.User.QueueIDs, UserID: p.User.ID}
	default:
		req.ServiceDesk = &filter.ServiceDesk{UserID: p.User.ID}
	}
}

func parsePaging(c *fiber.Ctx) (int, int, error) {
	page, err := queryInt(c, "page")
	if err != nil {
		return 0, 0, err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	return page, limit, nil
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperrors.NewValidationError("invalid "+key, map[string]any{key: raw})
	}
	return v, nil
}

func queryBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.NewInvalidFilter("invalid boolean", map[string]any{"field": key, "value": raw})
	}
	return &v, nil
}

func optional(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}

func csv(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
