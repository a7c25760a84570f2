package filter

import (
	"strings"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// Set is a resolved membership constraint on one field.
type Set struct {
	Values []string
	// IncludeNull also accepts tickets where the field is null.
	IncludeNull bool
}

// TimeRange holds inclusive bounds; nil leaves that side open.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

func (r TimeRange) empty() bool {
	return r.From == nil && r.To == nil
}

// Resolved is the canonical form of a Request. A nil Set means the
// dimension is unconstrained.
type Resolved struct {
	Queue      *Set
	Category   *Set
	Status     *Set
	Priority   *Set
	AssignedTo *Set
	CreatedBy  *Set
	// Participants replaces AssignedTo and CreatedBy when non-empty.
	Participants []string
	Search       string
	Created      TimeRange
	Updated      TimeRange
	Closed       TimeRange

	HasDocuments    *bool
	HasComments     *bool
	IncludeArchived bool
	ServiceDesk     *ServiceDesk
}

// Resolve turns a Request into its canonical form.
//
//	dimension   | singular    | array              | outcome
//	------------+-------------+--------------------+------------------------------
//	queue       | QueueID     | QueueIDs           | singular wins, else array
//	category    | CategoryID  | CategoryIDs        | singular wins, else array
//	status      | Status      | Statuses           | singular wins, else array
//	priority    | Priority    | Priorities         | singular wins, else array
//	assignedTo  | AssignedTo  | AssignedToUserIDs  | singular wins; null = unassigned
//	createdBy   | CreatedBy   | CreatedByUserIDs   | singular wins, else array
//	userIds     | -           | UserIDs            | non-empty overrides assignedTo
//	            |             |                    | and createdBy entirely
//
// Empty arrays count as absent. Date bounds that do not parse fail with
// an INVALID_FILTER error.
func Resolve(req Request) (Resolved, error) {
	res := Resolved{
		Queue:           pick(req.QueueID, req.QueueIDs),
		Category:        pick(req.CategoryID, req.CategoryIDs),
		Status:          pick(req.Status, req.Statuses),
		Priority:        pick(req.Priority, req.Priorities),
		HasDocuments:    req.HasDocuments,
		HasComments:     req.HasComments,
		IncludeArchived: req.IncludeArchived,
		ServiceDesk:     req.ServiceDesk,
	}

	if participants := nonEmpty(req.UserIDs); len(participants) > 0 {
		res.Participants = participants
	} else {
		res.AssignedTo = pickAssignee(req.AssignedTo, req.AssignedToUserIDs)
		res.CreatedBy = pick(req.CreatedBy, req.CreatedByUserIDs)
	}

	if req.Search != nil {
		res.Search = strings.TrimSpace(*req.Search)
	}

	var err error
	if res.Created, err = parseRange("created", req.CreatedAfter, req.CreatedBefore); err != nil {
		return Resolved{}, err
	}
	if res.Updated, err = parseRange("updated", req.UpdatedAfter, req.UpdatedBefore); err != nil {
		return Resolved{}, err
	}
	if res.Closed, err = parseRange("closed", req.ClosedAfter, req.ClosedBefore); err != nil {
		return Resolved{}, err
	}
	return res, nil
}

func pick[T ~string](single *T, many []T) *Set {
	if single != nil {
		return &Set{Values: []string{string(*single)}}
	}
	if len(many) == 0 {
		return nil
	}
	values := make([]string, 0, len(many))
	for _, v := range many {
		values = append(values, string(v))
	}
	return &Set{Values: values}
}

func pickAssignee(single domain.Nullable[string], many []*string) *Set {
	if single.Set {
		if single.Value == nil {
			return &Set{IncludeNull: true}
		}
		return &Set{Values: []string{*single.Value}}
	}
	if len(many) == 0 {
		return nil
	}
	set := &Set{}
	for _, v := range many {
		if v == nil {
			set.IncludeNull = true
			continue
		}
		set.Values = append(set.Values, *v)
	}
	return set
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDate parses a filter date bound.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func parseRange(name, after, before string) (TimeRange, error) {
	var r TimeRange
	if strings.TrimSpace(after) != "" {
		t, err := ParseDate(after)
		if err != nil {
			return r, apperrors.NewInvalidFilter("invalid date bound", map[string]any{"field": name + "After", "value": after})
		}
		r.From = &t
	}
	if strings.TrimSpace(before) != "" {
		t, err := ParseDate(before)
		if err != nil {
			return r, apperrors.NewInvalidFilter("invalid date bound", map[string]any{"field": name + "Before", "value": before})
		}
		r.To = &t
	}
	return r, nil
}
