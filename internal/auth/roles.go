package auth

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

// RequireRole ensures the principal has one of the allowed roles.
func RequireRole(allowed ...domain.UserRole) fiber.Handler {
	allowedSet := make(map[domain.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[principal.User.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// AdminChecker grants admin capability to users with the ADMIN role.
type AdminChecker struct {
	users repository.UserRepository
}

// NewAdminChecker builds the checker.
func NewAdminChecker(users repository.UserRepository) *AdminChecker {
	return &AdminChecker{users: users}
}

// HasAdminCapability reports whether actorID is an active administrator.
// Unknown users are not administrators.
func (a *AdminChecker) HasAdminCapability(ctx context.Context, actorID string) (bool, error) {
	user, err := a.users.GetByID(ctx, actorID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.IsAdmin() && user.Status == domain.UserStatusActive, nil
}
