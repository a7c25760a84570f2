package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/errorutil"
)

type memoryUsers struct {
	byID map[string]*domain.User
}

func (m *memoryUsers) Create(_ context.Context, user *domain.User) error {
	user.ID = fmt.Sprintf("u%d", len(m.byID)+1)
	m.byID[user.ID] = user
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func TestAuthRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	users := &memoryUsers{byID: map[string]*domain.User{}}
	tokens := auth.NewTokenManager("secret", time.Hour)
	svc := NewAuthService(users, tokens, bcrypt.MinCost)

	session, err := svc.Register(ctx, "Alice", " Alice@Example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", session.User.Email)
	assert.Equal(t, domain.UserRoleUser, session.User.Role)

	claims, err := svc.TokenManager().ParseToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.Subject)

	_, err = svc.Register(ctx, "Again", "alice@example.com", "pw")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = svc.Login(ctx, "alice@example.com", "pw")
	assert.NoError(t, err)

	_, err = svc.Login(ctx, "alice@example.com", "wrong")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	_, err = svc.Login(ctx, "nobody@example.com", "pw")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	session.User.Status = domain.UserStatusSuspended
	_, err = svc.Login(ctx, "alice@example.com", "pw")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestAuthRegisterRejectsLongPassword(t *testing.T) {
	users := &memoryUsers{byID: map[string]*domain.User{}}
	svc := NewAuthService(users, auth.NewTokenManager("secret", time.Hour), bcrypt.MinCost)

	_, err := svc.Register(context.Background(), "Bob", "bob@example.com", strings.Repeat("p", auth.MaxPasswordBytes+1))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Empty(t, users.byID, "nothing stored")
}
