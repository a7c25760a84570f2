package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/config"
)

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage(" desk@example.com ", []string{"a@example.com", " ", "b@example.com"}, "Ticket closed", "body")
	require.NoError(t, err)
	assert.Equal(t, []string{"desk@example.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Ticket closed"}, msg.GetHeader("Subject"))

	tests := []struct {
		name    string
		from    string
		to      []string
		subject string
	}{
		{"no from", "", []string{"a@example.com"}, "s"},
		{"no recipients", "desk@example.com", []string{" "}, "s"},
		{"no subject", "desk@example.com", []string{"a@example.com"}, " "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildMessage(tt.from, tt.to, tt.subject, "body")
			assert.Error(t, err)
		})
	}
}

func TestSMTPSenderDisabled(t *testing.T) {
	s := NewSMTPSender(config.NotificationConfig{EmailEnabled: false})
	err := s.Send(context.Background(), []string{"a@example.com"}, "s", "b")
	assert.True(t, errors.Is(err, ErrDisabled))
}

type prefixKeys string

func (p prefixKeys) Key(parts ...string) string {
	return string(p) + "/" + strings.Join(parts, "/")
}

func TestInboxKeys(t *testing.T) {
	def := NewRedisInbox(nil, nil, 0)
	assert.Equal(t, "helpdesk:inbox:u1", def.inboxKey("u1"))
	assert.Equal(t, "helpdesk:notifications", def.Channel())

	custom := NewRedisInbox(nil, prefixKeys("desk-eu"), 0)
	assert.Equal(t, "desk-eu/inbox/u1", custom.inboxKey("u1"))
	assert.Equal(t, "desk-eu/notifications", custom.Channel())
}
