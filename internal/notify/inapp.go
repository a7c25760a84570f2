package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyNamer namespaces Redis keys.
type KeyNamer interface {
	Key(parts ...string) string
}

type defaultKeys struct{}

func (defaultKeys) Key(parts ...string) string {
	return "helpdesk:" + strings.Join(parts, ":")
}

// Notification is one in-app inbox entry.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TicketID  string    `json:"ticket_id"`
	EventType string    `json:"event_type"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisInbox keeps a capped, newest-first list of notifications per user.
// Every stored entry is also published on the notifications channel.
type RedisInbox struct {
	client *redis.Client
	keys   KeyNamer
	size   int64
}

// NewRedisInbox keeps at most size entries per user. A nil keys uses the
// "helpdesk" prefix.
func NewRedisInbox(client *redis.Client, keys KeyNamer, size int64) *RedisInbox {
	if size <= 0 {
		size = 200
	}
	if keys == nil {
		keys = defaultKeys{}
	}
	return &RedisInbox{client: client, keys: keys, size: size}
}

func (r *RedisInbox) inboxKey(userID string) string {
	return r.keys.Key("inbox", userID)
}

// Channel is where Push announces new entries.
func (r *RedisInbox) Channel() string {
	return r.keys.Key("notifications")
}

// Push stores n at the head of the user's inbox and announces it.
func (r *RedisInbox) Push(ctx context.Context, n Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	key := r.inboxKey(n.UserID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, raw)
		pipe.LTrim(ctx, key, 0, r.size-1)
		pipe.Publish(ctx, r.Channel(), raw)
		return nil
	})
	return err
}

// List returns up to limit of the user's newest notifications.
func (r *RedisInbox) List(ctx context.Context, userID string, limit int64) ([]Notification, error) {
	if limit <= 0 || limit > r.size {
		limit = r.size
	}
	raws, err := r.client.LRange(ctx, r.inboxKey(userID), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(raws))
	for _, raw := range raws {
		var n Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}
