package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tably/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const holdKeyPrefix = "hold:slot:"

// releaseScript deletes a hold only when the stored token matches, so a
// stale caller cannot release someone else's hold.
var releaseScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if not raw then
	return 0
end
local hold = cjson.decode(raw)
if hold.token == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// HoldStore places short-lived exclusive holds on slots in Redis. A hold
// auto-expires with its TTL; expiry is the only silent reclamation in
// the booking path.
type HoldStore struct {
	client *redis.Client
}

// NewHoldStore creates a HoldStore on the given Redis client.
func NewHoldStore(client *redis.Client) *HoldStore {
	return &HoldStore{client: client}
}

// Acquire claims the slot for the TTL. It fails with a ConflictError
// when a live hold already exists.
func (h *HoldStore) Acquire(ctx context.Context, slot models.Slot, partySize int, ttl time.Duration) (*models.HoldToken, error) {
	token := models.HoldToken{
		Token:     uuid.New().String(),
		Slot:      slot,
		PartySize: partySize,
		ExpiresAt: time.Now().Add(ttl),
	}
	data, err := json.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal hold: %w", err)
	}

	ok, err := h.client.SetNX(ctx, holdKeyPrefix+slot.Key(), data, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to place hold: %w", err)
	}
	if !ok {
		return nil, NewConflictError(slot.Key())
	}
	return &token, nil
}

// Get retrieves the live hold on a slot, or nil when none exists.
func (h *HoldStore) Get(ctx context.Context, slotKey string) (*models.HoldToken, error) {
	raw, err := h.client.Get(ctx, holdKeyPrefix+slotKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read hold for slot %s: %w", slotKey, err)
	}
	var token models.HoldToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("failed to parse hold for slot %s: %w", slotKey, err)
	}
	return &token, nil
}

// Release removes the hold if the token still owns it.
func (h *HoldStore) Release(ctx context.Context, slotKey, token string) error {
	if err := releaseScript.Run(ctx, h.client, []string{holdKeyPrefix + slotKey}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release hold for slot %s: %w", slotKey, err)
	}
	return nil
}
