package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	CACHE_PREFIX               = "restro:"
	AVAILABLE_TABLES_CACHE_KEY = CACHE_PREFIX + "tables:available:"
	MENU_CACHE_KEY             = CACHE_PREFIX + "menu:"
	EVENTS_CHANNEL_PREFIX      = CACHE_PREFIX + "events:"
	EVENTS_CHANNEL_ALL         = CACHE_PREFIX + "events:all"
	TABLES_GENERATION_KEY      = CACHE_PREFIX + "gen:tables"
	MENU_GENERATION_KEY        = CACHE_PREFIX + "gen:menu"

	EventOrderCreated         = "order.created"
	EventOrderUpdated         = "order.updated"
	EventOrderDeleted         = "order.deleted"
	EventBillPaid             = "bill.paid"
	EventReservationCreated   = "reservation.created"
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
	EventTableStatusChanged   = "table.status_changed"
)

// Cache wraps an optional redis client. A nil *Cache, or one built with a nil
// client, turns every call into a miss or a no-op.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

func New(redisClient *redis.Client, ttl time.Duration) *Cache {
	return &Cache{redis: redisClient, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.redis != nil
}

// GetJSON decodes the cached value into dest and reports whether it was found.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if !c.enabled() {
		return false
	}
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logrus.WithError(err).WithField("key", key).Warn("cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache entry is corrupt, dropping it")
		_ = c.redis.Del(ctx, key)
		return false
	}
	return true
}

// Generation is the value of an invalidation counter taken before a read.
// A fill made with a Generation is dropped when an invalidation happened in
// between, so a read that raced a commit cannot repopulate stale data.
type Generation struct {
	key   string
	value int64
	ok    bool
}

func (c *Cache) TablesGeneration(ctx context.Context) Generation {
	return c.generation(ctx, TABLES_GENERATION_KEY)
}

func (c *Cache) MenuGeneration(ctx context.Context) Generation {
	return c.generation(ctx, MENU_GENERATION_KEY)
}

func (c *Cache) generation(ctx context.Context, key string) Generation {
	if !c.enabled() {
		return Generation{key: key}
	}
	v, err := c.redis.Get(ctx, key).Int64()
	if err != nil && err != redis.Nil {
		logrus.WithError(err).WithField("key", key).Warn("cache generation read failed")
		return Generation{key: key}
	}
	return Generation{key: key, value: v, ok: true}
}

// SetJSONAt stores value only if the generation counter still equals gen.
// The check and the write run in one WATCH/MULTI transaction.
func (c *Cache) SetJSONAt(ctx context.Context, key string, value interface{}, gen Generation) {
	if !c.enabled() || !gen.ok {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache encode failed")
		return
	}

	err = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, gen.key).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != gen.value {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, c.ttl)
			return nil
		})
		return err
	}, gen.key)

	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		logrus.WithField("key", key).Debug("cache fill skipped after invalidation")
	default:
		logrus.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

var errStaleGeneration = errors.New("cache generation moved")

func AvailableTablesKey(minCapacity int) string {
	return fmt.Sprintf("%s%d", AVAILABLE_TABLES_CACHE_KEY, minCapacity)
}

func MenuKey(categoryID uint, search string, page, size int) string {
	return fmt.Sprintf("%s%d:%s:%d:%d", MENU_CACHE_KEY, categoryID, search, page, size)
}

func (c *Cache) InvalidateTables(ctx context.Context) {
	c.bumpGeneration(ctx, TABLES_GENERATION_KEY)
	c.deletePrefix(ctx, AVAILABLE_TABLES_CACHE_KEY)
}

func (c *Cache) InvalidateMenu(ctx context.Context) {
	c.bumpGeneration(ctx, MENU_GENERATION_KEY)
	c.deletePrefix(ctx, MENU_CACHE_KEY)
}

func (c *Cache) bumpGeneration(ctx context.Context, key string) {
	if !c.enabled() {
		return
	}
	if err := c.redis.Incr(ctx, key).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("cache generation bump failed")
	}
}

func (c *Cache) deletePrefix(ctx context.Context, prefix string) {
	if !c.enabled() {
		return
	}
	iter := c.redis.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logrus.WithError(err).WithField("prefix", prefix).Warn("cache scan failed")
		return
	}
	if len(keys) > 0 {
		_ = c.redis.Del(ctx, keys...)
	}
}

// -- Pub/Sub Related --
type Event struct {
	EventType     string    `json:"event_type"`
	OrderID       uint      `json:"order_id,omitempty"`
	BillID        uint      `json:"bill_id,omitempty"`
	ReservationID uint      `json:"reservation_id,omitempty"`
	TableID       uint      `json:"table_id,omitempty"`
	TableStatus   string    `json:"table_status,omitempty"`
	TotalAmount   string    `json:"total_amount,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func (c *Cache) Publish(ctx context.Context, event Event) error {
	if !c.enabled() {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := EVENTS_CHANNEL_PREFIX + event.EventType
	if err := c.redis.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if err := c.redis.Publish(ctx, EVENTS_CHANNEL_ALL, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish to all channel: %w", err)
	}

	return nil
}

// Notify publishes on a detached context and only logs failures. It is meant
// for after-commit hooks where the request context may already be done.
func (c *Cache) Notify(event Event) {
	if !c.enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Publish(ctx, event); err != nil {
		logrus.WithError(err).WithField("event", event.EventType).Warn("event publish failed")
	}
}

func (c *Cache) Ping(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}
