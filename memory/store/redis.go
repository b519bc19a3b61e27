package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

var _ Repository = (*RedisRepository)(nil)

const defaultRedisPrefix = "shopping:"

// KEYS: cart hash, order zset, sequence. ARGV: item, amount.
var addItemScript = redis.NewScript(`
local n = redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
if n <= 0 then
  redis.call('HDEL', KEYS[1], ARGV[1])
  redis.call('ZREM', KEYS[2], ARGV[1])
  return n
end
if redis.call('ZSCORE', KEYS[2], ARGV[1]) == false then
  local seq = redis.call('INCR', KEYS[3])
  redis.call('ZADD', KEYS[2], seq, ARGV[1])
end
return n
`)

// Returns -1 when the item is not in the cart.
var removeItemScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], ARGV[1])
if not cur then
  return -1
end
cur = tonumber(cur)
local amt = tonumber(ARGV[2])
if amt >= cur then
  redis.call('HDEL', KEYS[1], ARGV[1])
  redis.call('ZREM', KEYS[2], ARGV[1])
  return 0
end
return redis.call('HINCRBY', KEYS[1], ARGV[1], -amt)
`)

var readCartScript = redis.NewScript(`
local items = redis.call('ZRANGE', KEYS[2], 0, -1)
local out = {}
for _, item in ipairs(items) do
  local amt = redis.call('HGET', KEYS[1], item)
  if amt then
    table.insert(out, item)
    table.insert(out, amt)
  end
end
return out
`)

var clearCartScript = redis.NewScript(`
if redis.call('HLEN', KEYS[1]) == 0 then
  return 0
end
redis.call('DEL', KEYS[1], KEYS[2], KEYS[3])
return 1
`)

var appendContextScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  redis.call('APPEND', KEYS[1], ' ' .. ARGV[1])
else
  redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// KEYS: context, cart hash, order zset, sequence.
var clearUserScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('DEL', KEYS[1], KEYS[2], KEYS[3], KEYS[4])
return 1
`)

type RedisOption func(*RedisRepository)

func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisRepository) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// RedisRepository keeps, per user, a hash of item amounts, a sorted set
// recording insertion order and a string holding the context. Every
// read-modify-write runs as a Lua script.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRepository(client *redis.Client, opts ...RedisOption) *RedisRepository {
	r := &RedisRepository{
		client: client,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type userKeys struct {
	cart    string
	order   string
	seq     string
	context string
}

func (r *RedisRepository) keys(userID int64) userKeys {
	base := r.prefix + "user:" + strconv.FormatInt(userID, 10)
	return userKeys{
		cart:    base + ":cart",
		order:   base + ":cart:order",
		seq:     base + ":cart:seq",
		context: base + ":context",
	}
}

func (r *RedisRepository) Cart(ctx context.Context, userID int64) ([]LineItem, error) {
	k := r.keys(userID)
	raw, err := readCartScript.Run(ctx, r.client, []string{k.cart, k.order}).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}

	items := make([]LineItem, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		amount, err := strconv.Atoi(raw[i+1])
		if err != nil {
			return nil, fmt.Errorf("decode amount for %q: %w", raw[i], err)
		}
		items = append(items, LineItem{Item: raw[i], Amount: amount})
	}
	return items, nil
}

func (r *RedisRepository) Context(ctx context.Context, userID int64) (string, bool, error) {
	text, err := r.client.Get(ctx, r.keys(userID).context).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read context: %w", err)
	}
	return text, true, nil
}

func (r *RedisRepository) AddItem(ctx context.Context, userID int64, item string, amount int) error {
	if !validItem(item) {
		return fmt.Errorf("%w: item is empty", ErrInvalid)
	}
	k := r.keys(userID)
	if err := addItemScript.Run(ctx, r.client, []string{k.cart, k.order, k.seq}, item, amount).Err(); err != nil {
		return fmt.Errorf("add item: %w", err)
	}
	return nil
}

func (r *RedisRepository) RemoveItem(ctx context.Context, userID int64, item string, amount int) error {
	k := r.keys(userID)
	left, err := removeItemScript.Run(ctx, r.client, []string{k.cart, k.order}, item, amount).Int64()
	if err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	if left < 0 {
		return fmt.Errorf("%w: item %q not in cart", ErrNotFound, item)
	}
	return nil
}

func (r *RedisRepository) ClearCart(ctx context.Context, userID int64) error {
	k := r.keys(userID)
	cleared, err := clearCartScript.Run(ctx, r.client, []string{k.cart, k.order, k.seq}).Int64()
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if cleared == 0 {
		return fmt.Errorf("%w: cart is empty", ErrNotFound)
	}
	return nil
}

func (r *RedisRepository) AppendContext(ctx context.Context, userID int64, text string) error {
	if err := appendContextScript.Run(ctx, r.client, []string{r.keys(userID).context}, text).Err(); err != nil {
		return fmt.Errorf("append context: %w", err)
	}
	return nil
}

func (r *RedisRepository) ReplaceContext(ctx context.Context, userID int64, text string) error {
	if err := r.client.Set(ctx, r.keys(userID).context, text, 0).Err(); err != nil {
		return fmt.Errorf("replace context: %w", err)
	}
	return nil
}

func (r *RedisRepository) ClearContext(ctx context.Context, userID int64) error {
	n, err := r.client.Del(ctx, r.keys(userID).context).Result()
	if err != nil {
		return fmt.Errorf("clear context: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return nil
}

func (r *RedisRepository) ClearUser(ctx context.Context, userID int64) error {
	k := r.keys(userID)
	cleared, err := clearUserScript.Run(ctx, r.client, []string{k.context, k.cart, k.order, k.seq}).Int64()
	if err != nil {
		return fmt.Errorf("clear user: %w", err)
	}
	if cleared == 0 {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return nil
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}
