package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by RedisGateway.
const DefaultPrefix = "neutral-reader:"

type redisChange struct {
	Origin string   `json:"origin"`
	Keys   []string `json:"keys"`
}

// RedisGateway stores values as plain redis strings. Writes are announced on
// a pub/sub channel so other processes sharing the instance observe them.
type RedisGateway struct {
	rdb    *redis.Client
	prefix string
	origin string
	ls     listeners
	ps     *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRedisGateway subscribes to the change channel and returns the gateway.
func NewRedisGateway(ctx context.Context, rdb *redis.Client, prefix string) (*RedisGateway, error) {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultPrefix
	}
	g := &RedisGateway{
		rdb:    rdb,
		prefix: prefix,
		origin: fmt.Sprintf("%d-%d", os.Getpid(), time.Now().UnixNano()),
		done:   make(chan struct{}),
	}
	ps := rdb.Subscribe(ctx, g.channel())
	// Wait for the subscription confirmation so early writes are not missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", g.channel(), err)
	}
	g.ps = ps
	loopCtx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	go g.loop(loopCtx)
	return g, nil
}

func (g *RedisGateway) channel() string {
	return g.prefix + "changes"
}

func (g *RedisGateway) key(k string) string {
	return g.prefix + k
}

func (g *RedisGateway) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = g.key(k)
	}
	vals, err := g.rdb.MGet(ctx, full...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		out[keys[i]] = []byte(s)
	}
	return out, nil
}

func (g *RedisGateway) Set(ctx context.Context, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	keys := keysOf(values)
	payload, err := json.Marshal(redisChange{Origin: g.origin, Keys: keys})
	if err != nil {
		return err
	}
	_, err = g.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range values {
			p.Set(ctx, g.key(k), v, 0)
		}
		p.Publish(ctx, g.channel(), payload)
		return nil
	})
	if err != nil {
		return err
	}
	g.ls.notify(Change{Keys: keys})
	return nil
}

func (g *RedisGateway) OnChange(fn func(Change)) func() {
	return g.ls.add(fn)
}

// loop forwards changes written by other processes to local listeners.
func (g *RedisGateway) loop(ctx context.Context) {
	defer close(g.done)
	ch := g.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var c redisChange
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				slog.Warn("kv: bad change payload", "channel", msg.Channel, "error", err)
				continue
			}
			if c.Origin == g.origin {
				continue
			}
			g.ls.notify(Change{Keys: c.Keys})
		}
	}
}

// Close stops the change subscription. The redis client is owned by the caller.
func (g *RedisGateway) Close() error {
	g.cancel()
	err := g.ps.Close()
	<-g.done
	return err
}

// Ping checks the redis connection.
func (g *RedisGateway) Ping(ctx context.Context) error {
	return g.rdb.Ping(ctx).Err()
}
