package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	// Addr is the server address, host:port.
	Addr     string
	Password string
	DB       int

	// DialTimeout bounds the initial ping.
	DialTimeout time.Duration
}

// DefaultRedisConfig returns a config for a local server.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:        "localhost:6379",
		DialTimeout: 5 * time.Second,
	}
}

// Validate checks that the configuration is usable.
func (c *RedisConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("redis address is required")
	}
	if c.DB < 0 {
		return fmt.Errorf("redis db must be >= 0, got %d", c.DB)
	}
	return nil
}

// Redis is a bus over Redis pub/sub. Each topic is a Redis channel.
type Redis struct {
	cfg    RedisConfig
	client *redis.Client
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[*redisSub]struct{}
	closed bool
	wg     sync.WaitGroup

	sent         atomic.Int64
	received     atomic.Int64
	decodeErrors atomic.Int64
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*Redis, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "bus.redis")

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}

	logger.Info("connecting to redis", "addr", cfg.Addr, "db", cfg.DB)
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	logger.Info("connected to redis", "addr", cfg.Addr)

	return &Redis{
		cfg:    cfg,
		client: client,
		logger: logger,
		subs:   make(map[*redisSub]struct{}),
	}, nil
}

// Publish implements Publisher.
func (r *Redis) Publish(ctx context.Context, topic string, payload any) error {
	if r.isClosed() {
		return ErrClosed
	}
	msg, err := NewMessage(topic, payload)
	if err != nil {
		return err
	}
	data, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", topic, err)
	}
	if err := r.client.Publish(ctx, topic, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	r.sent.Add(1)
	return nil
}

type redisSub struct {
	ps   *redis.PubSub
	bus  *Redis
	once sync.Once
}

// Subscribe implements Subscriber. The subscription is confirmed by the
// server before Subscribe returns.
func (r *Redis) Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error) {
	if h == nil {
		return nil, fmt.Errorf("subscribe %s: nil handler", topic)
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	r.mu.Unlock()

	ps := r.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	sub := &redisSub{ps: ps, bus: r}
	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()

	r.wg.Add(1)
	go r.deliver(topic, ps.Channel(), h)

	r.logger.Debug("subscribed to topic", "topic", topic)
	return sub, nil
}

func (r *Redis) deliver(topic string, ch <-chan *redis.Message, h Handler) {
	defer r.wg.Done()
	for raw := range ch {
		msg, err := ParseMessage([]byte(raw.Payload))
		if err != nil {
			r.decodeErrors.Add(1)
			r.logger.Warn("dropping malformed message", "topic", topic, "error", err)
			continue
		}
		if msg.Topic == "" {
			msg.Topic = raw.Channel
		}
		r.received.Add(1)
		h(msg)
	}
}

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
		err = s.ps.Close()
	})
	return err
}

func (r *Redis) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Stats implements Bus.
func (r *Redis) Stats() Stats {
	return Stats{
		Connected:        !r.isClosed(),
		MessagesSent:     r.sent.Load(),
		MessagesReceived: r.received.Load(),
		DecodeErrors:     r.decodeErrors.Load(),
	}
}

// Close closes every subscription, waits for their handlers to return and
// closes the client.
func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	subs := make([]*redisSub, 0, len(r.subs))
	for s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	var errs []error
	for _, s := range subs {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.wg.Wait()

	if err := r.client.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
	}
	r.logger.Info("redis bus closed")
	return errors.Join(errs...)
}
