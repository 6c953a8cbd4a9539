package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis list holding pending task ids.
const DefaultKey = "muse:tasks:pending"

// popTimeout bounds each BRPOP so consumers notice shutdown promptly.
const popTimeout = 5 * time.Second

// Handler processes one dequeued task id.
type Handler func(ctx context.Context, taskID uuid.UUID) error

// Config holds queue configuration.
type Config struct {
	// Key is the Redis list name. Empty means DefaultKey.
	Key string

	// Consumers is the number of concurrent consumer goroutines.
	// Zero or negative means 1.
	Consumers int
}

// RedisQueue is a durable FIFO task queue on a Redis list.
type RedisQueue struct {
	client     *redis.Client
	key        string
	consumers  int
	handler    Handler
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	started    bool
}

// NewRedisQueue connects to Redis and verifies the connection.
func NewRedisQueue(ctx context.Context, redisURL string, cfg Config, logger *slog.Logger) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}
	consumers := cfg.Consumers
	if consumers < 1 {
		consumers = 1
	}

	return &RedisQueue{
		client:    client,
		key:       key,
		consumers: consumers,
		logger:    logger.With(slog.String("component", "queue")),
	}, nil
}

// Enqueue pushes a task id onto the queue.
func (q *RedisQueue) Enqueue(ctx context.Context, taskID uuid.UUID) error {
	if err := q.client.LPush(ctx, q.key, taskID.String()).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Depth returns the number of pending task ids.
func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue depth: %w", err)
	}
	return n, nil
}

// Start launches the consumer pool feeding the given handler. It
// returns immediately; consumers run until Stop is called.
func (q *RedisQueue) Start(handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return errors.New("queue already started")
	}
	q.started = true
	q.handler = handler

	ctx, cancel := context.WithCancel(context.Background())
	q.cancelFunc = cancel

	for i := 0; i < q.consumers; i++ {
		q.wg.Add(1)
		go q.consume(ctx, i)
	}

	// A backlog at startup means deliveries survived a restart.
	depth, err := q.Depth(ctx)
	if err != nil {
		q.logger.Warn("failed to read queue depth", slog.String("error", err.Error()))
		depth = -1
	}
	q.logger.Info("queue consumers started",
		slog.Int("consumers", q.consumers),
		slog.String("key", q.key),
		slog.Int64("pending", depth))
	return nil
}

// Stop shuts down the consumer pool, waiting for in-flight handlers
// to finish, and closes the Redis connection.
func (q *RedisQueue) Stop() error {
	q.mu.Lock()
	if q.started && q.cancelFunc != nil {
		q.cancelFunc()
	}
	q.started = false
	q.mu.Unlock()

	q.wg.Wait()
	return q.client.Close()
}

func (q *RedisQueue) consume(ctx context.Context, id int) {
	defer q.wg.Done()
	log := q.logger.With(slog.Int("consumer_id", id))
	log.Debug("consumer started")

	for {
		select {
		case <-ctx.Done():
			log.Debug("consumer stopping")
			return
		default:
		}

		res, err := q.client.BRPop(ctx, popTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Timed out with an empty list; poll again.
				continue
			}
			if ctx.Err() != nil {
				return
			}
			log.Error("failed to pop from queue", slog.String("error", err.Error()))
			// Back off so a dead Redis doesn't spin the consumer.
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		// BRPop returns [key, value].
		if len(res) != 2 {
			continue
		}
		taskID, err := uuid.Parse(res[1])
		if err != nil {
			log.Error("discarding malformed queue entry",
				slog.String("entry", res[1]),
				slog.String("error", err.Error()))
			continue
		}

		if err := q.handler(ctx, taskID); err != nil {
			log.Error("task handler failed",
				slog.String("task_id", taskID.String()),
				slog.String("error", err.Error()))
		}
	}
}
