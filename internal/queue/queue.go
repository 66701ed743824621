// Package queue provides named Redis-list job queues with bounded retry.
// Jobs are JSON envelopes pushed to <prefix>:queue:<name>; a failed job is
// requeued with an incremented attempt counter until the attempt budget is
// spent, backing off exponentially between attempts.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"duckwire/internal/logger"
)

// Queue names.
const (
	Ingestion    = "ingestion"
	Clustering   = "clustering"
	Verification = "verification"
)

// Names lists every queue a worker drains, in drain priority order.
var Names = []string{Ingestion, Clustering, Verification}

const (
	// DefaultAttempts is the per-job attempt budget.
	DefaultAttempts = 3
	// DefaultBackoff is the delay before the second attempt; it doubles for
	// each attempt after that.
	DefaultBackoff = time.Second

	popTimeout = 5 * time.Second
)

// Job is the queued envelope. Attempt starts at 1.
type Job struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Attempt    int             `json:"attempt"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// Handler processes one job payload. A nil error acknowledges the job; an
// error triggers a retry until the attempt budget is spent.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Queues is the producer/consumer client over one Redis connection.
type Queues struct {
	rdb      *redis.Client
	prefix   string
	attempts int
	backoff  time.Duration
	sleep    func(time.Duration)
}

// New connects to Redis and returns a queue client. Non-positive attempts
// or backoff fall back to the defaults.
func New(redisURL, prefix string, attempts int, backoff time.Duration) (*Queues, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	if prefix == "" {
		prefix = "duckwire"
	}
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Queues{
		rdb:      rdb,
		prefix:   prefix,
		attempts: attempts,
		backoff:  backoff,
		sleep:    time.Sleep,
	}, nil
}

// Close releases the Redis connection.
func (q *Queues) Close() error { return q.rdb.Close() }

// Redis exposes the underlying client for components sharing the
// connection, such as the pub/sub bridge.
func (q *Queues) Redis() *redis.Client { return q.rdb }

// Enqueue pushes a job onto the named queue and returns its id.
func (q *Queues) Enqueue(ctx context.Context, name string, payload any) (string, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("failed to marshal payload: %w", err)
		}
		raw = data
	}
	job := Job{
		ID:         uuid.New().String(),
		Name:       name,
		Attempt:    1,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}
	return job.ID, q.push(ctx, job)
}

// Depth reports how many jobs are waiting on the named queue.
func (q *Queues) Depth(ctx context.Context, name string) (int64, error) {
	return q.rdb.LLen(ctx, q.key(name)).Result()
}

// Run drains all queues until the context is cancelled, dispatching each
// job to the handler registered for its queue name. Jobs on queues without
// a handler are dropped with a warning.
func (q *Queues) Run(ctx context.Context, handlers map[string]Handler) error {
	keys := make([]string, 0, len(Names))
	for _, name := range Names {
		keys = append(keys, q.key(name))
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res, err := q.rdb.BLPop(ctx, popTimeout, keys...).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("queue pop failed", "error", err.Error())
			q.sleep(time.Second)
			continue
		}
		// BLPop returns [key, value]
		if len(res) != 2 {
			continue
		}
		q.dispatch(ctx, res[1], handlers)
	}
}

func (q *Queues) dispatch(ctx context.Context, raw string, handlers map[string]Handler) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		logger.Warn("dropping malformed job", "error", err.Error())
		return
	}
	handler, ok := handlers[job.Name]
	if !ok {
		logger.Warn("no handler for queue", "queue", job.Name, "job", job.ID)
		return
	}

	if err := handler(ctx, job.Payload); err != nil {
		q.retry(ctx, job, err)
		return
	}
	logger.Debug("job completed", "queue", job.Name, "job", job.ID, "attempt", job.Attempt)
}

// retry requeues a failed job after an exponential delay, or drops it once
// the attempt budget is spent.
func (q *Queues) retry(ctx context.Context, job Job, cause error) {
	if job.Attempt >= q.attempts {
		logger.Error("job failed permanently", cause, "queue", job.Name, "job", job.ID, "attempts", job.Attempt)
		return
	}
	delay := q.backoffDelay(job.Attempt)
	logger.Warn("job failed, retrying", "queue", job.Name, "job", job.ID,
		"attempt", job.Attempt, "delay", delay.String(), "error", cause.Error())

	job.Attempt++
	q.sleep(delay)
	if err := q.push(ctx, job); err != nil {
		logger.Error("failed to requeue job", err, "queue", job.Name, "job", job.ID)
	}
}

// backoffDelay doubles the base delay for each attempt already spent.
func (q *Queues) backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return q.backoff * time.Duration(1<<(attempt-1))
}

func (q *Queues) push(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.key(job.Name), data).Err(); err != nil {
		return fmt.Errorf("failed to push job: %w", err)
	}
	return nil
}

func (q *Queues) key(name string) string {
	return q.prefix + ":queue:" + name
}
