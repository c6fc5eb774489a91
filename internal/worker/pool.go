package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"stockflow/internal/mailer"
)

const QueueEmail = "jobs:email"

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EmailJob is the payload of an email task.
type EmailJob struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// EmailEnqueuer is the producer-side interface; the monitor depends on it
// rather than on redis directly.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, job EmailJob) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, job EmailJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: "email", Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, QueueEmail, encoded).Err()
}

// StartPool launches numWorkers goroutines consuming the email queue.
// Each goroutine blocks on BRPOP, so an idle pool costs no CPU.
func StartPool(ctx context.Context, rdb *redis.Client, sender mailer.Sender, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, sender, i)
	}
	log.Info().Int("workers", numWorkers).Msg("email worker pool started")
}

func runWorker(ctx context.Context, rdb *redis.Client, sender mailer.Sender, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("email worker shutting down")
			return
		default:
			// Blocking pop waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueueEmail).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(sender, result[1])
		}
	}
}

func processJob(sender mailer.Sender, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal job")
		return
	}
	if job.Type != "email" {
		log.Warn().Str("type", job.Type).Msg("unknown job type, skipping")
		return
	}

	var payload EmailJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		log.Error().Err(err).Msg("invalid email job payload")
		return
	}
	if len(payload.To) == 0 {
		log.Warn().Msg("email job without recipients, skipping")
		return
	}

	if err := sender.Send(payload.To, payload.Subject, payload.Body); err != nil {
		log.Error().Err(err).Strs("to", payload.To).Msg("failed to send email")
		return
	}
	log.Info().Strs("to", payload.To).Str("subject", payload.Subject).Msg("email sent")
}

// NewRedis creates and validates a go-redis client connection.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	// Validate connectivity at startup
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}
