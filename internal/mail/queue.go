package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	apperrors "github.com/share-pet/share-pet/internal/errors"
	"github.com/share-pet/share-pet/pkg/config"
)

// RedisOpt points asynq at the Redis instance the rest of the service uses.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}
}

// Queue accepts mails for asynchronous delivery.
type Queue interface {
	Send(ctx context.Context, payload Payload) error
	Close() error
}

type asynqQueue struct {
	client   *asynq.Client
	maxRetry int
	log      *slog.Logger
}

// NewQueue builds a Queue backed by an asynq client.
func NewQueue(redisOpt asynq.RedisConnOpt, maxRetry int, log *slog.Logger) Queue {
	return &asynqQueue{
		client:   asynq.NewClient(redisOpt),
		maxRetry: maxRetry,
		log:      log,
	}
}

// Send enqueues payload, retrying transient Redis failures.
func (q *asynqQueue) Send(ctx context.Context, payload Payload) error {
	task, err := NewSendTask(payload, q.maxRetry)
	if err != nil {
		return err
	}

	var info *asynq.TaskInfo
	err = apperrors.WithRetry(ctx, func() error {
		var enqueueErr error
		info, enqueueErr = q.client.EnqueueContext(ctx, task)
		if enqueueErr != nil {
			return apperrors.NewExternalError("mail queue", enqueueErr)
		}
		return nil
	})
	if err != nil {
		q.log.ErrorContext(ctx, "mail: enqueue failed",
			slog.String("template", string(payload.Template)),
			slog.Any("error", err),
		)
		return fmt.Errorf("enqueue %s mail: %w", payload.Template, err)
	}

	q.log.InfoContext(ctx, "mail: enqueued",
		slog.String("template", string(payload.Template)),
		slog.String("task_id", info.ID),
		slog.String("queue", info.Queue),
	)
	return nil
}

func (q *asynqQueue) Close() error {
	return q.client.Close()
}
