package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/share-pet/share-pet/pkg/config"
)

// Worker runs the asynq server that delivers queued mails.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

// NewWorker constructs a Worker backed by an asynq.Server instance.
func NewWorker(redisOpt asynq.RedisConnOpt, cfg config.MailConfig, log *slog.Logger) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Queues: map[string]int{
			QueueCritical: 6,
			QueueDefault:  3,
		},
		Concurrency:    concurrency,
		RetryDelayFunc: asynq.DefaultRetryDelayFunc,
		Logger:         newAsynqLogger(log),
	})

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
		log:    log,
	}
}

// Handle wires a task type to the provided handler.
func (w *Worker) Handle(taskType string, handler asynq.Handler) {
	w.mux.Handle(taskType, handler)
}

// Start begins processing in the background.
func (w *Worker) Start() error {
	w.log.InfoContext(context.Background(), "mail worker: starting processing loop")
	return w.server.Start(w.mux)
}

// Shutdown waits for in-flight tasks and stops the worker.
func (w *Worker) Shutdown() {
	w.log.InfoContext(context.Background(), "mail worker: shutting down")
	w.server.Shutdown()
}

// asynqLogger routes asynq's own logs into slog.
type asynqLogger struct {
	log *slog.Logger
}

func newAsynqLogger(log *slog.Logger) asynqLogger {
	return asynqLogger{log: log.With(slog.String("component", "asynq"))}
}

func (l asynqLogger) Debug(args ...any) { l.log.Debug(sprint(args)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info(sprint(args)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn(sprint(args)) }
func (l asynqLogger) Error(args ...any) { l.log.Error(sprint(args)) }
func (l asynqLogger) Fatal(args ...any) { l.log.Error(sprint(args)) }

func sprint(args []any) string {
	return fmt.Sprint(args...)
}
