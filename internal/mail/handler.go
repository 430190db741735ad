package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	apperrors "github.com/share-pet/share-pet/internal/errors"
	"github.com/share-pet/share-pet/pkg/metrics"
)

// SendHandler processes TaskTypeSend tasks.
type SendHandler struct {
	renderer *Renderer
	sender   Sender
	breaker  *apperrors.CircuitBreaker
	log      *slog.Logger
}

func NewSendHandler(renderer *Renderer, sender Sender, breaker *apperrors.CircuitBreaker, log *slog.Logger) *SendHandler {
	return &SendHandler{
		renderer: renderer,
		sender:   sender,
		breaker:  breaker,
		log:      log,
	}
}

// ProcessTask renders and delivers one mail. Malformed tasks are not retried;
// delivery failures are, with the breaker short-circuiting while SMTP is down.
func (h *SendHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload Payload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "mail: failed to decode payload", slog.String("task_type", t.Type()), slog.Any("error", err))
		return fmt.Errorf("decode mail payload: %v: %w", err, asynq.SkipRetry)
	}

	msg, err := h.renderer.Render(payload)
	if err != nil {
		metrics.RecordMail(string(payload.Template), "invalid")
		h.log.ErrorContext(ctx, "mail: failed to render", slog.String("template", string(payload.Template)), slog.Any("error", err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	err = h.breaker.Call(func() error {
		return h.sender.Send(ctx, msg)
	})
	if err != nil {
		metrics.RecordMail(string(payload.Template), "failed")
		h.log.WarnContext(ctx, "mail: delivery failed",
			slog.String("template", string(payload.Template)),
			slog.String("breaker", h.breaker.State().String()),
			slog.Any("error", err),
		)
		return apperrors.NewExternalError("smtp", err)
	}

	metrics.RecordMail(string(payload.Template), "sent")
	h.log.InfoContext(ctx, "mail: delivered", slog.String("template", string(payload.Template)))
	return nil
}
