// Package mail queues account e-mails on asynq and delivers them over SMTP.
package mail

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const TaskTypeSend = "mail:send"

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

// Template names a message body under templates/.
type Template string

const (
	TemplateConfirmEmail     Template = "confirm_email"
	TemplatePasswordResetKey Template = "password_reset_key"
	TemplateUnknownAccount   Template = "unknown_account"
)

// Valid reports whether a body exists for t.
func (t Template) Valid() bool {
	switch t {
	case TemplateConfirmEmail, TemplatePasswordResetKey, TemplateUnknownAccount:
		return true
	default:
		return false
	}
}

// Payload is the task body of TaskTypeSend.
type Payload struct {
	Template Template          `json:"template"`
	To       string            `json:"to"`
	Language string            `json:"language"`
	Data     map[string]string `json:"data"`
}

// NewSendTask encodes payload. Password reset mails go to the critical queue.
func NewSendTask(payload Payload, maxRetry int) (*asynq.Task, error) {
	if !payload.Template.Valid() {
		return nil, fmt.Errorf("unknown mail template %q", payload.Template)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	queue := QueueDefault
	if payload.Template != TemplateConfirmEmail {
		queue = QueueCritical
	}

	return asynq.NewTask(TaskTypeSend, body, asynq.Queue(queue), asynq.MaxRetry(maxRetry)), nil
}
