package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRBACBootstrap seeds the permission catalogue, default roles and admin account.
	TaskRBACBootstrap = "rbac:bootstrap"
)

// BootstrapPayload describes a bootstrap request.
type BootstrapPayload struct {
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
	SkipAdmin   bool      `json:"skip_admin,omitempty"`
}

// NewBootstrapTask constructs an Asynq task. A fixed task id keeps at most one
// bootstrap task queued at a time.
func NewBootstrapTask(payload BootstrapPayload) (*asynq.Task, error) {
	if payload.RequestedAt.IsZero() {
		payload.RequestedAt = time.Now().UTC()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRBACBootstrap, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.TaskID(TaskRBACBootstrap),
	), nil
}
