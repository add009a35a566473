package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dunamismax/blastflow/internal/pipeline"
	"github.com/hibiken/asynq"
)

const TypeRunJob = "blast:run"

type RunJobPayload struct {
	Request     pipeline.Request `json:"request"`
	RequestedAt time.Time        `json:"requested_at"`
}

func NewRunJobTask(payload RunJobPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal run payload: %w", err)
	}
	return asynq.NewTask(TypeRunJob, body), nil
}

func ParseRunJobPayload(task *asynq.Task) (RunJobPayload, error) {
	var payload RunJobPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RunJobPayload{}, fmt.Errorf("unmarshal run payload: %w", err)
	}
	if err := payload.Request.Validate(); err != nil {
		return RunJobPayload{}, fmt.Errorf("invalid run payload: %w", err)
	}
	return payload, nil
}
