package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nrednav/cuid2"
)

const DefaultMaxRetry = 3

type Job struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Retry     int             `json:"retry"`
	MaxRetry  int             `json:"max_retry"`
	ErrorMsg  string          `json:"error_msg,omitempty"`
	CreatedAt int64           `json:"created_at"`
}

func NewJob(jobType string, payload interface{}) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("marshalling %s payload: %w", jobType, err)
	}
	return Job{
		ID:        cuid2.Generate(),
		Type:      jobType,
		Payload:   raw,
		MaxRetry:  DefaultMaxRetry,
		CreatedAt: time.Now().Unix(),
	}, nil
}

func (j Job) Decode(v interface{}) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("unmarshalling %s payload: %w", j.Type, err)
	}
	return nil
}
