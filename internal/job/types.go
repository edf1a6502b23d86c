package job

import (
	"time"

	uuid "github.com/google/uuid"
)

type Type string

const (
	TypeVideoTranscribe Type = "video_transcribe"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job is a unit of background work. Payload may carry caller secrets and is
// never serialized; status records are safe to expose or mirror.
type Job struct {
	ID       uuid.UUID  `json:"id"`
	Type     Type       `json:"type"`
	RowID    string     `json:"row_id,omitempty"`
	FileID   string     `json:"file_id,omitempty"`
	Payload  []byte     `json:"-"`
	Status   Status     `json:"status"`
	Error    string     `json:"error,omitempty"`
	Enqueued time.Time  `json:"enqueued_at"`
	Started  *time.Time `json:"started_at,omitempty"`
	Finished *time.Time `json:"finished_at,omitempty"`
}

func (j *Job) Done() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

// Snapshot returns a copy without the payload, for readers outside the worker.
func (j *Job) Snapshot() *Job {
	cp := *j
	cp.Payload = nil
	return &cp
}
