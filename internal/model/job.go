package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobKind enumerates the jobs a user can select.
type JobKind string

const (
	JobKindOne   JobKind = "job-1"
	JobKindTwo   JobKind = "job-2"
	JobKindThree JobKind = "job-3"
)

// JobStatus enumerates job lifecycle states. Records are written once
// with StatusProcessing; no transition out of it is implemented yet.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
)

// Job is a user-selected unit of downstream work.
type Job struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id"`
	AssetID   *uuid.UUID `json:"asset_id,omitempty"`
	Kind      JobKind    `json:"kind"`
	Status    JobStatus  `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Label returns the user-facing label of the job kind.
func (k JobKind) Label() string {
	return "job " + strings.TrimPrefix(string(k), "job-")
}

// ParseJobKind maps a selection token to a job kind. It accepts the
// numeric shorthand ("1") and the full label ("job 1"). The caller is
// responsible for case normalization.
func ParseJobKind(text string) (JobKind, bool) {
	switch strings.TrimSpace(text) {
	case "1", "job 1":
		return JobKindOne, true
	case "2", "job 2":
		return JobKindTwo, true
	case "3", "job 3":
		return JobKindThree, true
	}

	return "", false
}
