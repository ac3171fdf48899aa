package entities

import (
	"strings"
	"time"
)

type SubmissionStatus string

const (
	SubmissionStatusPending            SubmissionStatus = "pending"
	SubmissionStatusClaimed            SubmissionStatus = "claimed"
	SubmissionStatusUnderConsideration SubmissionStatus = "under_consideration"
	SubmissionStatusDenied             SubmissionStatus = "denied"
	SubmissionStatusAccepted           SubmissionStatus = "accepted"
	SubmissionStatusDeleted            SubmissionStatus = "deleted"
)

// ActiveStatuses are the statuses a stored submission row can hold.
var ActiveStatuses = []SubmissionStatus{
	SubmissionStatusPending,
	SubmissionStatusClaimed,
	SubmissionStatusUnderConsideration,
	SubmissionStatusDenied,
}

func ParseSubmissionStatus(raw string) (SubmissionStatus, bool) {
	status := SubmissionStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case SubmissionStatusPending,
		SubmissionStatusClaimed,
		SubmissionStatusUnderConsideration,
		SubmissionStatusDenied,
		SubmissionStatusAccepted,
		SubmissionStatusDeleted:
		return status, true
	default:
		return "", false
	}
}

// IsTerminal reports whether the status removes the submission row.
func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionStatusAccepted || s == SubmissionStatusDeleted
}

// Payload holds the fields that describe the completion itself.
type Payload struct {
	VideoURL         string `json:"video_url"`
	RawURL           string `json:"raw_url,omitempty"`
	Mobile           bool   `json:"mobile"`
	ModMenu          string `json:"mod_menu,omitempty"`
	UserNotes        string `json:"user_notes,omitempty"`
	CompletionTimeMS *int64 `json:"completion_time_ms,omitempty"`
}

type Submission struct {
	SubmissionID  string
	ListID        string
	EntryID       string
	SubmittedBy   string
	ReviewerID    string
	Payload       Payload
	ReviewerNotes string
	Status        SubmissionStatus
	Priority      int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (s Submission) ValidateCreate() bool {
	return strings.TrimSpace(s.ListID) != "" &&
		strings.TrimSpace(s.EntryID) != "" &&
		strings.TrimSpace(s.SubmittedBy) != "" &&
		strings.TrimSpace(s.Payload.VideoURL) != ""
}

func (s Submission) IsOwnedBy(userID string) bool {
	return strings.TrimSpace(userID) != "" && s.SubmittedBy == strings.TrimSpace(userID)
}

// Snapshot captures the mutable fields stored alongside each audit entry.
func (s Submission) Snapshot() AuditSnapshot {
	return AuditSnapshot{
		EntryID:       s.EntryID,
		Payload:       s.Payload,
		ReviewerNotes: s.ReviewerNotes,
		Priority:      s.Priority,
	}
}

// QueueKey is the claim ordering key: priority tier descending, then
// created_at ascending, then id ascending.
type QueueKey struct {
	Priority     int
	CreatedAt    time.Time
	SubmissionID string
}

func (s Submission) QueueKey() QueueKey {
	return QueueKey{
		Priority:     s.Priority,
		CreatedAt:    s.CreatedAt.UTC(),
		SubmissionID: s.SubmissionID,
	}
}

// ReapedClaim identifies a claim released by the stale-claim reaper.
type ReapedClaim struct {
	SubmissionID string
	ListID       string
	ReviewerID   string
	ClaimedSince time.Time
}

// QueueStats summarises a list's review backlog.
type QueueStats struct {
	ListID             string
	Pending            int
	Claimed            int
	UnderConsideration int
	Denied             int
}
