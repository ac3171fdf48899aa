package entities

import "time"

type AuditSnapshot struct {
	EntryID       string  `json:"entry_id"`
	Payload       Payload `json:"payload"`
	ReviewerNotes string  `json:"reviewer_notes,omitempty"`
	Priority      int     `json:"priority"`
}

// AuditEntry is one immutable row of a submission's history. SubmissionID may
// point at a row that no longer exists.
type AuditEntry struct {
	AuditID      int64
	SubmissionID string
	ListID       string
	Status       SubmissionStatus
	ReviewerID   string
	ActorID      string
	Snapshot     AuditSnapshot
	Reason       string
	RecordID     string
	CreatedAt    time.Time
}

func NewAuditEntry(submission Submission, actorID string, reason string, now time.Time) AuditEntry {
	return AuditEntry{
		SubmissionID: submission.SubmissionID,
		ListID:       submission.ListID,
		Status:       submission.Status,
		ReviewerID:   submission.ReviewerID,
		ActorID:      actorID,
		Snapshot:     submission.Snapshot(),
		Reason:       reason,
		CreatedAt:    now.UTC(),
	}
}
