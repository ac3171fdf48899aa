package ports

import (
	"context"
	"time"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	"ranklist/internal/shared/events"
)

type SubmissionFilter struct {
	ListID      string
	SubmittedBy string
	ReviewerID  string
	Status      entities.SubmissionStatus
	Limit       int
}

// NotificationEvent is the outbound notification persisted to the outbox in
// the same transaction as the transition that caused it.
type NotificationEvent struct {
	EventID      string
	EventType    string
	SubmissionID string
	ListID       string
	UserID       string
	Message      string
	Severity     entities.Severity
	OccurredAt   time.Time
}

// Transition is one audited status change. The stored row must currently be
// in one of FromStatuses; otherwise the write is rejected as stale.
type Transition struct {
	Submission   entities.Submission
	FromStatuses []entities.SubmissionStatus
	Audit        entities.AuditEntry
	Notification *NotificationEvent
}

type ClaimRequest struct {
	ListID     string
	ReviewerID string
	ClaimedAt  time.Time
}

type Acceptance struct {
	SubmissionID string
	ReviewerID   string
	Notes        string
	FromStatuses []entities.SubmissionStatus
	// NewRecordID is used only when no record exists for the submitter/entry.
	NewRecordID  string
	AcceptedAt   time.Time
	Notification NotificationEvent
	// Edits, when set, replace the stored entry and payload before the record
	// is written, inside the same transaction.
	Edits *AcceptEdits
}

type AcceptEdits struct {
	EntryID string
	Payload entities.Payload
}

// Apply returns submission with the accept-time edits merged in.
func (a Acceptance) Apply(submission entities.Submission) entities.Submission {
	if a.Edits == nil {
		return submission
	}
	if a.Edits.EntryID != "" {
		submission.EntryID = a.Edits.EntryID
	}
	submission.Payload = a.Edits.Payload
	return submission
}

type Deletion struct {
	SubmissionID string
	FromStatuses []entities.SubmissionStatus
	Audit        entities.AuditEntry
}

type ReapRequest struct {
	Cutoff    time.Time
	Now       time.Time
	EventID   string
	EventType string
}

// SubmissionRepository owns submission, record and audit persistence. Every
// mutating method commits its state change, audit entry and outbox row in a
// single transaction.
type SubmissionRepository interface {
	// CreateSubmission fails with ErrDuplicateActiveSubmission when the
	// submitter already has an active submission for the entry.
	CreateSubmission(ctx context.Context, submission entities.Submission, audit entities.AuditEntry) error
	GetSubmission(ctx context.Context, submissionID string) (entities.Submission, error)
	FindActiveSubmission(ctx context.Context, listID string, entryID string, submittedBy string) (entities.Submission, bool, error)
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]entities.Submission, error)
	ApplyTransition(ctx context.Context, transition Transition) (entities.Submission, error)
	// ClaimNext atomically claims the highest priority pending submission.
	ClaimNext(ctx context.Context, request ClaimRequest) (entities.Submission, error)
	AcceptSubmission(ctx context.Context, acceptance Acceptance) (entities.Record, error)
	DeleteSubmission(ctx context.Context, deletion Deletion) error
	QueuePosition(ctx context.Context, submissionID string) (int, int, error)
	QueueStats(ctx context.Context, listID string) (entities.QueueStats, error)
	ListHistory(ctx context.Context, submissionID string) ([]entities.AuditEntry, error)
	// ReapStaleClaims returns claimed submissions older than the cutoff to
	// pending and records one outbox event listing them.
	ReapStaleClaims(ctx context.Context, request ReapRequest) ([]entities.ReapedClaim, error)
}

// RecordReader exposes the accepted records written by AcceptSubmission.
type RecordReader interface {
	FindRecord(ctx context.Context, listID string, entryID string, submittedBy string) (entities.Record, bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// OutboxMessage is a row ready to relay from the outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventEnvelope = events.Envelope

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// Metrics receives pipeline counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	RecordTransition(ctx context.Context, listID string, status entities.SubmissionStatus)
	RecordClaim(ctx context.Context, listID string, outcome string)
	RecordReaped(ctx context.Context, count int)
}
