package postgresadapter

import (
	"encoding/json"
	"strings"
	"time"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"

	"gorm.io/datatypes"
)

// The unique index on (list_id, entry_id, submitted_by) enforces one active
// submission per submitter and entry: accepted and deleted rows are removed.
type submissionModel struct {
	ID               string    `gorm:"column:id;primaryKey"`
	ListID           string    `gorm:"column:list_id;uniqueIndex:ux_submissions_active;index:ix_submissions_queue,priority:1"`
	EntryID          string    `gorm:"column:entry_id;uniqueIndex:ux_submissions_active"`
	SubmittedBy      string    `gorm:"column:submitted_by;uniqueIndex:ux_submissions_active"`
	ReviewerID       *string   `gorm:"column:reviewer_id"`
	VideoURL         string    `gorm:"column:video_url"`
	RawURL           string    `gorm:"column:raw_url"`
	Mobile           bool      `gorm:"column:mobile"`
	ModMenu          string    `gorm:"column:mod_menu"`
	UserNotes        string    `gorm:"column:user_notes"`
	CompletionTimeMS *int64    `gorm:"column:completion_time_ms"`
	ReviewerNotes    string    `gorm:"column:reviewer_notes"`
	Status           string    `gorm:"column:status;index:ix_submissions_queue,priority:2"`
	Priority         int       `gorm:"column:priority"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (submissionModel) TableName() string {
	return "submissions"
}

func submissionModelFromEntity(submission entities.Submission) submissionModel {
	return submissionModel{
		ID:               strings.TrimSpace(submission.SubmissionID),
		ListID:           submission.ListID,
		EntryID:          submission.EntryID,
		SubmittedBy:      submission.SubmittedBy,
		ReviewerID:       nullableString(submission.ReviewerID),
		VideoURL:         submission.Payload.VideoURL,
		RawURL:           submission.Payload.RawURL,
		Mobile:           submission.Payload.Mobile,
		ModMenu:          submission.Payload.ModMenu,
		UserNotes:        submission.Payload.UserNotes,
		CompletionTimeMS: submission.Payload.CompletionTimeMS,
		ReviewerNotes:    submission.ReviewerNotes,
		Status:           string(submission.Status),
		Priority:         submission.Priority,
		CreatedAt:        submission.CreatedAt.UTC(),
		UpdatedAt:        submission.UpdatedAt.UTC(),
	}
}

// submissionUpdates lists every mutable column. Zero values are written.
func submissionUpdates(submission entities.Submission) map[string]any {
	return map[string]any{
		"entry_id":           submission.EntryID,
		"reviewer_id":        nullableString(submission.ReviewerID),
		"video_url":          submission.Payload.VideoURL,
		"raw_url":            submission.Payload.RawURL,
		"mobile":             submission.Payload.Mobile,
		"mod_menu":           submission.Payload.ModMenu,
		"user_notes":         submission.Payload.UserNotes,
		"completion_time_ms": submission.Payload.CompletionTimeMS,
		"reviewer_notes":     submission.ReviewerNotes,
		"status":             string(submission.Status),
		"updated_at":         submission.UpdatedAt.UTC(),
	}
}

func (m submissionModel) toEntity() entities.Submission {
	return entities.Submission{
		SubmissionID: m.ID,
		ListID:       m.ListID,
		EntryID:      m.EntryID,
		SubmittedBy:  m.SubmittedBy,
		ReviewerID:   derefString(m.ReviewerID),
		Payload: entities.Payload{
			VideoURL:         m.VideoURL,
			RawURL:           m.RawURL,
			Mobile:           m.Mobile,
			ModMenu:          m.ModMenu,
			UserNotes:        m.UserNotes,
			CompletionTimeMS: m.CompletionTimeMS,
		},
		ReviewerNotes: m.ReviewerNotes,
		Status:        entities.SubmissionStatus(m.Status),
		Priority:      m.Priority,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

type recordModel struct {
	ID               string    `gorm:"column:id;primaryKey"`
	ListID           string    `gorm:"column:list_id;uniqueIndex:ux_records_owner"`
	EntryID          string    `gorm:"column:entry_id;uniqueIndex:ux_records_owner"`
	SubmittedBy      string    `gorm:"column:submitted_by;uniqueIndex:ux_records_owner"`
	ReviewerID       *string   `gorm:"column:reviewer_id"`
	VideoURL         string    `gorm:"column:video_url"`
	RawURL           string    `gorm:"column:raw_url"`
	Mobile           bool      `gorm:"column:mobile"`
	ModMenu          string    `gorm:"column:mod_menu"`
	CompletionTimeMS *int64    `gorm:"column:completion_time_ms"`
	ReviewerNotes    string    `gorm:"column:reviewer_notes"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (recordModel) TableName() string {
	return "records"
}

func recordModelFromEntity(record entities.Record) recordModel {
	return recordModel{
		ID:               record.RecordID,
		ListID:           record.ListID,
		EntryID:          record.EntryID,
		SubmittedBy:      record.SubmittedBy,
		ReviewerID:       nullableString(record.ReviewerID),
		VideoURL:         record.Payload.VideoURL,
		RawURL:           record.Payload.RawURL,
		Mobile:           record.Payload.Mobile,
		ModMenu:          record.Payload.ModMenu,
		CompletionTimeMS: record.Payload.CompletionTimeMS,
		ReviewerNotes:    record.ReviewerNotes,
		CreatedAt:        record.CreatedAt.UTC(),
		UpdatedAt:        record.UpdatedAt.UTC(),
	}
}

func (m recordModel) toEntity() entities.Record {
	return entities.Record{
		RecordID:    m.ID,
		ListID:      m.ListID,
		EntryID:     m.EntryID,
		SubmittedBy: m.SubmittedBy,
		ReviewerID:  derefString(m.ReviewerID),
		Payload: entities.Payload{
			VideoURL:         m.VideoURL,
			RawURL:           m.RawURL,
			Mobile:           m.Mobile,
			ModMenu:          m.ModMenu,
			CompletionTimeMS: m.CompletionTimeMS,
		},
		ReviewerNotes: m.ReviewerNotes,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

type auditModel struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	SubmissionID string         `gorm:"column:submission_id;index"`
	ListID       string         `gorm:"column:list_id"`
	Status       string         `gorm:"column:status"`
	ReviewerID   *string        `gorm:"column:reviewer_id"`
	ActorID      string         `gorm:"column:actor_id"`
	Snapshot     datatypes.JSON `gorm:"column:snapshot"`
	Reason       string         `gorm:"column:reason"`
	RecordID     *string        `gorm:"column:record_id"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
}

func (auditModel) TableName() string {
	return "submission_audit"
}

func auditModelFromEntity(entry entities.AuditEntry) (auditModel, error) {
	snapshot, err := json.Marshal(entry.Snapshot)
	if err != nil {
		return auditModel{}, err
	}
	return auditModel{
		SubmissionID: entry.SubmissionID,
		ListID:       entry.ListID,
		Status:       string(entry.Status),
		ReviewerID:   nullableString(entry.ReviewerID),
		ActorID:      entry.ActorID,
		Snapshot:     datatypes.JSON(snapshot),
		Reason:       entry.Reason,
		RecordID:     nullableString(entry.RecordID),
		CreatedAt:    entry.CreatedAt.UTC(),
	}, nil
}

func (m auditModel) toEntity() entities.AuditEntry {
	entry := entities.AuditEntry{
		AuditID:      m.ID,
		SubmissionID: m.SubmissionID,
		ListID:       m.ListID,
		Status:       entities.SubmissionStatus(m.Status),
		ReviewerID:   derefString(m.ReviewerID),
		ActorID:      m.ActorID,
		Reason:       m.Reason,
		RecordID:     derefString(m.RecordID),
		CreatedAt:    m.CreatedAt.UTC(),
	}
	// Snapshots are written by this package; a malformed one leaves the
	// zero snapshot rather than hiding the rest of the history.
	_ = json.Unmarshal(m.Snapshot, &entry.Snapshot)
	return entry
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "review_outbox"
}

func nullableString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
