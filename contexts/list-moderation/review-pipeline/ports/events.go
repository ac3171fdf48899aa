package ports

import (
	"time"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	"ranklist/internal/shared/events"
)

const SourceService = "review-pipeline"

// NotificationData is the event body of submission notifications.
type NotificationData struct {
	SubmissionID string            `json:"submission_id"`
	ListID       string            `json:"list_id"`
	UserID       string            `json:"user_id"`
	Message      string            `json:"message"`
	Severity     entities.Severity `json:"severity"`
}

// ReapedClaimsData is the event body published after a reaper run.
type ReapedClaimsData struct {
	Claims []ReapedClaimData `json:"claims"`
}

type ReapedClaimData struct {
	SubmissionID string    `json:"submission_id"`
	ListID       string    `json:"list_id"`
	ReviewerID   string    `json:"reviewer_id"`
	ClaimedSince time.Time `json:"claimed_since"`
}

// Envelope wraps the notification for the outbox, keyed by submitter.
func (e NotificationEvent) Envelope() (EventEnvelope, error) {
	return events.New(
		e.EventID,
		e.EventType,
		SourceService,
		"data.user_id",
		e.UserID,
		e.OccurredAt,
		NotificationData{
			SubmissionID: e.SubmissionID,
			ListID:       e.ListID,
			UserID:       e.UserID,
			Message:      e.Message,
			Severity:     e.Severity,
		},
	)
}

// Envelope wraps the reaped claims for the outbox.
func (r ReapRequest) Envelope(claims []entities.ReapedClaim) (EventEnvelope, error) {
	data := ReapedClaimsData{Claims: make([]ReapedClaimData, 0, len(claims))}
	for _, claim := range claims {
		data.Claims = append(data.Claims, ReapedClaimData{
			SubmissionID: claim.SubmissionID,
			ListID:       claim.ListID,
			ReviewerID:   claim.ReviewerID,
			ClaimedSince: claim.ClaimedSince.UTC(),
		})
	}
	return events.New(
		r.EventID,
		r.EventType,
		SourceService,
		"event_id",
		r.EventID,
		r.Now,
		data,
	)
}
