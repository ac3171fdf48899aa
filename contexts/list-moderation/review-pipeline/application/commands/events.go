package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	"ranklist/contexts/list-moderation/review-pipeline/ports"
)

const (
	EventTypeSubmissionAccepted           = "submission.accepted"
	EventTypeSubmissionDenied             = "submission.denied"
	EventTypeSubmissionUnderConsideration = "submission.under_consideration"
	EventTypeClaimsReaped                 = "submission.claims_reaped"
)

// NotificationEventTypes are the topics the notification consumer listens on.
var NotificationEventTypes = []string{
	EventTypeSubmissionAccepted,
	EventTypeSubmissionDenied,
	EventTypeSubmissionUnderConsideration,
}

func newNotificationEvent(
	ctx context.Context,
	idGen ports.IDGenerator,
	eventType string,
	submission entities.Submission,
	reason string,
	occurredAt time.Time,
) (ports.NotificationEvent, error) {
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		return ports.NotificationEvent{}, err
	}
	message, severity := notificationMessage(eventType, submission, reason)
	return ports.NotificationEvent{
		EventID:      eventID,
		EventType:    eventType,
		SubmissionID: submission.SubmissionID,
		ListID:       submission.ListID,
		UserID:       submission.SubmittedBy,
		Message:      message,
		Severity:     severity,
		OccurredAt:   occurredAt.UTC(),
	}, nil
}

func notificationMessage(eventType string, submission entities.Submission, reason string) (string, entities.Severity) {
	reason = strings.TrimSpace(reason)
	switch eventType {
	case EventTypeSubmissionAccepted:
		message := fmt.Sprintf("Your %s submission for entry %s has been accepted.", submission.ListID, submission.EntryID)
		if reason != "" {
			message += " Reviewer notes: " + reason
		}
		return message, entities.SeveritySuccess
	case EventTypeSubmissionDenied:
		message := fmt.Sprintf("Your %s submission for entry %s has been denied.", submission.ListID, submission.EntryID)
		if reason != "" {
			message += " Reason: " + reason
		}
		return message, entities.SeverityError
	default:
		message := fmt.Sprintf("Your %s submission for entry %s has been placed under consideration.", submission.ListID, submission.EntryID)
		if reason != "" {
			message += " Notes: " + reason
		}
		return message, entities.SeverityInfo
	}
}
