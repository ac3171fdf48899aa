package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "ranklist/contexts/list-moderation/review-pipeline/application"
	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	domainerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"
	"ranklist/contexts/list-moderation/review-pipeline/domain/services"
	"ranklist/contexts/list-moderation/review-pipeline/ports"
)

type ReviewCommand struct {
	SubmissionID string
	ReviewerID   string
	Notes        string
}

// ReviewSubmissionUseCase carries the reviewer-driven transitions that do not
// go through the claim queue.
type ReviewSubmissionUseCase struct {
	Repository  ports.SubmissionRepository
	Permissions ports.PermissionChecker
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

// Unclaim returns a claimed submission to the queue and clears its reviewer.
func (uc ReviewSubmissionUseCase) Unclaim(ctx context.Context, cmd ReviewCommand) (entities.Submission, error) {
	return uc.transition(ctx, cmd, entities.SubmissionStatusPending, "")
}

func (uc ReviewSubmissionUseCase) Deny(ctx context.Context, cmd ReviewCommand) (entities.Submission, error) {
	return uc.transition(ctx, cmd, entities.SubmissionStatusDenied, EventTypeSubmissionDenied)
}

func (uc ReviewSubmissionUseCase) MarkUnderConsideration(ctx context.Context, cmd ReviewCommand) (entities.Submission, error) {
	return uc.transition(ctx, cmd, entities.SubmissionStatusUnderConsideration, EventTypeSubmissionUnderConsideration)
}

// Accept promotes a claimed or under-consideration submission to a record.
// The record upsert, audit entry, outbox row and row removal commit together.
func (uc ReviewSubmissionUseCase) Accept(ctx context.Context, cmd ReviewCommand) (entities.Record, error) {
	reviewerID := strings.TrimSpace(cmd.ReviewerID)
	if err := ensureReviewer(ctx, uc.Permissions, reviewerID); err != nil {
		return entities.Record{}, err
	}
	submissionID := strings.TrimSpace(cmd.SubmissionID)
	if submissionID == "" {
		return entities.Record{}, domainerrors.ErrInvalidSubmissionInput
	}

	current, err := uc.Repository.GetSubmission(ctx, submissionID)
	if err != nil {
		return entities.Record{}, err
	}
	if err := services.EnsureTransition(current.Status, entities.SubmissionStatusAccepted); err != nil {
		return entities.Record{}, err
	}
	return uc.accept(ctx, current, reviewerID, cmd.Notes, nil)
}

// accept writes the acceptance for current. With edits the status guard
// narrows to the status the edits were made against.
func (uc ReviewSubmissionUseCase) accept(
	ctx context.Context,
	current entities.Submission,
	reviewerID string,
	notes string,
	edits *ports.AcceptEdits,
) (entities.Record, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := nowFrom(uc.Clock)
	notes = strings.TrimSpace(notes)
	if notes == "" {
		notes = current.ReviewerNotes
	}
	recordID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Record{}, err
	}

	acceptance := ports.Acceptance{
		SubmissionID: current.SubmissionID,
		ReviewerID:   reviewerID,
		Notes:        notes,
		FromStatuses: services.SourcesFor(entities.SubmissionStatusAccepted),
		NewRecordID:  recordID,
		AcceptedAt:   now,
		Edits:        edits,
	}
	if edits != nil {
		acceptance.FromStatuses = []entities.SubmissionStatus{current.Status}
	}
	acceptance.Notification, err = newNotificationEvent(ctx, uc.IDGen, EventTypeSubmissionAccepted, acceptance.Apply(current), notes, now)
	if err != nil {
		return entities.Record{}, err
	}

	record, err := uc.Repository.AcceptSubmission(ctx, acceptance)
	if err != nil {
		logger.Error("submission accept failed",
			"event", "submission_accept_failed",
			"module", "list-moderation/review-pipeline",
			"layer", "application",
			"submission_id", current.SubmissionID,
			"reviewer_id", reviewerID,
			"error", err.Error(),
		)
		return entities.Record{}, err
	}
	application.ResolveMetrics(uc.Metrics).RecordTransition(ctx, current.ListID, entities.SubmissionStatusAccepted)

	logger.Info("submission accepted",
		"event", "submission_accepted",
		"module", "list-moderation/review-pipeline",
		"layer", "application",
		"submission_id", current.SubmissionID,
		"record_id", record.RecordID,
		"reviewer_id", reviewerID,
		"edited", edits != nil,
	)
	return record, nil
}

func (uc ReviewSubmissionUseCase) transition(
	ctx context.Context,
	cmd ReviewCommand,
	target entities.SubmissionStatus,
	eventType string,
) (entities.Submission, error) {
	logger := application.ResolveLogger(uc.Logger)
	reviewerID := strings.TrimSpace(cmd.ReviewerID)
	if err := ensureReviewer(ctx, uc.Permissions, reviewerID); err != nil {
		return entities.Submission{}, err
	}
	submissionID := strings.TrimSpace(cmd.SubmissionID)
	if submissionID == "" {
		return entities.Submission{}, domainerrors.ErrInvalidSubmissionInput
	}

	current, err := uc.Repository.GetSubmission(ctx, submissionID)
	if err != nil {
		return entities.Submission{}, err
	}
	if err := services.EnsureTransition(current.Status, target); err != nil {
		return entities.Submission{}, err
	}
	// denied -> pending belongs to the submitter's resubmission.
	if target == entities.SubmissionStatusPending && current.Status != entities.SubmissionStatusClaimed {
		return entities.Submission{}, domainerrors.ErrInvalidStatusTransition
	}

	now := nowFrom(uc.Clock)
	updated := current
	updated.Status = target
	updated.UpdatedAt = now
	if notes := strings.TrimSpace(cmd.Notes); notes != "" {
		updated.ReviewerNotes = notes
	}
	if target == entities.SubmissionStatusPending {
		updated.ReviewerID = ""
	} else {
		updated.ReviewerID = reviewerID
	}

	saved, err := applyReviewTransition(ctx, uc.Repository, uc.IDGen, current, updated, reviewerID, strings.TrimSpace(cmd.Notes), eventType, now)
	if err != nil {
		logger.Error("submission transition failed",
			"event", "submission_transition_failed",
			"module", "list-moderation/review-pipeline",
			"layer", "application",
			"submission_id", current.SubmissionID,
			"from_status", string(current.Status),
			"to_status", string(target),
			"reviewer_id", reviewerID,
			"error", err.Error(),
		)
		return entities.Submission{}, err
	}
	application.ResolveMetrics(uc.Metrics).RecordTransition(ctx, saved.ListID, saved.Status)

	logger.Info("submission transitioned",
		"event", "submission_transitioned",
		"module", "list-moderation/review-pipeline",
		"layer", "application",
		"submission_id", saved.SubmissionID,
		"from_status", string(current.Status),
		"to_status", string(saved.Status),
		"reviewer_id", reviewerID,
	)
	return saved, nil
}

// applyReviewTransition persists updated guarded by the status read into
// current. A notification is queued when eventType is set.
func applyReviewTransition(
	ctx context.Context,
	repository ports.SubmissionRepository,
	idGen ports.IDGenerator,
	current entities.Submission,
	updated entities.Submission,
	actorID string,
	reason string,
	eventType string,
	now time.Time,
) (entities.Submission, error) {
	transition := ports.Transition{
		Submission:   updated,
		FromStatuses: []entities.SubmissionStatus{current.Status},
		Audit:        entities.NewAuditEntry(updated, actorID, reason, now),
	}
	if eventType != "" {
		event, err := newNotificationEvent(ctx, idGen, eventType, updated, updated.ReviewerNotes, now)
		if err != nil {
			return entities.Submission{}, err
		}
		transition.Notification = &event
	}
	return repository.ApplyTransition(ctx, transition)
}
