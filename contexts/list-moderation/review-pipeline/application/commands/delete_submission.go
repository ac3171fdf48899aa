package commands

import (
	"context"
	"log/slog"
	"strings"

	application "ranklist/contexts/list-moderation/review-pipeline/application"
	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	domainerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"
	"ranklist/contexts/list-moderation/review-pipeline/domain/services"
	"ranklist/contexts/list-moderation/review-pipeline/ports"
)

type DeleteSubmissionCommand struct {
	SubmissionID string
	ActorID      string
	Reason       string
}

type DeleteSubmissionUseCase struct {
	Repository  ports.SubmissionRepository
	Permissions ports.PermissionChecker
	Clock       ports.Clock
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

// Execute removes an active submission. Owners may withdraw it while it is
// still pending; reviewers may delete it in any state.
func (uc DeleteSubmissionUseCase) Execute(ctx context.Context, cmd DeleteSubmissionCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	actorID := strings.TrimSpace(cmd.ActorID)
	if actorID == "" {
		return domainerrors.ErrUnauthorizedActor
	}
	submissionID := strings.TrimSpace(cmd.SubmissionID)
	if submissionID == "" {
		return domainerrors.ErrInvalidSubmissionInput
	}

	current, err := uc.Repository.GetSubmission(ctx, submissionID)
	if err != nil {
		return err
	}
	if err := uc.authorize(ctx, current, actorID); err != nil {
		logger.Warn("submission delete rejected",
			"event", "submission_delete_rejected",
			"module", "list-moderation/review-pipeline",
			"layer", "application",
			"submission_id", current.SubmissionID,
			"actor_id", actorID,
			"status", string(current.Status),
			"error", err.Error(),
		)
		return err
	}
	if err := services.EnsureTransition(current.Status, entities.SubmissionStatusDeleted); err != nil {
		return err
	}

	now := nowFrom(uc.Clock)
	deleted := current
	deleted.Status = entities.SubmissionStatusDeleted
	deleted.UpdatedAt = now
	if err := uc.Repository.DeleteSubmission(ctx, ports.Deletion{
		SubmissionID: current.SubmissionID,
		FromStatuses: []entities.SubmissionStatus{current.Status},
		Audit:        entities.NewAuditEntry(deleted, actorID, strings.TrimSpace(cmd.Reason), now),
	}); err != nil {
		return err
	}
	application.ResolveMetrics(uc.Metrics).RecordTransition(ctx, current.ListID, entities.SubmissionStatusDeleted)

	logger.Info("submission deleted",
		"event", "submission_deleted",
		"module", "list-moderation/review-pipeline",
		"layer", "application",
		"submission_id", current.SubmissionID,
		"actor_id", actorID,
		"from_status", string(current.Status),
	)
	return nil
}

func (uc DeleteSubmissionUseCase) authorize(ctx context.Context, submission entities.Submission, actorID string) error {
	if submission.IsOwnedBy(actorID) && services.OwnerCanDelete(submission.Status) {
		return nil
	}
	reviewer, err := isReviewer(ctx, uc.Permissions, actorID)
	if err != nil {
		return err
	}
	if reviewer {
		return nil
	}
	if submission.IsOwnedBy(actorID) {
		return domainerrors.ErrSubmissionLocked
	}
	return domainerrors.ErrUnauthorizedActor
}
