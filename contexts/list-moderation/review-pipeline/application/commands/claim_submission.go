package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	application "ranklist/contexts/list-moderation/review-pipeline/application"
	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	domainerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"
	"ranklist/contexts/list-moderation/review-pipeline/ports"
)

const (
	ClaimOutcomeClaimed = "claimed"
	ClaimOutcomeEmpty   = "empty"
	ClaimOutcomeFailed  = "failed"
)

type ClaimSubmissionCommand struct {
	ListID     string
	ReviewerID string
}

type ClaimSubmissionUseCase struct {
	Repository  ports.SubmissionRepository
	Lists       ports.ListCatalog
	Permissions ports.PermissionChecker
	Clock       ports.Clock
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

// Execute hands the reviewer the highest priority pending submission of the
// list. It never waits on rows another reviewer is claiming.
func (uc ClaimSubmissionUseCase) Execute(ctx context.Context, cmd ClaimSubmissionCommand) (entities.Submission, error) {
	logger := application.ResolveLogger(uc.Logger)
	metrics := application.ResolveMetrics(uc.Metrics)
	reviewerID := strings.TrimSpace(cmd.ReviewerID)
	if err := ensureReviewer(ctx, uc.Permissions, reviewerID); err != nil {
		return entities.Submission{}, err
	}
	list, ok := uc.Lists.Lookup(cmd.ListID)
	if !ok {
		return entities.Submission{}, domainerrors.ErrUnknownList
	}

	claimed, err := uc.Repository.ClaimNext(ctx, ports.ClaimRequest{
		ListID:     list.ListID,
		ReviewerID: reviewerID,
		ClaimedAt:  nowFrom(uc.Clock),
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrQueueEmpty) {
			metrics.RecordClaim(ctx, list.ListID, ClaimOutcomeEmpty)
			return entities.Submission{}, err
		}
		metrics.RecordClaim(ctx, list.ListID, ClaimOutcomeFailed)
		logger.Error("submission claim failed",
			"event", "submission_claim_failed",
			"module", "list-moderation/review-pipeline",
			"layer", "application",
			"list_id", list.ListID,
			"reviewer_id", reviewerID,
			"error", err.Error(),
		)
		return entities.Submission{}, err
	}
	metrics.RecordClaim(ctx, list.ListID, ClaimOutcomeClaimed)
	metrics.RecordTransition(ctx, list.ListID, entities.SubmissionStatusClaimed)

	logger.Info("submission claimed",
		"event", "submission_claimed",
		"module", "list-moderation/review-pipeline",
		"layer", "application",
		"submission_id", claimed.SubmissionID,
		"list_id", list.ListID,
		"reviewer_id", reviewerID,
		"priority", claimed.Priority,
	)
	return claimed, nil
}
