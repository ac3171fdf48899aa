package commands

import (
	"context"
	"log/slog"
	"strings"

	application "ranklist/contexts/list-moderation/review-pipeline/application"
	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	domainerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"
	"ranklist/contexts/list-moderation/review-pipeline/ports"
)

type CreateSubmissionCommand struct {
	SubmitterID string
	ListID      string
	EntryID     string
	Payload     entities.Payload
}

type CreateSubmissionUseCase struct {
	Repository ports.SubmissionRepository
	Lists      ports.ListCatalog
	Entries    ports.ListEntries
	Validator  ports.URLValidator
	Standing   ports.StandingLookup
	Policy     SubmitterPolicy
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Metrics    ports.Metrics
	Logger     *slog.Logger
}

// Execute validates and stores a new pending submission in this order:
// 1) global switch and ban tier
// 2) list/entry rules and link validation
// 3) duplicate active submission check
// 4) priority lookup, then insert with its audit entry.
func (uc CreateSubmissionUseCase) Execute(ctx context.Context, cmd CreateSubmissionCommand) (entities.Submission, error) {
	logger := application.ResolveLogger(uc.Logger)
	submitterID := strings.TrimSpace(cmd.SubmitterID)
	if submitterID == "" {
		return entities.Submission{}, domainerrors.ErrUnauthorizedActor
	}
	if strings.TrimSpace(cmd.ListID) == "" || strings.TrimSpace(cmd.EntryID) == "" {
		return entities.Submission{}, domainerrors.ErrInvalidSubmissionInput
	}

	if err := uc.Policy.EnsureCanSubmit(ctx, submitterID); err != nil {
		logger.Warn("submission create rejected by submitter policy",
			"event", "submission_create_policy_rejected",
			"module", "list-moderation/review-pipeline",
			"layer", "application",
			"submitter_id", submitterID,
			"error", err.Error(),
		)
		return entities.Submission{}, err
	}

	list, entry, err := resolveEntry(ctx, uc.Lists, uc.Entries, cmd.ListID, cmd.EntryID)
	if err != nil {
		return entities.Submission{}, err
	}
	payload, err := normalizePayload(ctx, uc.Validator, cmd.Payload)
	if err != nil {
		return entities.Submission{}, err
	}
	if err := checkEntryRules(list, entry, payload); err != nil {
		return entities.Submission{}, err
	}

	if _, found, err := uc.Repository.FindActiveSubmission(ctx, list.ListID, entry.EntryID, submitterID); err != nil {
		return entities.Submission{}, err
	} else if found {
		return entities.Submission{}, domainerrors.ErrDuplicateActiveSubmission
	}

	priority, err := uc.Standing.PriorityTier(ctx, submitterID)
	if err != nil {
		return entities.Submission{}, err
	}
	submissionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Submission{}, err
	}

	now := nowFrom(uc.Clock)
	submission := entities.Submission{
		SubmissionID: submissionID,
		ListID:       list.ListID,
		EntryID:      entry.EntryID,
		SubmittedBy:  submitterID,
		Payload:      payload,
		Status:       entities.SubmissionStatusPending,
		Priority:     priority,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !submission.ValidateCreate() {
		return entities.Submission{}, domainerrors.ErrInvalidSubmissionInput
	}

	audit := entities.NewAuditEntry(submission, submitterID, "", now)
	if err := uc.Repository.CreateSubmission(ctx, submission, audit); err != nil {
		logger.Error("submission create failed",
			"event", "submission_create_failed",
			"module", "list-moderation/review-pipeline",
			"layer", "application",
			"submitter_id", submitterID,
			"list_id", list.ListID,
			"entry_id", entry.EntryID,
			"error", err.Error(),
		)
		return entities.Submission{}, err
	}
	application.ResolveMetrics(uc.Metrics).RecordTransition(ctx, submission.ListID, submission.Status)

	logger.Info("submission created",
		"event", "submission_created",
		"module", "list-moderation/review-pipeline",
		"layer", "application",
		"submission_id", submission.SubmissionID,
		"list_id", submission.ListID,
		"entry_id", submission.EntryID,
		"priority", submission.Priority,
	)
	return submission, nil
}
