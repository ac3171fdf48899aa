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

// SubmissionPatch is a partial update. Nil fields are left unchanged.
// ReviewerNotes and Status may only be set by a reviewer who does not own the
// submission.
type SubmissionPatch struct {
	EntryID          *string
	VideoURL         *string
	RawURL           *string
	Mobile           *bool
	ModMenu          *string
	UserNotes        *string
	CompletionTimeMS *int64

	ReviewerNotes *string
	Status        *entities.SubmissionStatus
}

func (p SubmissionPatch) hasReviewerFields() bool {
	return p.ReviewerNotes != nil || p.Status != nil
}

func (p SubmissionPatch) hasPayloadFields() bool {
	return p.EntryID != nil ||
		p.VideoURL != nil ||
		p.RawURL != nil ||
		p.Mobile != nil ||
		p.ModMenu != nil ||
		p.UserNotes != nil ||
		p.CompletionTimeMS != nil
}

func (p SubmissionPatch) applyPayload(payload entities.Payload) entities.Payload {
	if p.VideoURL != nil {
		payload.VideoURL = *p.VideoURL
	}
	if p.RawURL != nil {
		payload.RawURL = *p.RawURL
	}
	if p.Mobile != nil {
		payload.Mobile = *p.Mobile
	}
	if p.ModMenu != nil {
		payload.ModMenu = *p.ModMenu
	}
	if p.UserNotes != nil {
		payload.UserNotes = *p.UserNotes
	}
	if p.CompletionTimeMS != nil {
		value := *p.CompletionTimeMS
		payload.CompletionTimeMS = &value
	}
	return payload
}

type PatchSubmissionCommand struct {
	SubmissionID string
	ActorID      string
	Patch        SubmissionPatch
}

// PatchResult describes where a patch left the submission. Record is set when
// the patch accepted it; Deleted when it removed it.
type PatchResult struct {
	Submission entities.Submission
	Record     *entities.Record
	Deleted    bool
}

type PatchSubmissionUseCase struct {
	Repository  ports.SubmissionRepository
	Lists       ports.ListCatalog
	Entries     ports.ListEntries
	Validator   ports.URLValidator
	Permissions ports.PermissionChecker
	Policy      SubmitterPolicy
	Review      ReviewSubmissionUseCase
	Delete      DeleteSubmissionUseCase
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Metrics     ports.Metrics
	Logger      *slog.Logger
}

func (uc PatchSubmissionUseCase) Execute(ctx context.Context, cmd PatchSubmissionCommand) (PatchResult, error) {
	actorID := strings.TrimSpace(cmd.ActorID)
	if actorID == "" {
		return PatchResult{}, domainerrors.ErrUnauthorizedActor
	}
	submissionID := strings.TrimSpace(cmd.SubmissionID)
	if submissionID == "" {
		return PatchResult{}, domainerrors.ErrInvalidSubmissionInput
	}

	current, err := uc.Repository.GetSubmission(ctx, submissionID)
	if err != nil {
		return PatchResult{}, err
	}

	// Owners always take the submitter path, reviewers included.
	if current.IsOwnedBy(actorID) {
		return uc.patchAsSubmitter(ctx, current, actorID, cmd.Patch)
	}
	reviewer, err := isReviewer(ctx, uc.Permissions, actorID)
	if err != nil {
		return PatchResult{}, err
	}
	if !reviewer {
		return PatchResult{}, domainerrors.ErrUnauthorizedActor
	}
	return uc.patchAsReviewer(ctx, current, actorID, cmd.Patch)
}

func (uc PatchSubmissionUseCase) patchAsSubmitter(
	ctx context.Context,
	current entities.Submission,
	actorID string,
	patch SubmissionPatch,
) (PatchResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if patch.hasReviewerFields() {
		return PatchResult{}, domainerrors.ErrSubmitterFieldsOnly
	}
	if !services.SubmitterCanPatch(current.Status) {
		return PatchResult{}, domainerrors.ErrSubmissionLocked
	}

	resubmission := current.Status == entities.SubmissionStatusDenied
	if resubmission {
		if err := uc.Policy.EnsureCanSubmit(ctx, actorID); err != nil {
			return PatchResult{}, err
		}
	}

	updated, err := uc.applyPatch(ctx, current, patch, true)
	if err != nil {
		return PatchResult{}, err
	}
	reason := ""
	if resubmission {
		updated.Status = entities.SubmissionStatusPending
		updated.ReviewerID = ""
		updated.ReviewerNotes = ""
		reason = "resubmitted"
	}
	now := nowFrom(uc.Clock)
	updated.UpdatedAt = now

	saved, err := applyReviewTransition(ctx, uc.Repository, uc.IDGen, current, updated, actorID, reason, "", now)
	if err != nil {
		logger.Error("submission patch failed",
			"event", "submission_patch_failed",
			"module", "list-moderation/review-pipeline",
			"layer", "application",
			"submission_id", current.SubmissionID,
			"actor_id", actorID,
			"error", err.Error(),
		)
		return PatchResult{}, err
	}
	if resubmission {
		application.ResolveMetrics(uc.Metrics).RecordTransition(ctx, saved.ListID, saved.Status)
	}

	logger.Info("submission patched by submitter",
		"event", "submission_patched",
		"module", "list-moderation/review-pipeline",
		"layer", "application",
		"submission_id", saved.SubmissionID,
		"actor_id", actorID,
		"resubmitted", resubmission,
	)
	return PatchResult{Submission: saved}, nil
}

func (uc PatchSubmissionUseCase) patchAsReviewer(
	ctx context.Context,
	current entities.Submission,
	actorID string,
	patch SubmissionPatch,
) (PatchResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	target := current.Status
	if patch.Status != nil {
		target = *patch.Status
	}

	switch target {
	case entities.SubmissionStatusClaimed:
		if current.Status != entities.SubmissionStatusClaimed {
			return PatchResult{}, domainerrors.ErrInvalidStatusTransition
		}
	case entities.SubmissionStatusPending:
		// Only an unclaim reaches pending here. A denied submission goes back
		// to the queue through its owner's resubmission.
		if current.Status != entities.SubmissionStatusPending && current.Status != entities.SubmissionStatusClaimed {
			return PatchResult{}, domainerrors.ErrInvalidStatusTransition
		}
	case entities.SubmissionStatusDeleted:
		reason := ""
		if patch.ReviewerNotes != nil {
			reason = strings.TrimSpace(*patch.ReviewerNotes)
		}
		if err := uc.Delete.Execute(ctx, DeleteSubmissionCommand{
			SubmissionID: current.SubmissionID,
			ActorID:      actorID,
			Reason:       reason,
		}); err != nil {
			return PatchResult{}, err
		}
		return PatchResult{Deleted: true}, nil
	}
	if target != current.Status {
		if err := services.EnsureTransition(current.Status, target); err != nil {
			return PatchResult{}, err
		}
	}

	updated, err := uc.applyPatch(ctx, current, patch, false)
	if err != nil {
		return PatchResult{}, err
	}
	if patch.ReviewerNotes != nil {
		updated.ReviewerNotes = strings.TrimSpace(*patch.ReviewerNotes)
	}

	if target == entities.SubmissionStatusAccepted {
		var edits *ports.AcceptEdits
		if patch.hasPayloadFields() {
			edits = &ports.AcceptEdits{EntryID: updated.EntryID, Payload: updated.Payload}
		}
		record, err := uc.Review.accept(ctx, current, actorID, updated.ReviewerNotes, edits)
		if err != nil {
			return PatchResult{}, err
		}
		updated.Status = entities.SubmissionStatusAccepted
		updated.ReviewerID = actorID
		updated.ReviewerNotes = record.ReviewerNotes
		return PatchResult{Submission: updated, Record: &record}, nil
	}

	eventType := ""
	statusChanged := target != current.Status
	switch target {
	case entities.SubmissionStatusPending:
		if statusChanged {
			updated.ReviewerID = ""
		}
	case entities.SubmissionStatusDenied:
		if patch.Status != nil {
			updated.ReviewerID = actorID
		}
		if statusChanged {
			eventType = EventTypeSubmissionDenied
		}
	case entities.SubmissionStatusUnderConsideration:
		if patch.Status != nil {
			updated.ReviewerID = actorID
		}
		if statusChanged {
			eventType = EventTypeSubmissionUnderConsideration
		}
	}
	updated.Status = target
	now := nowFrom(uc.Clock)
	updated.UpdatedAt = now

	saved, err := applyReviewTransition(ctx, uc.Repository, uc.IDGen, current, updated, actorID, updated.ReviewerNotes, eventType, now)
	if err != nil {
		logger.Error("submission patch failed",
			"event", "submission_patch_failed",
			"module", "list-moderation/review-pipeline",
			"layer", "application",
			"submission_id", current.SubmissionID,
			"actor_id", actorID,
			"error", err.Error(),
		)
		return PatchResult{}, err
	}
	if saved.Status != current.Status {
		application.ResolveMetrics(uc.Metrics).RecordTransition(ctx, saved.ListID, saved.Status)
	}

	logger.Info("submission patched by reviewer",
		"event", "submission_patched",
		"module", "list-moderation/review-pipeline",
		"layer", "application",
		"submission_id", saved.SubmissionID,
		"actor_id", actorID,
		"from_status", string(current.Status),
		"to_status", string(saved.Status),
	)
	return PatchResult{Submission: saved}, nil
}

// applyPatch merges the payload fields and re-validates links. Entry rules run
// whenever the entry changes, and on every submitter edit when enforceRules is
// set.
func (uc PatchSubmissionUseCase) applyPatch(
	ctx context.Context,
	current entities.Submission,
	patch SubmissionPatch,
	enforceRules bool,
) (entities.Submission, error) {
	updated := current
	payload, err := normalizePayload(ctx, uc.Validator, patch.applyPayload(current.Payload))
	if err != nil {
		return entities.Submission{}, err
	}
	updated.Payload = payload

	entryID := current.EntryID
	if patch.EntryID != nil {
		entryID = strings.TrimSpace(*patch.EntryID)
		if entryID == "" {
			return entities.Submission{}, domainerrors.ErrInvalidSubmissionInput
		}
	}
	entryChanged := entryID != current.EntryID

	if entryChanged || enforceRules {
		list, entry, err := resolveEntry(ctx, uc.Lists, uc.Entries, current.ListID, entryID)
		if err != nil {
			return entities.Submission{}, err
		}
		if err := checkEntryRules(list, entry, payload); err != nil {
			return entities.Submission{}, err
		}
		updated.EntryID = entry.EntryID
	}

	if entryChanged {
		existing, found, err := uc.Repository.FindActiveSubmission(ctx, updated.ListID, updated.EntryID, updated.SubmittedBy)
		if err != nil {
			return entities.Submission{}, err
		}
		if found && existing.SubmissionID != current.SubmissionID {
			return entities.Submission{}, domainerrors.ErrDuplicateActiveSubmission
		}
	}
	return updated, nil
}
