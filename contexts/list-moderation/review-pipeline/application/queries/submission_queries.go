package queries

import (
	"context"
	"log/slog"
	"strings"

	application "ranklist/contexts/list-moderation/review-pipeline/application"
	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	domainerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"
	"ranklist/contexts/list-moderation/review-pipeline/ports"
)

const defaultListLimit = 100

type ListSubmissionsQuery struct {
	ViewerID    string
	ListID      string
	SubmittedBy string
	Status      string
	Limit       int
}

type QueuePosition struct {
	SubmissionID string
	Position     int
	Total        int
}

// QueryUseCase serves read paths. Submitters see their own submissions;
// reviewers see everything.
type QueryUseCase struct {
	Repository  ports.SubmissionRepository
	Records     ports.RecordReader
	Lists       ports.ListCatalog
	Permissions ports.PermissionChecker
	Logger      *slog.Logger
}

func (uc QueryUseCase) GetSubmission(ctx context.Context, viewerID string, submissionID string) (entities.Submission, error) {
	submission, err := uc.Repository.GetSubmission(ctx, strings.TrimSpace(submissionID))
	if err != nil {
		return entities.Submission{}, err
	}
	if err := uc.ensureCanView(ctx, viewerID, submission); err != nil {
		return entities.Submission{}, err
	}
	return submission, nil
}

func (uc QueryUseCase) ListSubmissions(ctx context.Context, query ListSubmissionsQuery) ([]entities.Submission, error) {
	viewerID := strings.TrimSpace(query.ViewerID)
	if viewerID == "" {
		return nil, domainerrors.ErrUnauthorizedActor
	}
	filter := ports.SubmissionFilter{
		ListID:      strings.TrimSpace(query.ListID),
		SubmittedBy: strings.TrimSpace(query.SubmittedBy),
		Limit:       query.Limit,
	}
	if filter.ListID != "" {
		list, ok := uc.Lists.Lookup(filter.ListID)
		if !ok {
			return nil, domainerrors.ErrUnknownList
		}
		filter.ListID = list.ListID
	}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status, ok := entities.ParseSubmissionStatus(raw)
		if !ok || status.IsTerminal() {
			return nil, domainerrors.ErrInvalidSubmissionInput
		}
		filter.Status = status
	}
	if filter.Limit <= 0 || filter.Limit > defaultListLimit {
		filter.Limit = defaultListLimit
	}

	reviewer, err := uc.isReviewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if !reviewer {
		if filter.SubmittedBy != "" && filter.SubmittedBy != viewerID {
			return nil, domainerrors.ErrUnauthorizedActor
		}
		filter.SubmittedBy = viewerID
	}
	return uc.Repository.ListSubmissions(ctx, filter)
}

// QueuePosition reports where a pending submission sits in its list's claim
// order, 1-based.
func (uc QueryUseCase) QueuePosition(ctx context.Context, viewerID string, submissionID string) (QueuePosition, error) {
	submission, err := uc.GetSubmission(ctx, viewerID, submissionID)
	if err != nil {
		return QueuePosition{}, err
	}
	if submission.Status != entities.SubmissionStatusPending {
		return QueuePosition{}, domainerrors.ErrNotInQueue
	}
	position, total, err := uc.Repository.QueuePosition(ctx, submission.SubmissionID)
	if err != nil {
		return QueuePosition{}, err
	}
	return QueuePosition{
		SubmissionID: submission.SubmissionID,
		Position:     position,
		Total:        total,
	}, nil
}

func (uc QueryUseCase) QueueStats(ctx context.Context, listID string) (entities.QueueStats, error) {
	list, ok := uc.Lists.Lookup(listID)
	if !ok {
		return entities.QueueStats{}, domainerrors.ErrUnknownList
	}
	stats, err := uc.Repository.QueueStats(ctx, list.ListID)
	if err != nil {
		return entities.QueueStats{}, err
	}
	application.ResolveLogger(uc.Logger).Debug("queue stats computed",
		"event", "submission_queue_stats_computed",
		"module", "list-moderation/review-pipeline",
		"layer", "application",
		"list_id", list.ListID,
		"pending", stats.Pending,
		"claimed", stats.Claimed,
	)
	return stats, nil
}

// History returns the audit trail of a submission, newest first. It stays
// readable after the submission row is gone, so only reviewers may read it.
func (uc QueryUseCase) History(ctx context.Context, viewerID string, submissionID string) ([]entities.AuditEntry, error) {
	reviewer, err := uc.isReviewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if !reviewer {
		return nil, domainerrors.ErrUnauthorizedActor
	}
	id := strings.TrimSpace(submissionID)
	if id == "" {
		return nil, domainerrors.ErrInvalidSubmissionInput
	}
	return uc.Repository.ListHistory(ctx, id)
}

// FindRecord looks up the accepted record for a submitter's entry.
func (uc QueryUseCase) FindRecord(ctx context.Context, listID string, entryID string, submittedBy string) (entities.Record, bool, error) {
	list, ok := uc.Lists.Lookup(listID)
	if !ok {
		return entities.Record{}, false, domainerrors.ErrUnknownList
	}
	return uc.Records.FindRecord(ctx, list.ListID, strings.TrimSpace(entryID), strings.TrimSpace(submittedBy))
}

func (uc QueryUseCase) ensureCanView(ctx context.Context, viewerID string, submission entities.Submission) error {
	if submission.IsOwnedBy(viewerID) {
		return nil
	}
	reviewer, err := uc.isReviewer(ctx, viewerID)
	if err != nil {
		return err
	}
	if !reviewer {
		return domainerrors.ErrUnauthorizedActor
	}
	return nil
}

func (uc QueryUseCase) isReviewer(ctx context.Context, viewerID string) (bool, error) {
	viewerID = strings.TrimSpace(viewerID)
	if viewerID == "" {
		return false, nil
	}
	return uc.Permissions.HasPermission(ctx, viewerID, ports.PermissionReviewSubmissions)
}
