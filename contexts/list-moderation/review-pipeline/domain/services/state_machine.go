package services

import (
	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	domainerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"
)

var allowedTransitions = map[entities.SubmissionStatus][]entities.SubmissionStatus{
	entities.SubmissionStatusPending: {
		entities.SubmissionStatusClaimed,
		entities.SubmissionStatusUnderConsideration,
		entities.SubmissionStatusDeleted,
	},
	entities.SubmissionStatusClaimed: {
		entities.SubmissionStatusPending,
		entities.SubmissionStatusUnderConsideration,
		entities.SubmissionStatusDenied,
		entities.SubmissionStatusAccepted,
		entities.SubmissionStatusDeleted,
	},
	entities.SubmissionStatusUnderConsideration: {
		entities.SubmissionStatusUnderConsideration,
		entities.SubmissionStatusDenied,
		entities.SubmissionStatusAccepted,
		entities.SubmissionStatusDeleted,
	},
	entities.SubmissionStatusDenied: {
		entities.SubmissionStatusPending,
		entities.SubmissionStatusDeleted,
	},
}

// CanTransition reports whether the state machine permits from -> to.
func CanTransition(from entities.SubmissionStatus, to entities.SubmissionStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EnsureTransition returns ErrInvalidStatusTransition when from -> to is not allowed.
func EnsureTransition(from entities.SubmissionStatus, to entities.SubmissionStatus) error {
	if !CanTransition(from, to) {
		return domainerrors.ErrInvalidStatusTransition
	}
	return nil
}

// SourcesFor lists the statuses from which to is reachable.
func SourcesFor(to entities.SubmissionStatus) []entities.SubmissionStatus {
	sources := make([]entities.SubmissionStatus, 0, len(allowedTransitions))
	for _, from := range entities.ActiveStatuses {
		if CanTransition(from, to) {
			sources = append(sources, from)
		}
	}
	return sources
}

// SubmitterCanPatch is the conflict rule for submitter edits: the owner may
// only edit while nobody holds the submission.
func SubmitterCanPatch(status entities.SubmissionStatus) bool {
	return status == entities.SubmissionStatusPending || status == entities.SubmissionStatusDenied
}

// OwnerCanDelete limits owner deletion to unreviewed submissions.
func OwnerCanDelete(status entities.SubmissionStatus) bool {
	return status == entities.SubmissionStatusPending
}
