package services

import (
	"sort"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
)

// ClaimsBefore reports whether a is claimed before b.
func ClaimsBefore(a entities.QueueKey, b entities.QueueKey) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.SubmissionID < b.SubmissionID
}

// SortQueue orders submissions the way the claim query does.
func SortQueue(items []entities.Submission) {
	sort.SliceStable(items, func(i, j int) bool {
		return ClaimsBefore(items[i].QueueKey(), items[j].QueueKey())
	})
}

// QueuePosition returns the 1-based position of target among pending items.
func QueuePosition(target entities.Submission, pending []entities.Submission) (int, int) {
	ahead := 0
	key := target.QueueKey()
	for _, item := range pending {
		if item.SubmissionID == target.SubmissionID {
			continue
		}
		if ClaimsBefore(item.QueueKey(), key) {
			ahead++
		}
	}
	return ahead + 1, len(pending)
}
