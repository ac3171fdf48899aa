package services

import (
	"testing"
	"time"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	domainerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachineTransitions(t *testing.T) {
	cases := []struct {
		from    entities.SubmissionStatus
		to      entities.SubmissionStatus
		allowed bool
	}{
		{entities.SubmissionStatusPending, entities.SubmissionStatusClaimed, true},
		{entities.SubmissionStatusPending, entities.SubmissionStatusAccepted, false},
		{entities.SubmissionStatusPending, entities.SubmissionStatusDenied, false},
		{entities.SubmissionStatusClaimed, entities.SubmissionStatusPending, true},
		{entities.SubmissionStatusClaimed, entities.SubmissionStatusAccepted, true},
		{entities.SubmissionStatusUnderConsideration, entities.SubmissionStatusPending, false},
		{entities.SubmissionStatusUnderConsideration, entities.SubmissionStatusDenied, true},
		{entities.SubmissionStatusDenied, entities.SubmissionStatusPending, true},
		{entities.SubmissionStatusDenied, entities.SubmissionStatusAccepted, false},
		{entities.SubmissionStatusDenied, entities.SubmissionStatusDeleted, true},
		{entities.SubmissionStatusAccepted, entities.SubmissionStatusPending, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to))
			err := EnsureTransition(tc.from, tc.to)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domainerrors.ErrInvalidStatusTransition)
			}
		})
	}
}

func TestSourcesForAccepted(t *testing.T) {
	assert.ElementsMatch(t, []entities.SubmissionStatus{
		entities.SubmissionStatusClaimed,
		entities.SubmissionStatusUnderConsideration,
	}, SourcesFor(entities.SubmissionStatusAccepted))
}

func TestSortQueueTierThenAgeThenID(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	items := []entities.Submission{
		{SubmissionID: "c", Priority: 0, CreatedAt: base},
		{SubmissionID: "b", Priority: 0, CreatedAt: base},
		{SubmissionID: "late-boosted", Priority: 1, CreatedAt: base.Add(time.Hour)},
		{SubmissionID: "early", Priority: 0, CreatedAt: base.Add(-time.Hour)},
	}
	SortQueue(items)

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.SubmissionID)
	}
	assert.Equal(t, []string{"late-boosted", "early", "b", "c"}, ids)
}

func TestQueuePositionCountsOnlyEarlierClaims(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	pending := []entities.Submission{
		{SubmissionID: "a", CreatedAt: base},
		{SubmissionID: "b", CreatedAt: base.Add(time.Minute)},
		{SubmissionID: "c", CreatedAt: base.Add(2 * time.Minute), Priority: 1},
	}
	position, total := QueuePosition(pending[1], pending)
	assert.Equal(t, 3, position)
	assert.Equal(t, 3, total)

	position, _ = QueuePosition(pending[2], pending)
	assert.Equal(t, 1, position)
}

func TestListCatalogLookupIsCaseInsensitive(t *testing.T) {
	catalog := NewListCatalog(DefaultLists()...)

	list, ok := catalog.Lookup(" Platformer ")
	require.True(t, ok)
	assert.True(t, list.RequireCompletionTime)
	assert.Equal(t, 100, list.RawFootageTopN)

	_, ok = catalog.Lookup("unknown")
	assert.False(t, ok)
}

func TestRawFootageThreshold(t *testing.T) {
	list := entities.ListConfig{ListID: "classic", RawFootageTopN: 400}
	assert.True(t, list.RequiresRawFootage(entities.ListEntry{Position: 400}))
	assert.False(t, list.RequiresRawFootage(entities.ListEntry{Position: 401}))
	assert.False(t, list.RequiresRawFootage(entities.ListEntry{Position: 0}))
}
