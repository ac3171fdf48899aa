package reviewpipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"ranklist/contexts/list-moderation/review-pipeline/application/commands"
	"ranklist/contexts/list-moderation/review-pipeline/application/queries"
	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	domainerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"
	"ranklist/internal/platform/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimOrdersByPriorityThenAge(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SetPriorityTier("player-c", 1)

	first := f.submit(t, "player-a", "sonic-wave")
	f.store.Advance(time.Minute)
	second := f.submit(t, "player-b", "sonic-wave")
	f.store.Advance(time.Minute)
	boosted := f.submit(t, "player-c", "cataclysm")

	order := []string{
		f.claim(t, "mod-m").SubmissionID,
		f.claim(t, "mod-n").SubmissionID,
		f.claim(t, "mod-m").SubmissionID,
	}
	assert.Equal(t, []string{boosted.SubmissionID, first.SubmissionID, second.SubmissionID}, order)

	_, err := f.module.Handler.ClaimSubmission.Execute(f.ctx, commands.ClaimSubmissionCommand{
		ListID:     "classic",
		ReviewerID: "mod-m",
	})
	require.ErrorIs(t, err, domainerrors.ErrQueueEmpty)
}

func TestClaimRequiresReviewerAndKnownList(t *testing.T) {
	f := newFixture(t, nil)
	f.submit(t, "player-a", "sonic-wave")

	_, err := f.module.Handler.ClaimSubmission.Execute(f.ctx, commands.ClaimSubmissionCommand{
		ListID:     "classic",
		ReviewerID: "player-b",
	})
	require.ErrorIs(t, err, domainerrors.ErrUnauthorizedActor)

	_, err = f.module.Handler.ClaimSubmission.Execute(f.ctx, commands.ClaimSubmissionCommand{
		ListID:     "challenge",
		ReviewerID: "mod-m",
	})
	require.ErrorIs(t, err, domainerrors.ErrUnknownList)
}

func TestConcurrentClaimsNeverShareASubmission(t *testing.T) {
	f := newFixture(t, nil)
	const pending = 20
	for i := 0; i < pending; i++ {
		f.store.SeedSubmissions(entities.Submission{
			SubmissionID: fmt.Sprintf("sub-%02d", i),
			ListID:       "classic",
			EntryID:      "sonic-wave",
			SubmittedBy:  fmt.Sprintf("player-%02d", i),
			Payload:      entities.Payload{VideoURL: "https://www.youtube.com/watch?v=x"},
			Status:       entities.SubmissionStatusPending,
			CreatedAt:    baseTime.Add(time.Duration(i) * time.Second),
			UpdatedAt:    baseTime.Add(time.Duration(i) * time.Second),
		})
	}

	var (
		mu      sync.Mutex
		claimed = make(map[string]int)
		empty   int
		wg      sync.WaitGroup
	)
	for i := 0; i < pending*2; i++ {
		wg.Add(1)
		go func(reviewer string) {
			defer wg.Done()
			submission, err := f.module.Handler.ClaimSubmission.Execute(f.ctx, commands.ClaimSubmissionCommand{
				ListID:     "classic",
				ReviewerID: reviewer,
			})
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, domainerrors.ErrQueueEmpty) {
				empty++
				return
			}
			if err == nil {
				claimed[submission.SubmissionID]++
			}
		}([]string{"mod-m", "mod-n"}[i%2])
	}
	wg.Wait()

	assert.Len(t, claimed, pending)
	for id, count := range claimed {
		assert.Equal(t, 1, count, "submission %s claimed more than once", id)
	}
	assert.Equal(t, pending, empty)
}

func TestAcceptPromotesSubmissionToRecord(t *testing.T) {
	f := newFixture(t, nil)
	submission := f.submit(t, "player-a", "sonic-wave")
	f.claim(t, "mod-m")
	f.store.Advance(5 * time.Minute)

	record, err := f.module.Handler.ReviewSubmission.Accept(f.ctx, commands.ReviewCommand{
		SubmissionID: submission.SubmissionID,
		ReviewerID:   "mod-m",
		Notes:        "clean run",
	})
	require.NoError(t, err)
	assert.Equal(t, "classic", record.ListID)
	assert.Equal(t, "sonic-wave", record.EntryID)
	assert.Equal(t, "player-a", record.SubmittedBy)
	assert.Equal(t, "mod-m", record.ReviewerID)
	assert.Equal(t, "clean run", record.ReviewerNotes)
	assert.Equal(t, submission.Payload, record.Payload)

	_, err = f.module.Handler.Queries.GetSubmission(f.ctx, "player-a", submission.SubmissionID)
	require.ErrorIs(t, err, domainerrors.ErrSubmissionNotFound)
	assert.Equal(t, []entities.SubmissionStatus{
		entities.SubmissionStatusAccepted,
		entities.SubmissionStatusClaimed,
		entities.SubmissionStatusPending,
	}, f.history(t, submission.SubmissionID))

	entries, err := f.module.Handler.Queries.History(f.ctx, "mod-m", submission.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, record.RecordID, entries[0].RecordID)

	_, err = f.module.Handler.ReviewSubmission.Accept(f.ctx, commands.ReviewCommand{
		SubmissionID: submission.SubmissionID,
		ReviewerID:   "mod-m",
	})
	require.ErrorIs(t, err, domainerrors.ErrSubmissionNotFound)

	found, ok, err := f.module.Handler.Queries.FindRecord(f.ctx, "CLASSIC", "sonic-wave", "player-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record.RecordID, found.RecordID)
}

func TestAcceptingAgainUpdatesTheSameRecord(t *testing.T) {
	f := newFixture(t, nil)
	first := f.submit(t, "player-a", "sonic-wave")
	f.claim(t, "mod-m")
	original, err := f.module.Handler.ReviewSubmission.Accept(f.ctx, commands.ReviewCommand{
		SubmissionID: first.SubmissionID,
		ReviewerID:   "mod-m",
	})
	require.NoError(t, err)

	f.store.Advance(24 * time.Hour)
	second, err := f.module.Handler.CreateSubmission.Execute(f.ctx, commands.CreateSubmissionCommand{
		SubmitterID: "player-a",
		ListID:      "classic",
		EntryID:     "sonic-wave",
		Payload:     entities.Payload{VideoURL: "https://youtu.be/better-run", Mobile: true},
	})
	require.NoError(t, err)
	f.claim(t, "mod-n")
	_, err = f.module.Handler.ReviewSubmission.MarkUnderConsideration(f.ctx, commands.ReviewCommand{
		SubmissionID: second.SubmissionID,
		ReviewerID:   "mod-n",
		Notes:        "checking fps",
	})
	require.NoError(t, err)

	updated, err := f.module.Handler.ReviewSubmission.Accept(f.ctx, commands.ReviewCommand{
		SubmissionID: second.SubmissionID,
		ReviewerID:   "mod-n",
	})
	require.NoError(t, err)

	assert.Equal(t, original.RecordID, updated.RecordID)
	assert.Equal(t, original.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.Payload.Mobile)
	assert.Equal(t, "checking fps", updated.ReviewerNotes)
	assert.Len(t, f.store.Records(), 1)
}

func TestAcceptRejectsPendingSubmission(t *testing.T) {
	f := newFixture(t, nil)
	submission := f.submit(t, "player-a", "sonic-wave")

	_, err := f.module.Handler.ReviewSubmission.Accept(f.ctx, commands.ReviewCommand{
		SubmissionID: submission.SubmissionID,
		ReviewerID:   "mod-m",
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidStatusTransition)
	assert.Empty(t, f.store.Records())

	_, err = f.module.Handler.ReviewSubmission.Accept(f.ctx, commands.ReviewCommand{
		SubmissionID: submission.SubmissionID,
		ReviewerID:   "player-b",
	})
	require.ErrorIs(t, err, domainerrors.ErrUnauthorizedActor)
}

func TestUnclaimReturnsSubmissionToQueue(t *testing.T) {
	f := newFixture(t, nil)
	submission := f.submit(t, "player-a", "sonic-wave")
	f.claim(t, "mod-m")

	released, err := f.module.Handler.ReviewSubmission.Unclaim(f.ctx, commands.ReviewCommand{
		SubmissionID: submission.SubmissionID,
		ReviewerID:   "mod-m",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.SubmissionStatusPending, released.Status)
	assert.Empty(t, released.ReviewerID)

	_, err = f.module.Handler.ReviewSubmission.Unclaim(f.ctx, commands.ReviewCommand{
		SubmissionID: submission.SubmissionID,
		ReviewerID:   "mod-m",
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidStatusTransition)

	reclaimed := f.claim(t, "mod-n")
	assert.Equal(t, submission.SubmissionID, reclaimed.SubmissionID)
	assert.Equal(t, "mod-n", reclaimed.ReviewerID)
}

func TestReviewerPatch(t *testing.T) {
	f := newFixture(t, nil)
	claimed := f.submit(t, "player-a", "sonic-wave")
	f.claim(t, "mod-m")
	pending := f.submit(t, "player-b", "sonic-wave")

	toClaimed := entities.SubmissionStatusClaimed
	_, err := f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: pending.SubmissionID,
		ActorID:      "mod-n",
		Patch:        commands.SubmissionPatch{Status: &toClaimed},
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidStatusTransition)

	accepted := entities.SubmissionStatusAccepted
	notes := "verified against raw"
	mobile := true
	result, err := f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: claimed.SubmissionID,
		ActorID:      "mod-n",
		Patch: commands.SubmissionPatch{
			Status:        &accepted,
			ReviewerNotes: &notes,
			Mobile:        &mobile,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Record)
	assert.Equal(t, entities.SubmissionStatusAccepted, result.Submission.Status)
	assert.Equal(t, "mod-n", result.Record.ReviewerID)
	assert.Equal(t, "verified against raw", result.Record.ReviewerNotes)
	assert.True(t, result.Record.Payload.Mobile)

	deleted := entities.SubmissionStatusDeleted
	reason := "wrong level"
	result, err = f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: pending.SubmissionID,
		ActorID:      "mod-n",
		Patch:        commands.SubmissionPatch{Status: &deleted, ReviewerNotes: &reason},
	})
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	entries, err := f.module.Handler.Queries.History(f.ctx, "mod-n", pending.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, entities.SubmissionStatusDeleted, entries[0].Status)
	assert.Equal(t, "wrong level", entries[0].Reason)
}

func TestSubmissionQueries(t *testing.T) {
	f := newFixture(t, nil)
	first := f.submit(t, "player-a", "sonic-wave")
	f.store.Advance(time.Minute)
	second := f.submit(t, "player-b", "sonic-wave")
	f.store.Advance(time.Minute)
	third := f.submit(t, "player-a", "cataclysm")

	position, err := f.module.Handler.Queries.QueuePosition(f.ctx, "player-b", second.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, queries.QueuePosition{SubmissionID: second.SubmissionID, Position: 2, Total: 3}, position)

	_, err = f.module.Handler.Queries.QueuePosition(f.ctx, "player-b", first.SubmissionID)
	require.ErrorIs(t, err, domainerrors.ErrUnauthorizedActor)

	f.claim(t, "mod-m")
	_, err = f.module.Handler.Queries.QueuePosition(f.ctx, "player-a", first.SubmissionID)
	require.ErrorIs(t, err, domainerrors.ErrNotInQueue)

	position, err = f.module.Handler.Queries.QueuePosition(f.ctx, "player-a", third.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, 2, position.Position)
	assert.Equal(t, 2, position.Total)

	own, err := f.module.Handler.Queries.ListSubmissions(f.ctx, queries.ListSubmissionsQuery{ViewerID: "player-a"})
	require.NoError(t, err)
	require.Len(t, own, 2)
	for _, item := range own {
		assert.Equal(t, "player-a", item.SubmittedBy)
	}

	_, err = f.module.Handler.Queries.ListSubmissions(f.ctx, queries.ListSubmissionsQuery{
		ViewerID:    "player-a",
		SubmittedBy: "player-b",
	})
	require.ErrorIs(t, err, domainerrors.ErrUnauthorizedActor)

	claimedOnly, err := f.module.Handler.Queries.ListSubmissions(f.ctx, queries.ListSubmissionsQuery{
		ViewerID: "mod-n",
		ListID:   "classic",
		Status:   "claimed",
	})
	require.NoError(t, err)
	require.Len(t, claimedOnly, 1)
	assert.Equal(t, first.SubmissionID, claimedOnly[0].SubmissionID)

	_, err = f.module.Handler.Queries.ListSubmissions(f.ctx, queries.ListSubmissionsQuery{
		ViewerID: "mod-n",
		Status:   "accepted",
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidSubmissionInput)

	_, err = f.module.Handler.Queries.History(f.ctx, "player-a", first.SubmissionID)
	require.ErrorIs(t, err, domainerrors.ErrUnauthorizedActor)

	stats, err := f.module.Handler.Queries.QueueStats(f.ctx, "Classic")
	require.NoError(t, err)
	assert.Equal(t, entities.QueueStats{ListID: "classic", Pending: 2, Claimed: 1}, stats)
}

func TestReaperReleasesOnlyStaleClaims(t *testing.T) {
	f := newFixture(t, nil)
	stale := f.submit(t, "player-a", "sonic-wave")
	f.store.Advance(time.Second)
	fresh := f.submit(t, "player-b", "sonic-wave")
	require.Equal(t, stale.SubmissionID, f.claim(t, "mod-m").SubmissionID)
	f.store.Advance(60 * time.Minute)
	require.Equal(t, fresh.SubmissionID, f.claim(t, "mod-n").SubmissionID)
	f.store.Advance(61 * time.Minute)

	require.NoError(t, f.module.Reaper.RunOnce(f.ctx))

	released, err := f.module.Handler.Queries.GetSubmission(f.ctx, "mod-m", stale.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, entities.SubmissionStatusPending, released.Status)
	assert.Empty(t, released.ReviewerID)

	kept, err := f.module.Handler.Queries.GetSubmission(f.ctx, "mod-m", fresh.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, entities.SubmissionStatusClaimed, kept.Status)
	assert.Equal(t, "mod-n", kept.ReviewerID)

	outbox, err := f.store.ListPendingOutbox(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, outbox, 1)
	assert.Equal(t, commands.EventTypeClaimsReaped, outbox[0].EventType)

	require.NoError(t, f.module.Reaper.RunOnce(f.ctx))
	outbox, err = f.store.ListPendingOutbox(f.ctx, 0)
	require.NoError(t, err)
	assert.Len(t, outbox, 1)
}

func TestRelayDeliversNotificationsThroughBus(t *testing.T) {
	bus, err := messaging.NewKafka(nil, nil)
	require.NoError(t, err)
	f := newFixture(t, bus)

	ctx, cancel := context.WithCancel(f.ctx)
	defer cancel()
	require.NoError(t, f.module.Consumer.Start(ctx))

	denied := f.submit(t, "player-a", "sonic-wave")
	f.claim(t, "mod-m")
	_, err = f.module.Handler.ReviewSubmission.Deny(f.ctx, commands.ReviewCommand{
		SubmissionID: denied.SubmissionID,
		ReviewerID:   "mod-m",
		Notes:        "spliced",
	})
	require.NoError(t, err)

	abandoned := f.submit(t, "player-b", "cataclysm")
	require.Equal(t, abandoned.SubmissionID, f.claim(t, "mod-n").SubmissionID)
	f.store.Advance(121 * time.Minute)
	require.NoError(t, f.module.Reaper.RunOnce(f.ctx))

	require.NoError(t, f.module.Relay.RunOnce(f.ctx))
	outbox, err := f.store.ListPendingOutbox(f.ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, outbox)

	require.Eventually(t, func() bool {
		return len(f.store.Notifications()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	byUser := make(map[string]entities.Notification)
	for _, notification := range f.store.Notifications() {
		byUser[notification.UserID] = notification
	}
	require.Contains(t, byUser, "player-a")
	assert.Equal(t, entities.SeverityError, byUser["player-a"].Severity)
	assert.True(t, strings.HasSuffix(byUser["player-a"].Message, "Reason: spliced"))

	require.Contains(t, byUser, "mod-n")
	assert.Equal(t, entities.SeverityWarning, byUser["mod-n"].Severity)
	assert.Contains(t, byUser["mod-n"].Message, abandoned.SubmissionID)
}

func TestReviewerAcceptWithEditsWritesOneTransition(t *testing.T) {
	f := newFixture(t, nil)
	submission := f.submit(t, "player-a", "sonic-wave")
	f.claim(t, "mod-m")

	accepted := entities.SubmissionStatusAccepted
	notes := "GG"
	video := "https://youtu.be/fresh-take"
	result, err := f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: submission.SubmissionID,
		ActorID:      "mod-m",
		Patch: commands.SubmissionPatch{
			Status:        &accepted,
			ReviewerNotes: &notes,
			VideoURL:      &video,
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Record)
	assert.Equal(t, "https://www.youtube.com/watch?v=fresh-take", result.Record.Payload.VideoURL)
	assert.Equal(t, "https://www.youtube.com/watch?v=fresh-take", result.Submission.Payload.VideoURL)
	assert.Equal(t, "GG", result.Record.ReviewerNotes)
	assert.Equal(t, "sonic-wave", result.Record.EntryID)

	records := f.store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "https://www.youtube.com/watch?v=fresh-take", records[0].Payload.VideoURL)
	assert.Equal(t, submission.Payload.RawURL, records[0].Payload.RawURL)

	// the edit and the acceptance share a single audit row
	assert.Equal(t, []entities.SubmissionStatus{
		entities.SubmissionStatusAccepted,
		entities.SubmissionStatusClaimed,
		entities.SubmissionStatusPending,
	}, f.history(t, submission.SubmissionID))
}

func TestReviewerAcceptWithInvalidEditLeavesClaim(t *testing.T) {
	f := newFixture(t, nil)
	submission := f.submit(t, "player-a", "sonic-wave")
	f.claim(t, "mod-m")

	accepted := entities.SubmissionStatusAccepted
	video := "ftp://youtu.be/fresh-take"
	_, err := f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: submission.SubmissionID,
		ActorID:      "mod-m",
		Patch:        commands.SubmissionPatch{Status: &accepted, VideoURL: &video},
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidSubmissionURL)

	assert.Empty(t, f.store.Records())
	current, err := f.module.Handler.Queries.GetSubmission(f.ctx, "mod-m", submission.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, entities.SubmissionStatusClaimed, current.Status)
	assert.Equal(t, submission.Payload.VideoURL, current.Payload.VideoURL)
	assert.Equal(t, []entities.SubmissionStatus{
		entities.SubmissionStatusClaimed,
		entities.SubmissionStatusPending,
	}, f.history(t, submission.SubmissionID))
}

func TestReviewerPatchCannotRequeueDeniedSubmission(t *testing.T) {
	f := newFixture(t, nil)
	submission := f.submit(t, "player-a", "sonic-wave")
	f.claim(t, "mod-m")
	_, err := f.module.Handler.ReviewSubmission.Deny(f.ctx, commands.ReviewCommand{
		SubmissionID: submission.SubmissionID,
		ReviewerID:   "mod-m",
		Notes:        "spliced",
	})
	require.NoError(t, err)

	pending := entities.SubmissionStatusPending
	_, err = f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: submission.SubmissionID,
		ActorID:      "mod-n",
		Patch:        commands.SubmissionPatch{Status: &pending},
	})
	require.ErrorIs(t, err, domainerrors.ErrInvalidStatusTransition)

	current, err := f.module.Handler.Queries.GetSubmission(f.ctx, "mod-m", submission.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, entities.SubmissionStatusDenied, current.Status)
	assert.Equal(t, "mod-m", current.ReviewerID)
	assert.Equal(t, "spliced", current.ReviewerNotes)
	assert.Equal(t, entities.SubmissionStatusDenied, f.history(t, submission.SubmissionID)[0])
}

func TestReviewerPatchToPendingReleasesClaim(t *testing.T) {
	f := newFixture(t, nil)
	submission := f.submit(t, "player-a", "sonic-wave")
	f.claim(t, "mod-m")

	pending := entities.SubmissionStatusPending
	result, err := f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: submission.SubmissionID,
		ActorID:      "mod-n",
		Patch:        commands.SubmissionPatch{Status: &pending},
	})
	require.NoError(t, err)
	assert.Equal(t, entities.SubmissionStatusPending, result.Submission.Status)
	assert.Empty(t, result.Submission.ReviewerID)

	reclaimed := f.claim(t, "mod-n")
	assert.Equal(t, submission.SubmissionID, reclaimed.SubmissionID)
}
