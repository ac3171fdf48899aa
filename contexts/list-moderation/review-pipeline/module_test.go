package reviewpipeline_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	reviewpipeline "ranklist/contexts/list-moderation/review-pipeline"
	"ranklist/contexts/list-moderation/review-pipeline/adapters/memory"
	"ranklist/contexts/list-moderation/review-pipeline/application/commands"
	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	domainerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"
	"ranklist/contexts/list-moderation/review-pipeline/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

type fixture struct {
	ctx    context.Context
	module reviewpipeline.Module
	store  *memory.Store
}

func newFixture(t *testing.T, bus reviewpipeline.EventBus) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	module := reviewpipeline.NewInMemoryModule(bus, logger)
	store := module.Store
	store.SetNow(baseTime)
	store.SeedEntries(
		entities.ListEntry{EntryID: "bloodbath", ListID: "classic", Name: "Bloodbath", Position: 20},
		entities.ListEntry{EntryID: "sonic-wave", ListID: "classic", Name: "Sonic Wave", Position: 450},
		entities.ListEntry{EntryID: "cataclysm", ListID: "classic", Name: "Cataclysm", Position: 460},
		entities.ListEntry{EntryID: "old-level", ListID: "classic", Name: "Old Level", Position: 90, Legacy: true},
		entities.ListEntry{EntryID: "tower", ListID: "platformer", Name: "Tower", Position: 3},
	)
	store.GrantPermission("mod-m", ports.PermissionReviewSubmissions)
	store.GrantPermission("mod-n", ports.PermissionReviewSubmissions)
	return fixture{ctx: context.Background(), module: module, store: store}
}

func (f fixture) submit(t *testing.T, submitterID string, entryID string) entities.Submission {
	t.Helper()
	submission, err := f.module.Handler.CreateSubmission.Execute(f.ctx, commands.CreateSubmissionCommand{
		SubmitterID: submitterID,
		ListID:      "classic",
		EntryID:     entryID,
		Payload: entities.Payload{
			VideoURL: "https://youtu.be/" + submitterID + "-" + entryID,
			RawURL:   "https://drive.google.com/file/d/raw-" + submitterID + "/view",
		},
	})
	require.NoError(t, err)
	return submission
}

func (f fixture) claim(t *testing.T, reviewerID string) entities.Submission {
	t.Helper()
	claimed, err := f.module.Handler.ClaimSubmission.Execute(f.ctx, commands.ClaimSubmissionCommand{
		ListID:     "classic",
		ReviewerID: reviewerID,
	})
	require.NoError(t, err)
	return claimed
}

func (f fixture) history(t *testing.T, submissionID string) []entities.SubmissionStatus {
	t.Helper()
	entries, err := f.module.Handler.Queries.History(f.ctx, "mod-m", submissionID)
	require.NoError(t, err)
	statuses := make([]entities.SubmissionStatus, 0, len(entries))
	for _, entry := range entries {
		statuses = append(statuses, entry.Status)
	}
	return statuses
}

func TestCreateSubmissionRejections(t *testing.T) {
	completion := int64(93_500)
	cases := []struct {
		name    string
		setup   func(f fixture)
		command commands.CreateSubmissionCommand
		want    error
	}{
		{
			name:  "submissions disabled",
			setup: func(f fixture) { f.store.SetSubmissionsEnabled(false) },
			command: commands.CreateSubmissionCommand{
				SubmitterID: "player-a", ListID: "classic", EntryID: "sonic-wave",
				Payload: entities.Payload{VideoURL: "https://youtu.be/abc"},
			},
			want: domainerrors.ErrSubmissionsDisabled,
		},
		{
			name:  "banned at blocking tier",
			setup: func(f fixture) { f.store.SetBanTier("player-a", 2) },
			command: commands.CreateSubmissionCommand{
				SubmitterID: "player-a", ListID: "classic", EntryID: "sonic-wave",
				Payload: entities.Payload{VideoURL: "https://youtu.be/abc"},
			},
			want: domainerrors.ErrSubmitterBanned,
		},
		{
			name: "legacy entry",
			command: commands.CreateSubmissionCommand{
				SubmitterID: "player-a", ListID: "classic", EntryID: "old-level",
				Payload: entities.Payload{VideoURL: "https://youtu.be/abc", RawURL: "https://youtu.be/raw"},
			},
			want: domainerrors.ErrEntryNotAccepting,
		},
		{
			name: "raw footage required in top placements",
			command: commands.CreateSubmissionCommand{
				SubmitterID: "player-a", ListID: "classic", EntryID: "bloodbath",
				Payload: entities.Payload{VideoURL: "https://youtu.be/abc"},
			},
			want: domainerrors.ErrRawFootageRequired,
		},
		{
			name: "malformed video url",
			command: commands.CreateSubmissionCommand{
				SubmitterID: "player-a", ListID: "classic", EntryID: "sonic-wave",
				Payload: entities.Payload{VideoURL: "ftp://files.example.com/run.mp4"},
			},
			want: domainerrors.ErrInvalidSubmissionURL,
		},
		{
			name: "completion time required",
			command: commands.CreateSubmissionCommand{
				SubmitterID: "player-a", ListID: "platformer", EntryID: "tower",
				Payload: entities.Payload{VideoURL: "https://youtu.be/abc", RawURL: "https://youtu.be/raw"},
			},
			want: domainerrors.ErrCompletionTimeRequired,
		},
		{
			name: "non positive completion time",
			command: commands.CreateSubmissionCommand{
				SubmitterID: "player-a", ListID: "platformer", EntryID: "tower",
				Payload: entities.Payload{
					VideoURL:         "https://youtu.be/abc",
					RawURL:           "https://youtu.be/raw",
					CompletionTimeMS: func() *int64 { v := int64(0); return &v }(),
				},
			},
			want: domainerrors.ErrInvalidSubmissionInput,
		},
		{
			name: "unknown list",
			command: commands.CreateSubmissionCommand{
				SubmitterID: "player-a", ListID: "challenge", EntryID: "sonic-wave",
				Payload: entities.Payload{VideoURL: "https://youtu.be/abc"},
			},
			want: domainerrors.ErrUnknownList,
		},
		{
			name: "unknown entry",
			command: commands.CreateSubmissionCommand{
				SubmitterID: "player-a", ListID: "classic", EntryID: "missing",
				Payload: entities.Payload{VideoURL: "https://youtu.be/abc"},
			},
			want: domainerrors.ErrEntryNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			if tc.setup != nil {
				tc.setup(f)
			}
			_, err := f.module.Handler.CreateSubmission.Execute(f.ctx, tc.command)
			require.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("platformer run with completion time", func(t *testing.T) {
		f := newFixture(t, nil)
		submission, err := f.module.Handler.CreateSubmission.Execute(f.ctx, commands.CreateSubmissionCommand{
			SubmitterID: "player-a", ListID: "Platformer", EntryID: "tower",
			Payload: entities.Payload{
				VideoURL:         "https://youtu.be/abc",
				RawURL:           "https://youtu.be/raw",
				CompletionTimeMS: &completion,
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "platformer", submission.ListID)
		assert.Equal(t, completion, *submission.Payload.CompletionTimeMS)
	})
}

func TestCreateSubmissionStampsPriorityAndAudit(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SetPriorityTier("player-b", 1)
	f.store.SetBanTier("player-b", 1)

	submission := f.submit(t, "player-b", "bloodbath")

	assert.Equal(t, entities.SubmissionStatusPending, submission.Status)
	assert.Equal(t, 1, submission.Priority)
	assert.Equal(t, "https://www.youtube.com/watch?v=player-b-bloodbath", submission.Payload.VideoURL)
	assert.Equal(t, []entities.SubmissionStatus{entities.SubmissionStatusPending}, f.history(t, submission.SubmissionID))
}

func TestCreateSubmissionRejectsSecondActiveSubmission(t *testing.T) {
	f := newFixture(t, nil)
	f.submit(t, "player-a", "sonic-wave")

	_, err := f.module.Handler.CreateSubmission.Execute(f.ctx, commands.CreateSubmissionCommand{
		SubmitterID: "player-a", ListID: "classic", EntryID: "sonic-wave",
		Payload: entities.Payload{VideoURL: "https://youtu.be/other"},
	})
	require.ErrorIs(t, err, domainerrors.ErrDuplicateActiveSubmission)
	assert.Equal(t, domainerrors.KindConflict, domainerrors.KindOf(err))

	// A different submitter may submit the same entry.
	f.submit(t, "player-b", "sonic-wave")
}

func TestSubmitterPatchRules(t *testing.T) {
	f := newFixture(t, nil)
	submission := f.submit(t, "player-a", "sonic-wave")

	notes := "second attempt"
	patched, err := f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: submission.SubmissionID,
		ActorID:      "player-a",
		Patch:        commands.SubmissionPatch{UserNotes: &notes},
	})
	require.NoError(t, err)
	assert.Equal(t, "second attempt", patched.Submission.Payload.UserNotes)
	assert.Equal(t, entities.SubmissionStatusPending, patched.Submission.Status)

	reviewerNotes := "looks fine"
	_, err = f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: submission.SubmissionID,
		ActorID:      "player-a",
		Patch:        commands.SubmissionPatch{ReviewerNotes: &reviewerNotes},
	})
	require.ErrorIs(t, err, domainerrors.ErrSubmitterFieldsOnly)

	_, err = f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: submission.SubmissionID,
		ActorID:      "player-b",
		Patch:        commands.SubmissionPatch{UserNotes: &notes},
	})
	require.ErrorIs(t, err, domainerrors.ErrUnauthorizedActor)

	f.claim(t, "mod-m")
	_, err = f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: submission.SubmissionID,
		ActorID:      "player-a",
		Patch:        commands.SubmissionPatch{UserNotes: &notes},
	})
	require.ErrorIs(t, err, domainerrors.ErrSubmissionLocked)

	assert.Equal(t, []entities.SubmissionStatus{
		entities.SubmissionStatusClaimed,
		entities.SubmissionStatusPending,
		entities.SubmissionStatusPending,
	}, f.history(t, submission.SubmissionID))
}

func TestSubmitterPatchEntryChangeChecksDuplicates(t *testing.T) {
	f := newFixture(t, nil)
	f.submit(t, "player-a", "sonic-wave")
	other := f.submit(t, "player-a", "cataclysm")

	target := "sonic-wave"
	_, err := f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: other.SubmissionID,
		ActorID:      "player-a",
		Patch:        commands.SubmissionPatch{EntryID: &target},
	})
	require.ErrorIs(t, err, domainerrors.ErrDuplicateActiveSubmission)

	legacy := "old-level"
	_, err = f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: other.SubmissionID,
		ActorID:      "player-a",
		Patch:        commands.SubmissionPatch{EntryID: &legacy},
	})
	require.ErrorIs(t, err, domainerrors.ErrEntryNotAccepting)
}

func TestDeniedSubmissionIsResubmittedByPatch(t *testing.T) {
	f := newFixture(t, nil)
	submission := f.submit(t, "player-a", "bloodbath")
	f.claim(t, "mod-m")

	denied, err := f.module.Handler.ReviewSubmission.Deny(f.ctx, commands.ReviewCommand{
		SubmissionID: submission.SubmissionID,
		ReviewerID:   "mod-m",
		Notes:        "clicks missing from raw footage",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.SubmissionStatusDenied, denied.Status)
	assert.Equal(t, "mod-m", denied.ReviewerID)
	assert.Equal(t, "clicks missing from raw footage", denied.ReviewerNotes)

	rawURL := "https://drive.google.com/file/d/raw-with-clicks/view"
	patched, err := f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: submission.SubmissionID,
		ActorID:      "player-a",
		Patch:        commands.SubmissionPatch{RawURL: &rawURL},
	})
	require.NoError(t, err)
	assert.Equal(t, entities.SubmissionStatusPending, patched.Submission.Status)
	assert.Empty(t, patched.Submission.ReviewerID)
	assert.Empty(t, patched.Submission.ReviewerNotes)
	assert.Equal(t, rawURL, patched.Submission.Payload.RawURL)

	entries, err := f.module.Handler.Queries.History(f.ctx, "mod-m", submission.SubmissionID)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, entities.SubmissionStatusPending, entries[0].Status)
	assert.Equal(t, "resubmitted", entries[0].Reason)
}

func TestDeniedSubmissionCannotBeResubmittedWhileBanned(t *testing.T) {
	f := newFixture(t, nil)
	submission := f.submit(t, "player-a", "sonic-wave")
	f.claim(t, "mod-m")
	_, err := f.module.Handler.ReviewSubmission.Deny(f.ctx, commands.ReviewCommand{
		SubmissionID: submission.SubmissionID,
		ReviewerID:   "mod-m",
		Notes:        "spliced",
	})
	require.NoError(t, err)

	f.store.SetBanTier("player-a", 3)
	notes := "please look again"
	_, err = f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: submission.SubmissionID,
		ActorID:      "player-a",
		Patch:        commands.SubmissionPatch{UserNotes: &notes},
	})
	require.ErrorIs(t, err, domainerrors.ErrSubmitterBanned)

	current, err := f.module.Handler.Queries.GetSubmission(f.ctx, "player-a", submission.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, entities.SubmissionStatusDenied, current.Status)
}

func TestDeniedSubmissionCannotBeResubmittedWhileSubmissionsDisabled(t *testing.T) {
	f := newFixture(t, nil)
	submission := f.submit(t, "player-a", "sonic-wave")
	f.claim(t, "mod-m")
	_, err := f.module.Handler.ReviewSubmission.Deny(f.ctx, commands.ReviewCommand{
		SubmissionID: submission.SubmissionID,
		ReviewerID:   "mod-m",
		Notes:        "no clicks",
	})
	require.NoError(t, err)

	f.store.SetSubmissionsEnabled(false)
	notes := "clicks are audible now"
	_, err = f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: submission.SubmissionID,
		ActorID:      "player-a",
		Patch:        commands.SubmissionPatch{UserNotes: &notes},
	})
	require.ErrorIs(t, err, domainerrors.ErrSubmissionsDisabled)

	current, err := f.module.Handler.Queries.GetSubmission(f.ctx, "player-a", submission.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, entities.SubmissionStatusDenied, current.Status)
	assert.Equal(t, "no clicks", current.ReviewerNotes)

	f.store.SetSubmissionsEnabled(true)
	patched, err := f.module.Handler.PatchSubmission.Execute(f.ctx, commands.PatchSubmissionCommand{
		SubmissionID: submission.SubmissionID,
		ActorID:      "player-a",
		Patch:        commands.SubmissionPatch{UserNotes: &notes},
	})
	require.NoError(t, err)
	assert.Equal(t, entities.SubmissionStatusPending, patched.Submission.Status)
}

func TestDeleteSubmissionRules(t *testing.T) {
	f := newFixture(t, nil)
	pending := f.submit(t, "player-a", "sonic-wave")
	require.NoError(t, f.module.Handler.DeleteSubmission.Execute(f.ctx, commands.DeleteSubmissionCommand{
		SubmissionID: pending.SubmissionID,
		ActorID:      "player-a",
	}))
	_, err := f.module.Handler.Queries.GetSubmission(f.ctx, "player-a", pending.SubmissionID)
	require.ErrorIs(t, err, domainerrors.ErrSubmissionNotFound)
	assert.Equal(t, []entities.SubmissionStatus{
		entities.SubmissionStatusDeleted,
		entities.SubmissionStatusPending,
	}, f.history(t, pending.SubmissionID))

	claimed := f.submit(t, "player-a", "cataclysm")
	f.claim(t, "mod-m")

	err = f.module.Handler.DeleteSubmission.Execute(f.ctx, commands.DeleteSubmissionCommand{
		SubmissionID: claimed.SubmissionID,
		ActorID:      "player-a",
	})
	require.ErrorIs(t, err, domainerrors.ErrSubmissionLocked)

	err = f.module.Handler.DeleteSubmission.Execute(f.ctx, commands.DeleteSubmissionCommand{
		SubmissionID: claimed.SubmissionID,
		ActorID:      "player-b",
	})
	require.ErrorIs(t, err, domainerrors.ErrUnauthorizedActor)

	require.NoError(t, f.module.Handler.DeleteSubmission.Execute(f.ctx, commands.DeleteSubmissionCommand{
		SubmissionID: claimed.SubmissionID,
		ActorID:      "mod-n",
		Reason:       "duplicate video",
	}))
	entries, err := f.module.Handler.Queries.History(f.ctx, "mod-n", claimed.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, "duplicate video", entries[0].Reason)
	assert.Equal(t, "mod-n", entries[0].ActorID)
}

func TestReviewerCanDeleteDeniedSubmission(t *testing.T) {
	f := newFixture(t, nil)
	submission := f.submit(t, "player-a", "sonic-wave")
	f.claim(t, "mod-m")
	_, err := f.module.Handler.ReviewSubmission.Deny(f.ctx, commands.ReviewCommand{
		SubmissionID: submission.SubmissionID,
		ReviewerID:   "mod-m",
	})
	require.NoError(t, err)

	err = f.module.Handler.DeleteSubmission.Execute(f.ctx, commands.DeleteSubmissionCommand{
		SubmissionID: submission.SubmissionID,
		ActorID:      "player-a",
	})
	require.ErrorIs(t, err, domainerrors.ErrSubmissionLocked)

	require.NoError(t, f.module.Handler.DeleteSubmission.Execute(f.ctx, commands.DeleteSubmissionCommand{
		SubmissionID: submission.SubmissionID,
		ActorID:      "mod-m",
	}))
}
