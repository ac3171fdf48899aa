package workers

import (
	"context"
	"log/slog"
	"time"

	application "ranklist/contexts/list-moderation/review-pipeline/application"
	"ranklist/contexts/list-moderation/review-pipeline/application/commands"
	"ranklist/contexts/list-moderation/review-pipeline/ports"
)

const DefaultClaimTimeout = 120 * time.Minute

// StaleClaimReaper returns claims nobody acted on within Timeout to the queue.
type StaleClaimReaper struct {
	Repository ports.SubmissionRepository
	IDGen      ports.IDGenerator
	Clock      ports.Clock
	Timeout    time.Duration
	Metrics    ports.Metrics
	Logger     *slog.Logger
}

func (r StaleClaimReaper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultClaimTimeout
	}
	eventID, err := r.IDGen.NewID(ctx)
	if err != nil {
		return err
	}

	reaped, err := r.Repository.ReapStaleClaims(ctx, ports.ReapRequest{
		Cutoff:    now.Add(-timeout),
		Now:       now,
		EventID:   eventID,
		EventType: commands.EventTypeClaimsReaped,
	})
	if err != nil {
		logger.Error("stale claim sweep failed",
			"event", "review_pipeline_claim_reap_failed",
			"module", "list-moderation/review-pipeline",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(reaped) == 0 {
		return nil
	}
	application.ResolveMetrics(r.Metrics).RecordReaped(ctx, len(reaped))
	for _, claim := range reaped {
		logger.Info("stale claim released",
			"event", "review_pipeline_claim_reaped",
			"module", "list-moderation/review-pipeline",
			"layer", "worker",
			"submission_id", claim.SubmissionID,
			"list_id", claim.ListID,
			"reviewer_id", claim.ReviewerID,
			"claimed_since", claim.ClaimedSince,
		)
	}
	logger.Info("stale claim sweep completed",
		"event", "review_pipeline_claim_reap_completed",
		"module", "list-moderation/review-pipeline",
		"layer", "worker",
		"reaped_count", len(reaped),
	)
	return nil
}
