package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	domainerrors "ranklist/contexts/list-moderation/review-pipeline/domain/errors"
	"ranklist/contexts/list-moderation/review-pipeline/ports"
)

// SubmitterPolicy gates submitter-initiated writes (create and resubmission).
type SubmitterPolicy struct {
	Settings        ports.SubmissionSettings
	Bans            ports.BanLookup
	BlockingBanTier entities.BanTier
}

func (p SubmitterPolicy) EnsureCanSubmit(ctx context.Context, userID string) error {
	enabled, err := p.Settings.SubmissionsEnabled(ctx)
	if err != nil {
		return err
	}
	if !enabled {
		return domainerrors.ErrSubmissionsDisabled
	}
	tier, err := p.Bans.BanTier(ctx, userID)
	if err != nil {
		return err
	}
	blocking := p.BlockingBanTier
	if blocking <= 0 {
		blocking = 2
	}
	if tier >= blocking {
		return domainerrors.ErrSubmitterBanned
	}
	return nil
}

func isReviewer(ctx context.Context, permissions ports.PermissionChecker, userID string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, nil
	}
	return permissions.HasPermission(ctx, userID, ports.PermissionReviewSubmissions)
}

func ensureReviewer(ctx context.Context, permissions ports.PermissionChecker, userID string) error {
	allowed, err := isReviewer(ctx, permissions, userID)
	if err != nil {
		return err
	}
	if !allowed {
		return domainerrors.ErrUnauthorizedActor
	}
	return nil
}

// validateLink runs the URL collaborator. Empty input is allowed and returned
// as-is; callers decide whether the field is required.
func validateLink(ctx context.Context, validator ports.URLValidator, raw string, invalid error) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", nil
	}
	normalized, err := validator.Validate(ctx, value)
	if err != nil {
		if domainerrors.IsDomain(err) {
			return "", fmt.Errorf("%w: %w", invalid, err)
		}
		return "", err
	}
	return normalized, nil
}

func normalizePayload(ctx context.Context, validator ports.URLValidator, payload entities.Payload) (entities.Payload, error) {
	if strings.TrimSpace(payload.VideoURL) == "" {
		return entities.Payload{}, domainerrors.ErrInvalidSubmissionURL
	}
	videoURL, err := validateLink(ctx, validator, payload.VideoURL, domainerrors.ErrInvalidSubmissionURL)
	if err != nil {
		return entities.Payload{}, err
	}
	rawURL, err := validateLink(ctx, validator, payload.RawURL, domainerrors.ErrInvalidRawURL)
	if err != nil {
		return entities.Payload{}, err
	}
	if payload.CompletionTimeMS != nil && *payload.CompletionTimeMS <= 0 {
		return entities.Payload{}, domainerrors.ErrInvalidSubmissionInput
	}
	payload.VideoURL = videoURL
	payload.RawURL = rawURL
	payload.ModMenu = strings.TrimSpace(payload.ModMenu)
	payload.UserNotes = strings.TrimSpace(payload.UserNotes)
	return payload, nil
}

func resolveEntry(
	ctx context.Context,
	lists ports.ListCatalog,
	entries ports.ListEntries,
	listID string,
	entryID string,
) (entities.ListConfig, entities.ListEntry, error) {
	list, ok := lists.Lookup(listID)
	if !ok {
		return entities.ListConfig{}, entities.ListEntry{}, domainerrors.ErrUnknownList
	}
	entry, err := entries.GetEntry(ctx, list.ListID, strings.TrimSpace(entryID))
	if err != nil {
		return entities.ListConfig{}, entities.ListEntry{}, err
	}
	return list, entry, nil
}

// checkEntryRules applies the per-list and per-entry submission rules.
func checkEntryRules(list entities.ListConfig, entry entities.ListEntry, payload entities.Payload) error {
	if !entry.AcceptsSubmissions() {
		return domainerrors.ErrEntryNotAccepting
	}
	if list.RequiresRawFootage(entry) && strings.TrimSpace(payload.RawURL) == "" {
		return domainerrors.ErrRawFootageRequired
	}
	if list.RequireCompletionTime && payload.CompletionTimeMS == nil {
		return domainerrors.ErrCompletionTimeRequired
	}
	return nil
}

func nowFrom(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}
