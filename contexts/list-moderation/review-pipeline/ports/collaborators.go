package ports

import (
	"context"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
)

// PermissionReviewSubmissions lets a user claim, review and edit submissions.
const PermissionReviewSubmissions = "submission_review"

// URLValidator checks a completion or raw footage link and returns its
// normalized form.
type URLValidator interface {
	Validate(ctx context.Context, rawURL string) (string, error)
}

// PermissionChecker is the capability check used for every reviewer action.
type PermissionChecker interface {
	HasPermission(ctx context.Context, userID string, permission string) (bool, error)
}

type BanLookup interface {
	BanTier(ctx context.Context, userID string) (entities.BanTier, error)
}

type SubmissionSettings interface {
	SubmissionsEnabled(ctx context.Context) (bool, error)
}

// StandingLookup resolves the priority tier stamped on new submissions.
type StandingLookup interface {
	PriorityTier(ctx context.Context, userID string) (int, error)
}

type ListEntries interface {
	GetEntry(ctx context.Context, listID string, entryID string) (entities.ListEntry, error)
}

type ListCatalog interface {
	Lookup(listID string) (entities.ListConfig, bool)
}

// NotificationSink delivers user-facing messages. Delivery is best effort.
type NotificationSink interface {
	Notify(ctx context.Context, userID string, message string, severity entities.Severity) error
}

// DiscordAccounts maps a site user to the Discord account they linked. found
// is false for users who never linked one.
type DiscordAccounts interface {
	DiscordID(ctx context.Context, userID string) (discordID string, found bool, err error)
}
