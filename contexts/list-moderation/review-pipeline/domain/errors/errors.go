package errors

import "errors"

var (
	ErrInvalidSubmissionInput    = errors.New("invalid submission input")
	ErrInvalidSubmissionURL      = errors.New("invalid completion url")
	ErrInvalidRawURL             = errors.New("invalid raw footage url")
	ErrUnsupportedProvider       = errors.New("video provider is not supported")
	ErrRawFootageRequired        = errors.New("raw footage is required for this entry")
	ErrCompletionTimeRequired    = errors.New("completion time is required for this list")
	ErrEntryNotAccepting         = errors.New("list entry does not accept submissions")
	ErrUnknownList               = errors.New("unknown list")
	ErrInvalidStatusTransition   = errors.New("invalid submission status transition")
	ErrSubmitterFieldsOnly       = errors.New("only submitter fields can be changed")
	ErrDuplicateActiveSubmission = errors.New("an active submission for this entry already exists")
	ErrSubmissionLocked          = errors.New("submission is being reviewed and cannot be edited")
	ErrStaleTransition           = errors.New("submission changed while being reviewed")
	ErrSubmissionNotFound        = errors.New("submission not found")
	ErrEntryNotFound             = errors.New("list entry not found")
	ErrQueueEmpty                = errors.New("no pending submissions")
	ErrNotInQueue                = errors.New("submission is not waiting in the queue")
	ErrSubmissionsDisabled       = errors.New("submissions are currently disabled")
	ErrUnauthorizedActor         = errors.New("actor is not authorized")
	ErrSubmitterBanned           = errors.New("submitter is banned from submitting")
	ErrStorage                   = errors.New("storage failure")
)

// Kind groups domain errors by how callers should react to them.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindStorage       Kind = "storage"
)

var kinds = []struct {
	kind    Kind
	members []error
}{
	{KindValidation, []error{
		ErrInvalidSubmissionInput,
		ErrInvalidSubmissionURL,
		ErrInvalidRawURL,
		ErrUnsupportedProvider,
		ErrRawFootageRequired,
		ErrCompletionTimeRequired,
		ErrEntryNotAccepting,
		ErrUnknownList,
		ErrInvalidStatusTransition,
	}},
	{KindConflict, []error{
		ErrDuplicateActiveSubmission,
		ErrSubmissionLocked,
		ErrStaleTransition,
	}},
	{KindNotFound, []error{
		ErrSubmissionNotFound,
		ErrEntryNotFound,
		ErrQueueEmpty,
		ErrNotInQueue,
	}},
	{KindAuthorization, []error{
		ErrSubmissionsDisabled,
		ErrUnauthorizedActor,
		ErrSubmitterBanned,
		ErrSubmitterFieldsOnly,
	}},
}

// KindOf classifies err. Anything unrecognised is treated as a storage
// failure and must be reported with a generic message.
func KindOf(err error) Kind {
	for _, group := range kinds {
		for _, member := range group.members {
			if errors.Is(err, member) {
				return group.kind
			}
		}
	}
	return KindStorage
}

// IsDomain reports whether err carries one of the non-storage sentinels.
func IsDomain(err error) bool {
	return err != nil && KindOf(err) != KindStorage
}
