package notify

import (
	"context"
	"errors"

	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	"ranklist/contexts/list-moderation/review-pipeline/ports"
)

// Fanout delivers to every sink and reports all failures together. A failing
// sink does not stop delivery to the others.
type Fanout []ports.NotificationSink

func (f Fanout) Notify(ctx context.Context, userID string, message string, severity entities.Severity) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Notify(ctx, userID, message, severity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
