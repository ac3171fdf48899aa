package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	application "ranklist/contexts/list-moderation/review-pipeline/application"
	"ranklist/contexts/list-moderation/review-pipeline/application/commands"
	"ranklist/contexts/list-moderation/review-pipeline/domain/entities"
	"ranklist/contexts/list-moderation/review-pipeline/ports"
)

const defaultNotificationConsumerGroup = "review-pipeline-notifications-cg"

// NotificationConsumer delivers submission notifications and reaped-claim
// notices to the sink. Sink failures are logged and swallowed so a broken
// channel never blocks the bus.
type NotificationConsumer struct {
	Subscriber    ports.EventSubscriber
	Sink          ports.NotificationSink
	ConsumerGroup string
	Logger        *slog.Logger
}

func (c NotificationConsumer) Start(ctx context.Context) error {
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultNotificationConsumerGroup
	}
	for _, topic := range commands.NotificationEventTypes {
		if err := c.Subscriber.Subscribe(ctx, topic, group, c.handleNotification); err != nil {
			return err
		}
	}
	return c.Subscriber.Subscribe(ctx, commands.EventTypeClaimsReaped, group, c.handleClaimsReaped)
}

func (c NotificationConsumer) handleNotification(ctx context.Context, event ports.EventEnvelope) error {
	var payload ports.NotificationData
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.EventType, err)
	}
	if strings.TrimSpace(payload.UserID) == "" {
		return fmt.Errorf("%s payload missing user_id", event.EventType)
	}
	c.deliver(ctx, event, payload.UserID, payload.Message, payload.Severity)
	return nil
}

func (c NotificationConsumer) handleClaimsReaped(ctx context.Context, event ports.EventEnvelope) error {
	var payload ports.ReapedClaimsData
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.EventType, err)
	}
	for _, claim := range payload.Claims {
		if strings.TrimSpace(claim.ReviewerID) == "" {
			continue
		}
		message := fmt.Sprintf(
			"Your claim on %s submission %s expired and it was returned to the queue.",
			claim.ListID,
			claim.SubmissionID,
		)
		c.deliver(ctx, event, claim.ReviewerID, message, entities.SeverityWarning)
	}
	return nil
}

func (c NotificationConsumer) deliver(
	ctx context.Context,
	event ports.EventEnvelope,
	userID string,
	message string,
	severity entities.Severity,
) {
	logger := application.ResolveLogger(c.Logger)
	if err := c.Sink.Notify(ctx, userID, message, severity); err != nil {
		logger.Warn("notification delivery failed",
			"event", "review_pipeline_notification_failed",
			"module", "list-moderation/review-pipeline",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"user_id", userID,
			"error", err.Error(),
		)
		return
	}
	logger.Debug("notification delivered",
		"event", "review_pipeline_notification_delivered",
		"module", "list-moderation/review-pipeline",
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"user_id", userID,
	)
}
