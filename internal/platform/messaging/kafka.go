package messaging

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"

	"ranklist/internal/shared/events"
)

const memberBuffer = 128

var ErrBusClosed = errors.New("event bus closed")

// Kafka mimics the broker semantics the relay and consumers rely on while
// running in-process: every consumer group sees each event once, and events
// sharing a partition key land on the same group member in publish order.
type Kafka struct {
	mu      sync.RWMutex
	topics  map[string]map[string]*memberSet
	brokers []string
	closed  bool
	logger  *slog.Logger
}

type memberSet struct {
	members []chan events.Envelope
}

func NewKafka(brokers []string, logger *slog.Logger) (*Kafka, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{
		topics:  make(map[string]map[string]*memberSet),
		brokers: append([]string(nil), brokers...),
		logger:  logger,
	}, nil
}

// Publish blocks until every group on the topic has buffered the event or ctx
// is done. Topics without consumers accept and discard.
func (k *Kafka) Publish(ctx context.Context, topic string, event events.Envelope) error {
	k.mu.RLock()
	if k.closed {
		k.mu.RUnlock()
		return ErrBusClosed
	}
	targets := make([]chan events.Envelope, 0, len(k.topics[topic]))
	for _, group := range k.topics[topic] {
		if len(group.members) == 0 {
			continue
		}
		targets = append(targets, group.members[partition(event.PartitionKey, len(group.members))])
	}
	k.mu.RUnlock()

	for _, target := range targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case target <- event:
		}
	}

	k.logger.Debug("event published",
		"event", "bus_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"groups", len(targets),
		"event_id", event.EventID,
		"event_type", event.EventType,
	)
	return nil
}

// Subscribe joins consumerGroup on topic until ctx is done. Handler errors
// are logged and the event is not redelivered.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, events.Envelope) error,
) error {
	member := make(chan events.Envelope, memberBuffer)
	if err := k.join(topic, consumerGroup, member); err != nil {
		return err
	}

	go func() {
		defer k.leave(topic, consumerGroup, member)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-member:
				if err := handler(ctx, event); err != nil {
					k.logger.Error("consumer handler failed",
						"event", "bus_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

// Close rejects further publishes. Running subscribers stop with their own
// contexts.
func (k *Kafka) Close() error {
	k.mu.Lock()
	k.closed = true
	k.mu.Unlock()
	return nil
}

func (k *Kafka) Brokers() []string {
	return append([]string(nil), k.brokers...)
}

func (k *Kafka) join(topic string, name string, member chan events.Envelope) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return ErrBusClosed
	}
	groups, ok := k.topics[topic]
	if !ok {
		groups = make(map[string]*memberSet)
		k.topics[topic] = groups
	}
	group, ok := groups[name]
	if !ok {
		group = &memberSet{}
		groups[name] = group
	}
	group.members = append(group.members, member)
	return nil
}

func (k *Kafka) leave(topic string, name string, member chan events.Envelope) {
	k.mu.Lock()
	defer k.mu.Unlock()

	group, ok := k.topics[topic][name]
	if !ok {
		return
	}
	kept := group.members[:0]
	for _, item := range group.members {
		if item != member {
			kept = append(kept, item)
		}
	}
	group.members = kept
	if len(kept) == 0 {
		delete(k.topics[topic], name)
	}
}

func partition(key string, members int) int {
	if members <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(members))
}
