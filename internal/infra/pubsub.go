package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// subscriptionAckDeadline gives agents enough time to process a task
// message before redelivery.
const subscriptionAckDeadline = 15 * time.Second

// PubSubBuilder creates and deletes the ingest Pub/Sub topics and their
// subscriptions.
type PubSubBuilder struct {
	client *pubsub.Client
	logger *slog.Logger
}

// NewPubSubBuilder creates a PubSubBuilder for the given project.
func NewPubSubBuilder(ctx context.Context, projectID string, logger *slog.Logger, opts ...option.ClientOption) (*PubSubBuilder, error) {
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &PubSubBuilder{
		client: client,
		logger: logger.With("component", "pubsub-builder"),
	}, nil
}

// Close releases the Pub/Sub client.
func (b *PubSubBuilder) Close() error {
	return b.client.Close()
}

// CreateTopicAndSubscriptions creates a topic and attaches its
// subscriptions.
func (b *PubSubBuilder) CreateTopicAndSubscriptions(ctx context.Context, spec TopicSpec) error {
	b.logger.Info("creating topic", "topic", spec.Topic, "subscriptions", spec.Subscriptions)
	topic, err := b.client.CreateTopic(ctx, spec.Topic)
	if err != nil {
		return fmt.Errorf("create topic %q: %w", spec.Topic, err)
	}
	for _, sub := range spec.Subscriptions {
		_, err := b.client.CreateSubscription(ctx, sub, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: subscriptionAckDeadline,
		})
		if err != nil {
			return fmt.Errorf("create subscription %q: %w", sub, err)
		}
	}
	return nil
}

// DeleteTopicAndSubscriptions deletes a topic and the subscriptions
// attached to it. A missing topic is not an error.
func (b *PubSubBuilder) DeleteTopicAndSubscriptions(ctx context.Context, topicName string) error {
	topic := b.client.Topic(topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check topic %q: %w", topicName, err)
	}
	if !exists {
		b.logger.Info("topic does not exist, skipping delete", "topic", topicName)
		return nil
	}

	it := topic.Subscriptions(ctx)
	for {
		sub, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("list subscriptions of %q: %w", topicName, err)
		}
		if err := sub.Delete(ctx); err != nil {
			return fmt.Errorf("delete subscription %q: %w", sub.ID(), err)
		}
	}
	if err := topic.Delete(ctx); err != nil {
		return fmt.Errorf("delete topic %q: %w", topicName, err)
	}
	return nil
}

// TopicStatus reports whether a topic and all its subscriptions exist.
// A missing topic is NOT_FOUND; a topic with missing subscriptions is
// UNKNOWN, since that state never results from a completed create or
// delete.
func (b *PubSubBuilder) TopicStatus(ctx context.Context, spec TopicSpec) (ResourceStatus, error) {
	exists, err := b.client.Topic(spec.Topic).Exists(ctx)
	if err != nil {
		return StatusUnknown, fmt.Errorf("check topic %q: %w", spec.Topic, err)
	}
	if !exists {
		return StatusNotFound, nil
	}
	for _, sub := range spec.Subscriptions {
		exists, err := b.client.Subscription(sub).Exists(ctx)
		if err != nil {
			return StatusUnknown, fmt.Errorf("check subscription %q: %w", sub, err)
		}
		if !exists {
			return StatusUnknown, nil
		}
	}
	return StatusRunning, nil
}
