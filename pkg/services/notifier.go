package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	sf_metrics "socialfeed/pkg/metrics"
	sf_trace "socialfeed/pkg/trace"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/trace"
)

const FeedEventsExchange = "feed-events"

type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventPostCreated    EventType = "post_created"
	EventRetweetCreated EventType = "retweet_created"
	EventLikeToggled    EventType = "like_toggled"
	EventCommentAdded   EventType = "comment_added"
)

// FeedEvent describes one committed feed mutation.
type FeedEvent struct {
	Type           EventType `json:"type"`
	PostID         string    `json:"post_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	OriginalPostID string    `json:"original_post_id,omitempty"`
	Liked          bool      `json:"liked,omitempty"`
	Timestamp      int64     `json:"timestamp"`
	// tracing
	SpanContext sf_trace.SpanContext `json:"span_context"`
	// evaluation metrics
	NotificationSendTs int64 `json:"notification_send_ts"`
}

// Notifier publishes feed events after the mutation has been saved.
type Notifier interface {
	Notify(ctx context.Context, event FeedEvent) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, FeedEvent) error { return nil }

func RoutingKey(region string) string {
	return fmt.Sprintf("%s-%s", FeedEventsExchange, region)
}

// AMQPNotifier publishes every event to the feed-events topic exchange once per region.
type AMQPNotifier struct {
	ch      *amqp.Channel
	conn    *amqp.Connection
	region  string
	regions []string
	mu      sync.Mutex
}

func NewAMQPNotifier(ch *amqp.Channel, conn *amqp.Connection, region string, regions []string) (*AMQPNotifier, error) {
	err := ch.ExchangeDeclare(FeedEventsExchange, "topic", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("error declaring exchange for rabbitmq: %w", err)
	}
	if len(regions) == 0 {
		regions = []string{region}
	}
	return &AMQPNotifier{ch: ch, conn: conn, region: region, regions: regions}, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, event FeedEvent) error {
	event.SpanContext = sf_trace.BuildSpanContext(trace.SpanContextFromContext(ctx))
	event.NotificationSendTs = time.Now().UnixMilli()

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error converting feed event to json: %w", err)
	}
	msg := amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, region := range n.regions {
		if err := n.ch.PublishWithContext(ctx, FeedEventsExchange, RoutingKey(region), false, false, msg); err != nil {
			return fmt.Errorf("error publishing feed event to %s: %w", region, err)
		}
		sf_metrics.PublishedEvents.Get(sf_metrics.RegionLabel{Region: n.region}).Inc()
	}
	return nil
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.ch.Close(); err != nil {
		n.conn.Close()
		return err
	}
	return n.conn.Close()
}
