package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sf_metrics "socialfeed/pkg/metrics"
	"socialfeed/pkg/model"
	sf_trace "socialfeed/pkg/trace"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ChannelFactory opens a fresh rabbitmq channel for one worker.
type ChannelFactory func(ctx context.Context) (*amqp.Channel, *amqp.Connection, error)

// EventWorker consumes feed events of one region and checks each referenced
// post against the feed, counting events that point at unknown posts.
type EventWorker struct {
	feed       FeedService
	region     string
	logger     *slog.Logger
	newChannel ChannelFactory
}

func NewEventWorker(feed FeedService, region string, logger *slog.Logger, newChannel ChannelFactory) *EventWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventWorker{feed: feed, region: region, logger: logger, newChannel: newChannel}
}

// RunWorkers starts n consumers and blocks until all of them return.
func (w *EventWorker) RunWorkers(ctx context.Context, n int) {
	w.logger.Info("initializing feed event workers", "region", w.region, "nworkers", n)
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("error in worker thread", "msg", err.Error())
			}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}
}

func (w *EventWorker) Run(ctx context.Context) error {
	logger := w.logger

	ch, conn, err := w.newChannel(ctx)
	if err != nil {
		logger.Error(err.Error())
		return err
	}
	defer conn.Close()
	defer ch.Close()

	err = ch.ExchangeDeclare(FeedEventsExchange, "topic", false, false, false, false, nil)
	if err != nil {
		logger.Error("error declaring exchange for rabbitmq", "msg", err.Error())
		return err
	}

	routingKey := RoutingKey(w.region)
	_, err = ch.QueueDeclare(routingKey, true, false, false, false, nil)
	if err != nil {
		logger.Error("error declaring queue for rabbitmq", "msg", err.Error())
		return err
	}

	err = ch.QueueBind(routingKey, routingKey, FeedEventsExchange, false, nil)
	if err != nil {
		logger.Error("error binding queue for rabbitmq", "msg", err.Error())
		return err
	}

	msgs, err := ch.Consume(routingKey, "", true, false, false, false, nil)
	if err != nil {
		logger.Error("error consuming queue", "msg", err.Error())
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("rabbitmq delivery channel closed")
			}
			if err := w.HandleMessage(ctx, msg.Body); err != nil {
				logger.Warn("error in worker thread", "msg", err.Error())
			}
		}
	}
}

// HandleMessage processes one encoded FeedEvent.
func (w *EventWorker) HandleMessage(ctx context.Context, body []byte) error {
	var event FeedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		w.logger.Error("error parsing json message", "msg", err.Error())
		return err
	}

	ctx = sf_trace.ContextWithRemote(ctx, event.SpanContext)
	ctx, span := tracer.Start(ctx, "EventWorker.HandleMessage")
	defer span.End()

	label := sf_metrics.RegionLabel{Region: w.region}
	sf_metrics.ReceivedEvents.Get(label).Inc()
	if event.NotificationSendTs > 0 {
		queued := time.Now().UnixMilli() - event.NotificationSendTs
		sf_metrics.QueueDurationMs.Get(label).Put(float64(max(queued, 0)))
	}

	w.logger.Debug("received rabbitmq message", "type", string(event.Type), "postid", event.PostID)
	span.AddEvent("reading rabbitmq message",
		trace.WithAttributes(
			attribute.String("type", string(event.Type)),
			attribute.Int64("queue_end_ms", time.Now().UnixMilli()),
		))

	if event.PostID == "" {
		return nil
	}
	post, err := w.feed.Post(ctx, event.PostID)
	if errors.Is(err, model.ErrNotFound) {
		w.logger.Debug("inconsistency!", "postid", event.PostID)
		sf_metrics.Inconsistencies.Get(label).Inc()
		return nil
	}
	if err != nil {
		return err
	}
	w.logger.Debug("found post! :)", "postid", post.ID, "retweet_count", post.RetweetCount, "likes", post.Likes())
	return nil
}
