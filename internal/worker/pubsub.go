package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types carried in refresh messages.
const (
	jobTypeFeedRefresh = "feed_refresh"
	jobTypeHealthCheck = "health_check"
)

const (
	maxOutstandingMessages = 10
	maxAckExtension        = 10 * time.Minute
	healthCheckTimeout     = 10 * time.Second
)

// RefreshMessage is the payload published by the scheduler to trigger a job.
type RefreshMessage struct {
	JobType    string `json:"job_type"`
	Invalidate bool   `json:"invalidate,omitempty"`
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	RefreshJob       *RefreshJob
	Logger           zerolog.Logger
}

// PubSubHandler consumes refresh messages from a Pub/Sub subscription and
// dispatches them to the refresh job.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	refreshJob       *RefreshJob
	logger           zerolog.Logger
}

// NewPubSubHandler creates a handler bound to the configured subscription.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = maxOutstandingMessages
	subscriber.ReceiveSettings.MaxExtension = maxAckExtension

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		refreshJob:       cfg.RefreshJob,
		logger:           cfg.Logger,
	}, nil
}

// Start receives messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close releases the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	start := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	var refreshMsg RefreshMessage
	if err := json.Unmarshal(msg.Data, &refreshMsg); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	var err error
	switch refreshMsg.JobType {
	case jobTypeFeedRefresh:
		err = h.runFeedRefresh(ctx, refreshMsg)
	case jobTypeHealthCheck:
		err = h.runHealthCheck(ctx)
	default:
		// Ack unknown job types so they are not redelivered forever.
		logger.Warn().Str("job_type", refreshMsg.JobType).Msg("unknown job type")
		msg.Ack()
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	logger.Info().
		Str("job_type", refreshMsg.JobType).
		Dur("duration", time.Since(start)).
		Msg("job completed")
	msg.Ack()
}

func (h *PubSubHandler) runFeedRefresh(ctx context.Context, msg RefreshMessage) error {
	h.logger.Info().
		Bool("invalidate", msg.Invalidate).
		Msg("starting feed refresh")

	result := h.refreshJob.Run(ctx, msg.Invalidate)

	h.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("total_sectors", result.TotalSectors).
		Msg("feed refresh completed")

	// A partial failure is tolerable; nack only when most sectors failed so
	// the message is retried.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, result.TotalSectors)
	}
	return nil
}

// runHealthCheck warms a single sector to verify the feed store is reachable.
func (h *PubSubHandler) runHealthCheck(ctx context.Context) error {
	sectors := DefaultRefreshSectors()
	probe := NewRefreshJob(RefreshJobConfig{
		Config: RefreshConfig{
			Sectors:     sectors[:1],
			Concurrency: 1,
			Timeout:     healthCheckTimeout,
		},
		Logger:       h.logger,
		FeedsService: h.refreshJob.feedsService,
	})

	result := probe.Run(ctx, false)
	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %d errors", result.Failed)
	}
	return nil
}
