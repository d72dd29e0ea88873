package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/atlascrm/fulfillment-backend/pkg/config"
	"github.com/atlascrm/fulfillment-backend/pkg/logger"
)

var errProjectIDRequired = errors.New("gcp project id is required")

// PubSubNotifier publishes events to a Pub/Sub topic. Publish failures are
// logged and dropped.
type PubSubNotifier struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	logg      *logger.Logger
}

// NewPubSubNotifier creates a Pub/Sub client and a publisher bound to the
// configured order events topic.
func NewPubSubNotifier(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*PubSubNotifier, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.OrderEventsTopic) == "" {
		return nil, errors.New("order events topic is required")
	}

	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	topic := cfg.OrderEventsTopic
	if !strings.HasPrefix(topic, "projects/") {
		topic = fmt.Sprintf("projects/%s/topics/%s", gcp.ProjectID, topic)
	}

	if logg != nil {
		logg.Info(ctx, "pubsub notifier initialized")
	}

	return &PubSubNotifier{
		client:    psClient,
		publisher: psClient.Publisher(topic),
		logg:      logg,
	}, nil
}

// Notify publishes the event without waiting for the server acknowledgement.
func (n *PubSubNotifier) Notify(ctx context.Context, event Event) {
	if n == nil || n.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logError(ctx, "marshal notification event", err)
		return
	}
	result := n.publisher.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"event_type": string(event.Type)},
	})
	go func() {
		if _, err := result.Get(context.Background()); err != nil {
			n.logError(ctx, "publish notification event", err)
		}
	}()
}

// Close releases the Pub/Sub client resources.
func (n *PubSubNotifier) Close() error {
	if n == nil || n.client == nil {
		return nil
	}
	return n.client.Close()
}

func (n *PubSubNotifier) logError(ctx context.Context, msg string, err error) {
	if n.logg == nil {
		return
	}
	n.logg.Error(ctx, msg, err)
}
