package pubsub

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/angelmondragon/sunrise-backend/pkg/config"
	"github.com/angelmondragon/sunrise-backend/pkg/gcp"
	"github.com/angelmondragon/sunrise-backend/pkg/logger"
)

var errClientNotInitialized = errors.New("pubsub client not initialized")

// Option declares which resources the process depends on.
// Every declared resource is verified at boot and again on Ping.
type Option func(*requirements)

type requirements struct {
	topics        []string
	subscriptions []string
}

// RequireTopics marks topics the process publishes to.
func RequireTopics(names ...string) Option {
	return func(r *requirements) { r.topics = append(r.topics, names...) }
}

// RequireSubscriptions marks subscriptions the process consumes.
func RequireSubscriptions(names ...string) Option {
	return func(r *requirements) { r.subscriptions = append(r.subscriptions, names...) }
}

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig

	topics        []string
	subscriptions []string
}

// NewClient opens a Pub/Sub v2 client and verifies the required topics and subscriptions.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	projectID, err := gcp.ProjectID(gcpCfg)
	if err != nil {
		return nil, err
	}

	var req requirements
	for _, opt := range opts {
		opt(&req)
	}

	c := &Client{projectID: projectID, cfg: cfg}
	if c.topics, err = c.resolve(gcp.CollectionTopics, req.topics); err != nil {
		return nil, err
	}
	if c.subscriptions, err = c.resolve(gcp.CollectionSubscriptions, req.subscriptions); err != nil {
		return nil, err
	}

	c.client, err = pubsub.NewClient(ctx, projectID, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	if err := c.verify(ctx); err != nil {
		_ = c.client.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"topics":        len(c.topics),
			"subscriptions": len(c.subscriptions),
		}), "pubsub client initialized")
	}
	return c, nil
}

func (c *Client) resolve(collection string, names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, name := range names {
		full := gcp.ResourceName(c.projectID, collection, name)
		if full == "" {
			return nil, fmt.Errorf("pubsub %s name is required", collection)
		}
		out = append(out, full)
	}
	return out, nil
}

func (c *Client) verify(ctx context.Context) error {
	for _, topic := range c.topics {
		if _, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: topic}); err != nil {
			return describe("topic", topic, err)
		}
	}
	for _, sub := range c.subscriptions {
		if _, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: sub}); err != nil {
			return describe("subscription", sub, err)
		}
	}
	return nil
}

func describe(kind, name string, err error) error {
	if gcp.IsNotFound(err) {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}

// Subscriber returns a handle for a subscription id or full resource name.
func (c *Client) Subscriber(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := gcp.ResourceName(c.projectID, gcp.CollectionSubscriptions, name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

// NotificationsSubscription feeds order confirmation emails.
func (c *Client) NotificationsSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscriber(c.cfg.NotificationsSubscription)
}

// ReportingSubscription feeds the order facts table.
func (c *Client) ReportingSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscriber(c.cfg.ReportingSubscription)
}

// Publisher returns a handle for a topic id or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := gcp.ResourceName(c.projectID, gcp.CollectionTopics, name)
	if full == "" {
		return nil
	}
	return c.client.Publisher(full)
}

// Ping re-verifies every required resource.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errClientNotInitialized
	}
	return c.verify(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
