package main

import (
	"context"
	"errors"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisherFactory func(topic string) publisher

// publisherCache keeps one publisher per topic for the life of the process.
type publisherCache struct {
	mu    sync.Mutex
	topics map[string]publisher
}

func newPublisherCache() *publisherCache {
	return &publisherCache{topics: map[string]publisher{}}
}

func (c *publisherCache) get(topic string, factory publisherFactory) publisher {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pub, ok := c.topics[topic]; ok {
		return pub
	}
	pub := factory(topic)
	if pub != nil {
		c.topics[topic] = pub
	}
	return pub
}

// stop flushes pending messages on every Pub/Sub backed publisher.
func (c *publisherCache) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for topic, pub := range c.topics {
		if stopper, ok := pub.(interface{ Stop() }); ok {
			stopper.Stop()
		}
		delete(c.topics, topic)
	}
}

func pubSubPublishers(client pubSubClient) publisherFactory {
	return func(topic string) publisher {
		p := client.Publisher(topic)
		if p == nil {
			return nil
		}
		return topicPublisher{p}
	}
}

type topicPublisher struct {
	p *gcppubsub.Publisher
}

func (t topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return resultAdapter{t.p.Publish(ctx, msg)}
}

func (t topicPublisher) Stop() { t.p.Stop() }

type resultAdapter struct {
	r *gcppubsub.PublishResult
}

func (a resultAdapter) Get(ctx context.Context) (string, error) {
	if a.r == nil {
		return "", errors.New("publish result is nil")
	}
	return a.r.Get(ctx)
}
