package pubsub

import (
	"context"
	"errors"
	"sync"
)

// ErrShutdown is returned by Subscribe after the bus has been shut down.
var ErrShutdown = errors.New("pubsub: shut down")

// subscriberBuffer is the per-subscription channel depth. Publishing
// never blocks; a full buffer drops the event for that subscriber.
const subscriberBuffer = 100

// PubSub fans engine events out to subscribers by topic.
type PubSub struct {
	subscribers map[string]map[*Subscription]bool
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
}

// Subscription is a registration for one or more topics.
type Subscription struct {
	topics    []string
	channel   chan Event
	ps        *PubSub
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once // Ensures channel is only closed once
}

// NewPubSub creates a new PubSub instance
func NewPubSub() *PubSub {
	return &PubSub{
		subscribers: make(map[string]map[*Subscription]bool),
		shutdown:    make(chan struct{}),
	}
}

// Subscribe registers for the given topics. With no topics the
// subscription covers everything the engine publishes.
func (ps *PubSub) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return nil, ErrShutdown
	}
	ps.shutdownMu.Unlock()

	if len(topics) == 0 {
		topics = Topics()
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topics:  topics,
		channel: make(chan Event, subscriberBuffer),
		ps:      ps,
		ctx:     subCtx,
		cancel:  cancel,
	}

	ps.mu.Lock()
	for _, topic := range topics {
		if ps.subscribers[topic] == nil {
			ps.subscribers[topic] = make(map[*Subscription]bool)
		}
		ps.subscribers[topic][sub] = true
	}
	ps.mu.Unlock()

	// Monitor context cancellation
	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-ps.shutdown:
			sub.close()
		}
	}()

	return sub, nil
}

// Publish sends an event to all subscribers of its topic and reports
// how many received it and how many dropped it with a full buffer.
// Subscribers are snapshotted under lock so a concurrent Unsubscribe
// cannot race the iteration.
func (ps *PubSub) Publish(evt Event) (delivered, dropped int) {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return 0, 0
	}
	ps.shutdownMu.Unlock()

	ps.mu.RLock()
	topicSubs := ps.subscribers[evt.Topic]
	if len(topicSubs) == 0 {
		ps.mu.RUnlock()
		return 0, 0
	}
	subs := make([]*Subscription, 0, len(topicSubs))
	for sub := range topicSubs {
		subs = append(subs, sub)
	}
	ps.mu.RUnlock()

	// Send outside the lock so a slow subscriber cannot stall others
	for _, sub := range subs {
		select {
		case sub.channel <- evt:
			delivered++
		default:
			dropped++
		}
	}
	return delivered, dropped
}

// GetSubscriberCount returns the number of subscribers for a topic
func (ps *PubSub) GetSubscriberCount(topic string) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.subscribers[topic] == nil {
		return 0
	}

	return len(ps.subscribers[topic])
}

// Shutdown closes all subscriptions and shuts down the PubSub
func (ps *PubSub) Shutdown() {
	ps.shutdownMu.Lock()
	if ps.isShutdown {
		ps.shutdownMu.Unlock()
		return
	}
	ps.isShutdown = true
	ps.shutdownMu.Unlock()

	close(ps.shutdown)

	ps.mu.Lock()
	for topic := range ps.subscribers {
		for sub := range ps.subscribers[topic] {
			sub.close()
		}
		delete(ps.subscribers, topic)
	}
	ps.mu.Unlock()
}

// Channel returns the subscription's event channel
func (s *Subscription) Channel() <-chan Event {
	return s.channel
}

// Topics returns the topics this subscription covers
func (s *Subscription) Topics() []string {
	out := make([]string, len(s.topics))
	copy(out, s.topics)
	return out
}

// Unsubscribe removes the subscription from every topic it covers
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.ps.mu.Lock()
	defer s.ps.mu.Unlock()

	for _, topic := range s.topics {
		if s.ps.subscribers[topic] != nil {
			delete(s.ps.subscribers[topic], s)
			if len(s.ps.subscribers[topic]) == 0 {
				delete(s.ps.subscribers, topic)
			}
		}
	}

	s.close()
}

// close closes the subscription channel safely (idempotent)
func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
