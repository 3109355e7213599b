// Package notify wraps github.com/nats-io/nats.go with the narrow
// publish/subscribe surface internal/kv needs for its optional push-
// notification fast path (§4.5's "future extension", see SPEC_FULL.md).
// A Notifier is entirely optional: a kv.Store with none configured falls
// back to the polling baseline with no behavior change.
package notify

import (
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/clusterdf/ddf/pkg/log"
)

// Notifier wraps a NATS connection with subscription bookkeeping.
type Notifier struct {
	conn *nats.Conn

	mu   sync.Mutex
	subs []*nats.Subscription
}

// Connect dials addr (e.g. "nats://localhost:4222"). A disconnect or
// reconnect is logged but never surfaced as an error to the caller — the
// KV store treats a dead notifier as "no notifier" and keeps polling.
func Connect(addr string) (*Notifier, error) {
	if addr == "" {
		return nil, fmt.Errorf("notify: address is required")
	}

	opts := []nats.Option{
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("notify: disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("notify: reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Errorf("notify: error: %v", err)
		}),
	}

	conn, err := nats.Connect(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("notify: connect to %s: %w", addr, err)
	}
	log.Infof("notify: connected to %s", addr)

	return &Notifier{conn: conn}, nil
}

// KeySubject maps a key name to the NATS subject a put on that key
// publishes to.
func KeySubject(keyName string) string {
	return "ddf.kv." + keyName
}

// Publish announces that subject now has fresh data, with no payload
// beyond the announcement itself — subscribers always re-fetch through
// the normal KV path rather than trusting message contents, since NATS
// delivery is best-effort and a subscriber may already have raced ahead
// via polling.
func (n *Notifier) Publish(subject string) error {
	if err := n.conn.Publish(subject, nil); err != nil {
		return fmt.Errorf("notify: publish %s: %w", subject, err)
	}
	return nil
}

// SubscribeOnce returns a channel that receives a single value the first
// time subject is published to, plus an unsubscribe function the caller
// must call exactly once (whether or not the channel fired) to release
// the subscription.
func (n *Notifier) SubscribeOnce(subject string) (<-chan struct{}, func(), error) {
	fired := make(chan struct{}, 1)

	var sub *nats.Subscription
	sub, err := n.conn.Subscribe(subject, func(*nats.Msg) {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("notify: subscribe %s: %w", subject, err)
	}

	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()

	unsubscribe := func() {
		if err := sub.Unsubscribe(); err != nil {
			log.Warnf("notify: unsubscribe %s: %v", subject, err)
		}
	}
	return fired, unsubscribe, nil
}

// Close unsubscribes everything still outstanding and closes the
// connection.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, sub := range n.subs {
		sub.Unsubscribe()
	}
	n.subs = nil
	n.conn.Close()
}
