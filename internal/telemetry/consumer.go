//
//
package telemetry

import (
	"sync"
	"time"
)

// Consumer is a live registration. It is created by Hub.Attach and
// invalidated by Hub.Detach, a failed send, or Hub.Stop.
type Consumer struct {
	ID          string
	ConnectedAt time.Time

	events chan Message
	done   chan struct{}
	once   sync.Once

	mu            sync.Mutex
	err           error
	subscriptions []any
}

func newConsumer(id string, buffer int, now time.Time) *Consumer {
	return &Consumer{
		ID:          id,
		ConnectedAt: now,
		events:      make(chan Message, buffer),
		done:        make(chan struct{}),
	}
}

// Events returns the delivery channel. It is never closed; select on Done.
func (c *Consumer) Events() <-chan Message {
	return c.events
}

// Done is closed once the consumer has been removed from the hub.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Err reports why the consumer was removed: nil for an explicit Detach,
// ErrTransportFailure or ErrHubStopped otherwise. Only meaningful after Done.
func (c *Consumer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Subscriptions returns the equipment ids from the last subscribe message.
// They are recorded only; delivery always carries the full snapshot.
func (c *Consumer) Subscriptions() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.subscriptions))
	copy(out, c.subscriptions)
	return out
}

func (c *Consumer) setSubscriptions(ids []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions = ids
}

// close is safe to call more than once; the first reason wins.
func (c *Consumer) close(reason error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.err = reason
		c.mu.Unlock()
		close(c.done)
	})
}
