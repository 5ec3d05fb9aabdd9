//
//
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/lng-monitor/relay/internal/config"
	"github.com/lng-monitor/relay/internal/snapshot"
)

// Observer receives hub lifecycle notifications, e.g. for metrics.
type Observer interface {
	ConsumerAttached(active int)
	ConsumerDetached(active int, reason string)
	TickCompleted(delivered, failed int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ConsumerAttached(int)                  {}
func (nopObserver) ConsumerDetached(int, string)          {}
func (nopObserver) TickCompleted(int, int, time.Duration) {}

// Detach reasons reported to the Observer.
const (
	ReasonDetach           = "detach"
	ReasonTransportFailure = "transport_failure"
	ReasonHubStopped       = "hub_stopped"
)

// Hub fans out telemetry snapshots to all attached consumers.
//
// LOCK ORDERING:
// 1. h.mu (RWMutex) - protects consumers, started, stopped
// 2. Consumer.mu - protects per-consumer bookkeeping
//
// The tick loop copies the consumer set under h.mu.RLock and sends without
// holding it, so Attach/Detach never wait on a slow consumer.
type Hub struct {
	mu        sync.RWMutex
	consumers map[string]*Consumer
	started   bool
	stopped   bool

	config    *config.HubConfig
	generator *snapshot.Generator
	observer  Observer
	now       func() time.Time

	// Synchronization for shutdown
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHub creates a hub that draws snapshots from gen on the cadence in cfg.
func NewHub(cfg *config.HubConfig, gen *snapshot.Generator) *Hub {
	return &Hub{
		consumers: make(map[string]*Consumer),
		config:    cfg,
		generator: gen,
		observer:  nopObserver{},
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

// SetObserver installs an observer. Call before Start.
func (h *Hub) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	h.mu.Lock()
	h.observer = o
	h.mu.Unlock()
}

// Attach registers a new consumer. The initial snapshot is already queued on
// the returned consumer's channel.
func (h *Hub) Attach() (*Consumer, error) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		return nil, ErrHubStopped
	}

	now := h.now()
	consumer := newConsumer(xid.New().String(), h.config.ConsumerBuffer, now)

	// Enqueued before registration: the tick loop cannot see this consumer yet,
	// so the hub remains its channel's only writer.
	consumer.events <- Message{Type: TypeInitial, Data: h.generator.Next()}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil, ErrHubStopped
	}
	h.consumers[consumer.ID] = consumer
	active := len(h.consumers)
	observer := h.observer
	h.mu.Unlock()

	observer.ConsumerAttached(active)
	log.Printf("telemetry: consumer %s attached (%d active)", consumer.ID, active)

	return consumer, nil
}

// Detach removes a consumer. Unknown or already removed consumers are ignored.
func (h *Hub) Detach(consumer *Consumer) {
	if consumer == nil {
		return
	}
	h.remove(consumer, nil)
}

// Count returns the number of attached consumers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.consumers)
}

// Current returns a freshly generated snapshot without delivering it.
func (h *Hub) Current() snapshot.Snapshot {
	return h.generator.Next()
}

// HandleMessage processes one inbound message from consumer. It returns the
// reply to send, if any. Errors wrap ErrMalformedMessage.
func (h *Hub) HandleMessage(consumer *Consumer, raw []byte) (*Message, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch in.Type {
	case TypePing:
		return &Message{Type: TypePong, Timestamp: formatTimestamp(h.now())}, nil
	case TypeSubscribe:
		// Recorded only: every consumer keeps receiving the full snapshot
		consumer.setSubscriptions(in.EquipmentIDs)
		log.Printf("telemetry: consumer %s subscribed to %v", consumer.ID, in.EquipmentIDs)
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, in.Type)
	}
}

// Start launches the tick loop. Calling it again has no effect.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started || h.stopped {
		return
	}
	h.started = true

	ticker := time.NewTicker(h.config.TickInterval)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				h.tick()
			case <-h.done:
				return
			}
		}
	}()
}

// tick delivers one update snapshot to every consumer registered when the
// fan-out begins and removes the consumers whose send failed.
func (h *Hub) tick() (delivered, failed int) {
	start := h.now()

	h.mu.RLock()
	consumers := make([]*Consumer, 0, len(h.consumers))
	for _, consumer := range h.consumers {
		consumers = append(consumers, consumer)
	}
	observer := h.observer
	h.mu.RUnlock()

	if len(consumers) == 0 {
		observer.TickCompleted(0, 0, h.now().Sub(start))
		return 0, 0
	}

	msg := Message{
		Type:      TypeUpdate,
		Data:      h.generator.Next(),
		Timestamp: formatTimestamp(start),
	}

	// Fast path: consumers with buffer space never leave this goroutine
	var blocked []*Consumer
	for _, consumer := range consumers {
		select {
		case <-consumer.done:
			continue
		default:
		}

		select {
		case consumer.events <- msg:
			delivered++
		default:
			blocked = append(blocked, consumer)
		}
	}

	// Slow path: wait for the blocked ones concurrently, each within SendTimeout
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		failures []*Consumer
	)
	for _, consumer := range blocked {
		wg.Add(1)
		go func(c *Consumer) {
			defer wg.Done()
			ok, err := h.deliver(c, msg)
			mu.Lock()
			defer mu.Unlock()
			if ok {
				delivered++
			} else if err != nil {
				failures = append(failures, c)
			}
		}(consumer)
	}
	wg.Wait()

	// Removal happens after the fan-out, never during it
	for _, consumer := range failures {
		h.remove(consumer, ErrTransportFailure)
	}

	observer.TickCompleted(delivered, len(failures), h.now().Sub(start))
	return delivered, len(failures)
}

// deliver sends msg within SendTimeout. A consumer removed concurrently is
// neither a delivery nor a failure.
func (h *Hub) deliver(consumer *Consumer, msg Message) (bool, error) {
	timeout := time.NewTimer(h.config.SendTimeout)
	defer timeout.Stop()

	select {
	case consumer.events <- msg:
		return true, nil
	case <-consumer.done:
		return false, nil
	case <-h.done:
		return false, nil
	case <-timeout.C:
		return false, fmt.Errorf("consumer %s: %w: send exceeded %v", consumer.ID, ErrTransportFailure, h.config.SendTimeout)
	}
}

// remove unregisters a consumer and closes its Done channel.
func (h *Hub) remove(consumer *Consumer, reason error) {
	h.mu.Lock()
	current, exists := h.consumers[consumer.ID]
	if !exists || current != consumer {
		h.mu.Unlock()
		return
	}
	delete(h.consumers, consumer.ID)
	active := len(h.consumers)
	observer := h.observer
	h.mu.Unlock()

	consumer.close(reason)
	observer.ConsumerDetached(active, reasonLabel(reason))

	if reason != nil {
		log.Printf("telemetry: consumer %s removed: %v (%d active)", consumer.ID, reason, active)
	} else {
		log.Printf("telemetry: consumer %s detached (%d active)", consumer.ID, active)
	}
}

func reasonLabel(reason error) string {
	switch reason {
	case nil:
		return ReasonDetach
	case ErrHubStopped:
		return ReasonHubStopped
	default:
		return ReasonTransportFailure
	}
}

// Stop stops the tick loop and removes every consumer. Attach fails afterwards.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopped = true
		h.mu.Unlock()

		// Signal shutdown first
		close(h.done)

		// Wait for the tick loop with timeout
		finished := make(chan struct{})
		go func() {
			h.wg.Wait()
			close(finished)
		}()

		select {
		case <-finished:
		case <-time.After(h.config.StopTimeout):
			log.Printf("telemetry: tick loop did not stop within %v", h.config.StopTimeout)
		}

		h.mu.RLock()
		consumers := make([]*Consumer, 0, len(h.consumers))
		for _, consumer := range h.consumers {
			consumers = append(consumers, consumer)
		}
		h.mu.RUnlock()

		for _, consumer := range consumers {
			h.remove(consumer, ErrHubStopped)
		}
	})
}
