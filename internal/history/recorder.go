//
//
package history

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/lng-monitor/relay/internal/snapshot"
	"github.com/lng-monitor/relay/internal/telemetry"
)

// DefaultReattachDelay is the pause before re-attaching after the hub reaped
// the recorder.
const DefaultReattachDelay = time.Second

// Source is the part of the hub the recorder needs.
type Source interface {
	Attach() (*telemetry.Consumer, error)
	Detach(*telemetry.Consumer)
}

// Writer persists one snapshot.
type Writer interface {
	Write(ctx context.Context, snap snapshot.Snapshot) (int, error)
}

// WriteObserver is notified after every write attempt.
type WriteObserver interface {
	RowsWritten(rows int, err error)
}

// Recorder is a hub consumer that persists every snapshot it receives.
type Recorder struct {
	writer        Writer
	observer      WriteObserver
	writeTimeout  time.Duration
	reattachDelay time.Duration
}

// NewRecorder creates a recorder writing through w.
func NewRecorder(w Writer) *Recorder {
	return &Recorder{
		writer:        w,
		writeTimeout:  5 * time.Second,
		reattachDelay: DefaultReattachDelay,
	}
}

// SetObserver installs a write observer.
func (r *Recorder) SetObserver(o WriteObserver) {
	r.observer = o
}

// SetReattachDelay overrides DefaultReattachDelay.
func (r *Recorder) SetReattachDelay(d time.Duration) {
	r.reattachDelay = d
}

// Run consumes snapshots until ctx ends or the hub stops. If the hub removes
// the recorder because it fell behind, Run attaches again after a short delay.
func (r *Recorder) Run(ctx context.Context, src Source) error {
	for {
		consumer, err := src.Attach()
		if err != nil {
			if errors.Is(err, telemetry.ErrHubStopped) {
				return nil
			}
			return err
		}

		reason := r.consume(ctx, consumer)

		switch {
		case ctx.Err() != nil:
			src.Detach(consumer)
			return nil
		case errors.Is(reason, telemetry.ErrHubStopped):
			return nil
		}

		log.Printf("history: recorder removed by hub (%v), re-attaching in %v", reason, r.reattachDelay)
		select {
		case <-time.After(r.reattachDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

// consume drains one consumer until it is removed or ctx ends.
func (r *Recorder) consume(ctx context.Context, consumer *telemetry.Consumer) error {
	for {
		select {
		case msg := <-consumer.Events():
			r.write(ctx, msg.Data)
		case <-consumer.Done():
			return consumer.Err()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Recorder) write(ctx context.Context, snap snapshot.Snapshot) {
	if len(snap) == 0 {
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	rows, err := r.writer.Write(writeCtx, snap)
	if r.observer != nil {
		r.observer.RowsWritten(rows, err)
	}
	if err != nil {
		log.Printf("history: %v", err)
	}
}
