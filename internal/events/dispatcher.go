package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joefazee/marketcore/internal/logger"
)

const defaultPublishTimeout = 2 * time.Second

// Dispatcher queues events and delivers them to sinks on a background worker.
// When the queue is full new events are dropped.
type Dispatcher struct {
	log            logger.Logger
	sinks          []Sink
	queue          chan Event
	publishTimeout time.Duration

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Uint64
}

var _ Emitter = (*Dispatcher)(nil)

func NewDispatcher(log logger.Logger, buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		log:            log,
		sinks:          sinks,
		queue:          make(chan Event, buffer),
		publishTimeout: defaultPublishTimeout,
		done:           make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) Emit(e Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- e:
	default:
		d.dropped.Add(1)
		d.log.Debug("event dropped", map[string]interface{}{"kind": string(e.Kind)})
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close stops accepting events and waits until queued ones are delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.queue {
		for _, s := range d.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), d.publishTimeout)
			if err := s.Publish(ctx, e); err != nil {
				d.log.Error(err, map[string]interface{}{
					"sink": s.Name(),
					"kind": string(e.Kind),
				})
			}
			cancel()
		}
	}
}
