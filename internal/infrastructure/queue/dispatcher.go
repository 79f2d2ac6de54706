package queue

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatty/chat-server/internal/api/metrics"
	"github.com/chatty/chat-server/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	publishTimeout = 5 * time.Second
)

// Publisher delivers an encoded domain event to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Dispatcher relays domain events to a Publisher on a fixed set of workers.
// Events are sharded by their Key, so events of one conversation are
// published in the order they were enqueued.
type Dispatcher struct {
	workers   []chan ports.DomainEvent
	publisher Publisher
	log       zerolog.Logger
	wg        sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, publisher Publisher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan ports.DomainEvent, numWorkers),
		publisher: publisher,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.DomainEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands an event to the worker responsible for its key. It never
// blocks: when that worker is saturated the event is dropped.
func (d *Dispatcher) Enqueue(event ports.DomainEvent) {
	idx := d.shardIndex(event.Key)
	select {
	case d.workers[idx] <- event:
		metrics.RelayQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		metrics.RelayEventsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().Str("subject", event.Subject).Int("worker_id", idx).Msg("relay queue full, event dropped")
	}
}

// shardIndex maps a key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.DomainEvent) {
	defer d.wg.Done()
	depth := metrics.RelayQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			depth.Dec()
			d.publish(ctx, id, event)
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, id int, event ports.DomainEvent) {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		metrics.RelayEventsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).Str("subject", event.Subject).Msg("encode domain event")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	err = d.publisher.Publish(ctx, event.Subject, data)
	metrics.RelayPublishDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RelayEventsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("subject", event.Subject).
			Int("worker_id", id).
			Msg("domain event publish failed")
		return
	}
	metrics.RelayEventsTotal.WithLabelValues("published").Inc()
}
