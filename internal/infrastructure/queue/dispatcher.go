package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/freightchain/tracking-system/internal/api/metrics"
	"github.com/freightchain/tracking-system/internal/core/domain"
	"github.com/freightchain/tracking-system/internal/core/ports"
)

const defaultWorkers = 8

// shard is one worker's intake. The queue grows as needed so producers never
// wait on a consumer; the ledger invokes Enqueue inside its total-order slot,
// and a blocking handoff there would stall every submission behind a slow
// projection.
type shard struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []domain.Event
	closed bool
}

func newShard() *shard {
	s := &shard{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Dispatcher routes confirmed ledger events to a fixed set of workers using
// consistent hashing on the shipment id, guaranteeing that projections for
// one shipment are applied in the order the ledger finalized them.
type Dispatcher struct {
	shards   []*shard
	consumer ports.EventConsumer
	log      zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, consumer ports.EventConsumer, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		shards:   make([]*shard, numWorkers),
		consumer: consumer,
		log:      log,
	}
	for i := range d.shards {
		d.shards[i] = newShard()
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, s := range d.shards {
		go d.runWorker(ctx, i, s)
	}
	go func() {
		<-ctx.Done()
		for _, s := range d.shards {
			s.mu.Lock()
			s.closed = true
			s.cond.Broadcast()
			s.mu.Unlock()
		}
	}()
}

// Enqueue hands an event to the worker responsible for its shipment id. It
// never blocks, so it is safe to call from the ledger's event sink.
func (d *Dispatcher) Enqueue(event domain.Event) {
	i := d.shardIndex(event.ShipmentID)
	s := d.shards[i]
	s.mu.Lock()
	s.queue = append(s.queue, event)
	depth := len(s.queue)
	s.cond.Signal()
	s.mu.Unlock()
	metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(i)).Set(float64(depth))
}

// shardIndex maps a shipment id deterministically to a worker index.
func (d *Dispatcher) shardIndex(shipmentID uint64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatUint(shipmentID, 10)))
	return int(h.Sum32()) % len(d.shards)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, s *shard) {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		event := s.queue[0]
		s.queue = s.queue[1:]
		depth := len(s.queue)
		s.mu.Unlock()

		metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(depth))
		if err := d.consumer.Apply(ctx, event); err != nil {
			d.log.Error().Err(err).
				Str("kind", string(event.Kind)).
				Uint64("shipment_id", event.ShipmentID).
				Int("worker_id", id).
				Msg("event projection failed")
		}
	}
}
