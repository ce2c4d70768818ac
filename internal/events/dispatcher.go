package events

import (
	"context"
	"log"
	"sync"
	"time"

	"leafscan/internal/metrics"
	"leafscan/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, event models.PredictionEvent) error
	Close() error
}

// Dispatcher hands prediction events to a Publisher from a fixed pool of
// workers so request handlers never wait on the broker.
type Dispatcher struct {
	publisher Publisher
	metrics   *metrics.Metrics

	queue       chan models.PredictionEvent
	workerCount int
	stopChan    chan struct{}
	wg          sync.WaitGroup
	running     bool
	mu          sync.RWMutex

	publishTimeout time.Duration
}

func NewDispatcher(publisher Publisher, workerCount, queueSize int, m *metrics.Metrics) *Dispatcher {
	if workerCount <= 0 {
		workerCount = 2
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	return &Dispatcher{
		publisher:      publisher,
		metrics:        m,
		queue:          make(chan models.PredictionEvent, queueSize),
		workerCount:    workerCount,
		stopChan:       make(chan struct{}),
		publishTimeout: 5 * time.Second,
	}
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true

	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Stop waits for queued events to be published and closes the publisher.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopChan)
	d.mu.Unlock()

	d.wg.Wait()

	if err := d.publisher.Close(); err != nil {
		log.Printf("[events] failed to close publisher: %v", err)
	}
}

// Enqueue never blocks. The event is dropped when the dispatcher is not
// running or the queue is full.
func (d *Dispatcher) Enqueue(event models.PredictionEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.running {
		d.drop(event, "dispatcher is not running")
		return false
	}

	select {
	case d.queue <- event:
		return true
	default:
		d.drop(event, "queue is full")
		return false
	}
}

func (d *Dispatcher) drop(event models.PredictionEvent, reason string) {
	log.Printf("[events] dropping %s for prediction %d: %s", event.Type, event.PredictionID, reason)
	d.metrics.IncEventsDropped()
}

func (d *Dispatcher) worker(workerID int) {
	defer d.wg.Done()

	for {
		select {
		case <-d.stopChan:
			d.drain(workerID)
			return
		case event := <-d.queue:
			d.publish(workerID, event)
		}
	}
}

func (d *Dispatcher) drain(workerID int) {
	for {
		select {
		case event := <-d.queue:
			d.publish(workerID, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(workerID int, event models.PredictionEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, event); err != nil {
		log.Printf("[events] worker %d failed to publish %s: %v", workerID, event.EventID, err)
	}
}

func (d *Dispatcher) GetStatus() map[string]interface{} {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return map[string]interface{}{
		"running":        d.running,
		"worker_count":   d.workerCount,
		"queue_size":     len(d.queue),
		"queue_capacity": cap(d.queue),
	}
}
