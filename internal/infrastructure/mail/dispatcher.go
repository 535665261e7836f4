package mail

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-portal/internal/api/metrics"
	"github.com/99minutos/auth-portal/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

var (
	ErrQueueFull  = errors.New("mail queue full")
	ErrNotRunning = errors.New("mail dispatcher not running")
)

type message struct {
	recipient, subject, body string
}

// Dispatcher hands messages to a fixed set of workers using consistent
// hashing on the recipient, so mail to one address is sent in order.
// Send only enqueues; delivery errors are logged by the workers.
type Dispatcher struct {
	workers []chan message
	next    ports.Notifier
	log     zerolog.Logger
	timeout time.Duration

	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup
}

var _ ports.Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers that
// deliver through next. If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, next ports.Notifier, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan message, numWorkers),
		next:    next,
		log:     log,
		timeout: defaultSendTimeout,
	}
	for i := range d.workers {
		d.workers[i] = make(chan message, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled;
// Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	d.running = true
	d.mu.Unlock()

	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
	go func() {
		<-ctx.Done()
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Send enqueues the message on the worker responsible for recipient. It
// never blocks: a full worker channel yields ErrQueueFull.
func (d *Dispatcher) Send(_ context.Context, recipient, subject, body string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		return ErrNotRunning
	}

	idx := d.shardIndex(recipient)
	select {
	case d.workers[idx] <- message{recipient: recipient, subject: subject, body: body}:
		metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	default:
		return ErrQueueFull
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan message) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-ch:
			metrics.MailQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			if err := d.next.Send(sendCtx, m.recipient, m.subject, m.body); err != nil {
				d.log.Error().Err(err).
					Str("recipient", m.recipient).
					Int("worker_id", id).
					Msg("email delivery failed")
			}
			cancel()
		}
	}
}
