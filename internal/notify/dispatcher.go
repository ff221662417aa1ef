package notify

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var deliveries = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notify_deliveries_total",
		Help: "Email deliveries by message kind and outcome",
	},
	[]string{"kind", "outcome"},
)

const maxRetryDelay = time.Minute

type DispatcherOptions struct {
	QueueSize   int
	Workers     int
	MaxAttempts int
	BaseDelay   time.Duration
	// DrainTimeout bounds the final delivery attempt for each message still
	// queued at shutdown.
	DrainTimeout time.Duration
}

func (o *DispatcherOptions) applyDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 100
	}
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 2 * time.Second
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = 10 * time.Second
	}
}

// Dispatcher delivers messages in the background. Enqueue never blocks and
// delivery failures never reach the caller; they are retried with
// exponential backoff and then logged.
type Dispatcher struct {
	transport Transport
	opts      DispatcherOptions
	queue     chan Message
	stopped   atomic.Bool
	logger    *zap.Logger
}

func NewDispatcher(transport Transport, opts DispatcherOptions, logger *zap.Logger) *Dispatcher {
	opts.applyDefaults()
	return &Dispatcher{
		transport: transport,
		opts:      opts,
		queue:     make(chan Message, opts.QueueSize),
		logger:    logger,
	}
}

// Enqueue schedules msg for delivery. It reports false when the message
// was dropped because the queue is full or the dispatcher has stopped.
func (d *Dispatcher) Enqueue(msg Message) bool {
	if d.stopped.Load() {
		d.drop(msg, "stopped")
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		d.drop(msg, "queue_full")
		return false
	}
}

// Send delivers msg synchronously with a single attempt.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	if err := d.transport.Send(ctx, msg); err != nil {
		deliveries.WithLabelValues(msg.Kind, "failed").Inc()
		return err
	}
	deliveries.WithLabelValues(msg.Kind, "sent").Inc()
	return nil
}

// Run starts the workers and blocks until ctx is cancelled. Messages still
// queued at that point get one last attempt before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < d.opts.Workers; i++ {
		g.Go(func() error {
			d.work(gctx)
			return nil
		})
	}
	err := g.Wait()
	d.stopped.Store(true)
	d.drain()
	return err
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-d.queue:
			d.deliver(ctx, msg)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	delay := d.opts.BaseDelay
	for attempt := 1; ; attempt++ {
		err := d.transport.Send(ctx, msg)
		if err == nil {
			deliveries.WithLabelValues(msg.Kind, "sent").Inc()
			return
		}
		if attempt >= d.opts.MaxAttempts {
			deliveries.WithLabelValues(msg.Kind, "failed").Inc()
			d.logger.Error("email delivery failed",
				zap.String("kind", msg.Kind),
				zap.String("to", msg.To),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return
		}
		d.logger.Warn("email delivery failed, retrying",
			zap.String("kind", msg.Kind),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			// Put it back so the drain gets a final attempt.
			select {
			case d.queue <- msg:
			default:
				d.drop(msg, "shutdown")
			}
			return
		case <-timer.C:
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case msg := <-d.queue:
			ctx, cancel := context.WithTimeout(context.Background(), d.opts.DrainTimeout)
			if err := d.Send(ctx, msg); err != nil {
				d.logger.Error("email delivery failed during shutdown",
					zap.String("kind", msg.Kind),
					zap.String("to", msg.To),
					zap.Error(err),
				)
			}
			cancel()
		default:
			return
		}
	}
}

func (d *Dispatcher) drop(msg Message, reason string) {
	deliveries.WithLabelValues(msg.Kind, "dropped").Inc()
	d.logger.Warn("email dropped",
		zap.String("kind", msg.Kind),
		zap.String("to", msg.To),
		zap.String("reason", reason),
	)
}
