package hostbridge

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultQueueSize задаёт ёмкость очереди неотправленных событий.
	DefaultQueueSize = 256
	sendTimeout      = 10 * time.Second

	// defaultDrainTimeout ограничивает доставку хвоста очереди при остановке.
	defaultDrainTimeout = 2 * time.Second
)

// Dispatcher принимает события без блокировки и рассылает их в фоне.
// При переполненной очереди событие отбрасывается.
type Dispatcher struct {
	notifiers    []Notifier
	queue        chan Event
	logger       *zap.Logger
	onDrop       func(Event)
	drainTimeout time.Duration
}

// NewDispatcher создаёт диспетчер с очередью указанного размера.
func NewDispatcher(logger *zap.Logger, size int, onDrop func(Event), notifiers ...Notifier) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if onDrop == nil {
		onDrop = func(Event) {}
	}
	return &Dispatcher{
		notifiers:    notifiers,
		queue:        make(chan Event, size),
		logger:       logger,
		onDrop:       onDrop,
		drainTimeout: defaultDrainTimeout,
	}
}

// Publish ставит событие в очередь и никогда не блокирует вызывающего.
func (d *Dispatcher) Publish(ev Event) {
	if len(d.notifiers) == 0 {
		return
	}

	select {
	case d.queue <- ev:
	default:
		d.onDrop(ev)
		d.logger.Warn("host event dropped: queue full",
			zap.String("action", ev.Action),
			zap.Int64("userID", ev.UserID),
		)
	}
}

// Run рассылает события до отмены контекста. После отмены оставшиеся в очереди
// события доставляются в пределах drainTimeout, не успевшие передаются в onDrop.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case ev := <-d.queue:
			if ctx.Err() != nil {
				d.drain(ev)
				return
			}
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) drain(pending ...Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.drainTimeout)
	defer cancel()

	var delivered, dropped int
	handle := func(ev Event) {
		if ctx.Err() != nil {
			d.onDrop(ev)
			dropped++
			return
		}
		d.deliver(ctx, ev)
		delivered++
	}

	for _, ev := range pending {
		handle(ev)
	}
	for {
		select {
		case ev := <-d.queue:
			handle(ev)
		default:
			if delivered+dropped > 0 {
				d.logger.Info("host event queue drained",
					zap.Int("delivered", delivered),
					zap.Int("dropped", dropped),
				)
			}
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	for _, n := range d.notifiers {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := n.Notify(sendCtx, ev)
		cancel()

		if err != nil {
			d.logger.Warn("host notification failed",
				zap.String("action", ev.Action),
				zap.Int64("userID", ev.UserID),
				zap.Error(err),
			)
		}
	}
}
