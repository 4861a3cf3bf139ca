package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Handler receives every published event. Handlers are responsible for
// switching on the event types they care about.
type Handler func(ctx context.Context, event interface{})

// Bus is the in-process dispatcher between the identity/profile write paths
// and the trigger pipeline. Delivery is asynchronous and in publish order;
// handler panics are recovered so a misbehaving trigger cannot take down the
// process.
type Bus struct {
	logger *zap.Logger

	mu       sync.RWMutex
	handlers []Handler

	queue  chan interface{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBus(logger *zap.Logger) *Bus {
	ctx, cancel := context.WithCancel(context.Background())

	b := &Bus{
		logger: logger,
		queue:  make(chan interface{}, 128),
		ctx:    ctx,
		cancel: cancel,
	}

	b.wg.Add(1)
	go b.dispatch()

	return b
}

// Subscribe registers a handler for all subsequent events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish enqueues an event for dispatch. Events published after Close are
// dropped.
func (b *Bus) Publish(event interface{}) {
	select {
	case <-b.ctx.Done():
		b.logger.Warn("event dropped, bus is closed", zap.Any("event", event))
	case b.queue <- event:
	}
}

// Close stops dispatching after the queue drains.
func (b *Bus) Close() {
	b.cancel()
	b.wg.Wait()
}

func (b *Bus) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case event := <-b.queue:
			b.deliver(event)
		case <-b.ctx.Done():
			// Drain whatever was queued before shutdown.
			for {
				select {
				case event := <-b.queue:
					b.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) deliver(event interface{}) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.invoke(h, event)
	}
}

func (b *Bus) invoke(h Handler, event interface{}) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.Any("event", event),
				zap.Any("panic", r))
		}
	}()

	h(context.Background(), event)
}
