package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/arena-core/internal/logging"
)

// Forwarder переносит события кадра во внешнюю EventBus.
// Emit никогда не блокирует шаг симуляции: события кладутся в буфер,
// а публикацию выполняет отдельная горутина. При переполнении событие теряется.
type Forwarder struct {
	source  string
	bus     EventBus
	queue   chan Event
	dropped uint64
	timeout time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewForwarder создаёт мост и запускает публикующую горутину
func NewForwarder(source string, bus EventBus, buffer int) *Forwarder {
	if buffer <= 0 {
		buffer = 4096
	}
	f := &Forwarder{
		source:  source,
		bus:     bus,
		queue:   make(chan Event, buffer),
		timeout: 2 * time.Second,
	}
	f.wg.Add(1)
	go f.loop()
	return f
}

// Listen реализует Listener: подписывается на LocalBus
func (f *Forwarder) Listen(ev Event) {
	select {
	case f.queue <- ev:
	default:
		atomic.AddUint64(&f.dropped, 1)
	}
}

// Dropped сколько событий потеряно из-за переполнения буфера
func (f *Forwarder) Dropped() uint64 { return atomic.LoadUint64(&f.dropped) }

// Close дожидается публикации буфера и останавливает мост
func (f *Forwarder) Close() {
	f.stopOnce.Do(func() { close(f.queue) })
	f.wg.Wait()
}

func (f *Forwarder) loop() {
	defer f.wg.Done()
	log := logging.GetEventLogger()
	for ev := range f.queue {
		env, err := NewEnvelope(f.source, ev)
		if err != nil {
			log.Warn("forwarder: %v", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		if err := f.bus.Publish(ctx, env); err != nil {
			atomic.AddUint64(&f.dropped, 1)
			log.Debug("forwarder: publish %s: %v", env.EventType, err)
		}
		cancel()
	}
}
