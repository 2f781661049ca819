package eventbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrBusClosed возвращается Publish после Close.
var ErrBusClosed = errors.New("eventbus: bus closed")

// PriorityBlocking события с таким приоритетом и выше не выбрасываются
// при переполнении очереди: Publish ждёт места.
const PriorityBlocking = 5

// MemoryBus шина внутри процесса. Доставка идёт одной горутиной
// в порядке публикации.
type MemoryBus interface {
	EventBus
	Close()
}

type memorySub struct {
	id      int
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

type memoryBus struct {
	queue chan *Envelope

	// sendMu держат публикующие на чтение, Close на запись:
	// очередь не закрывается посреди отправки.
	sendMu  sync.RWMutex
	closed  bool
	closing chan struct{}

	mu     sync.RWMutex
	subs   []*memorySub
	nextID int

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
	closeOnce sync.Once
}

// NewMemoryBus создаёт шину с очередью на capacity конвертов (1024 по умолчанию).
func NewMemoryBus(capacity int) MemoryBus {
	if capacity <= 0 {
		capacity = 1024
	}
	b := &memoryBus{queue: make(chan *Envelope, capacity), closing: make(chan struct{})}
	go b.deliver()
	return b
}

func (b *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()
	if b.closed {
		b.dropped.Add(1)
		return ErrBusClosed
	}

	select {
	case b.queue <- ev:
		b.published.Add(1)
		return nil
	default:
	}
	if ev.Priority < PriorityBlocking {
		b.dropped.Add(1)
		return nil
	}
	select {
	case b.queue <- ev:
		b.published.Add(1)
		return nil
	case <-ctx.Done():
		b.dropped.Add(1)
		return ctx.Err()
	case <-b.closing:
		b.dropped.Add(1)
		return ErrBusClosed
	}
}

func (b *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	cctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &memorySub{id: b.nextID, filter: f, handler: h, ctx: cctx, cancel: cancel}
	b.nextID++
	// copy-on-write: deliver читает срез без блокировки на время вызова обработчиков
	next := make([]*memorySub, len(b.subs), len(b.subs)+1)
	copy(next, b.subs)
	b.subs = append(next, sub)
	return subHandle{bus: b, id: sub.id}, nil
}

func (b *memoryBus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := make([]*memorySub, 0, len(b.subs))
	for _, s := range b.subs {
		if s.id == id {
			s.cancel()
			continue
		}
		next = append(next, s)
	}
	b.subs = next
}

func (b *memoryBus) Metrics() Stats {
	return Stats{
		Published: b.published.Load(),
		Consumed:  b.consumed.Load(),
		Dropped:   b.dropped.Load(),
		InFlight:  len(b.queue),
	}
}

// Close останавливает доставку. Ждущие места публикации прерываются,
// последующие Publish возвращают ErrBusClosed.
func (b *memoryBus) Close() {
	b.closeOnce.Do(func() {
		close(b.closing)
		b.sendMu.Lock()
		b.closed = true
		close(b.queue)
		b.sendMu.Unlock()
	})
}

func (b *memoryBus) deliver() {
	for ev := range b.queue {
		b.mu.RLock()
		subs := b.subs
		b.mu.RUnlock()

		for _, s := range subs {
			if s.ctx.Err() != nil || !s.filter.Matches(ev) {
				continue
			}
			s.handler(s.ctx, ev)
			b.consumed.Add(1)
		}
	}
}

type subHandle struct {
	bus *memoryBus
	id  int
}

func (h subHandle) Unsubscribe() { h.bus.unsubscribe(h.id) }
