package eventbus

// Listener обработчик уведомлений внутри кадра
type Listener func(ev Event)

// TypeFilter подписка на подмножество типов. Пустой фильтр пропускает все типы.
type TypeFilter []Type

func (f TypeFilter) match(t Type) bool {
	if len(f) == 0 {
		return true
	}
	for _, v := range f {
		if v == t {
			return true
		}
	}
	return false
}

// Emitter порт, через который системы испускают уведомления
type Emitter interface {
	Emit(ev Event)
}

// LocalBus синхронная шина внутри шага симуляции.
// Обработчики вызываются сразу в порядке подписки, в том же потоке.
// Обработчики не должны изменять коллекции сущностей.
type LocalBus struct {
	subs    []localSub
	nextID  int
	emitted map[Type]uint64

	frame uint64
	now   float64
}

type localSub struct {
	id       int
	filter   TypeFilter
	listener Listener
}

// NewLocalBus создаёт пустую шину
func NewLocalBus() *LocalBus {
	return &LocalBus{emitted: make(map[Type]uint64)}
}

// SetClock задаёт кадр и время, которыми штампуются события без времени
func (b *LocalBus) SetClock(frame uint64, now float64) {
	b.frame = frame
	b.now = now
}

// Subscribe добавляет слушателя и возвращает функцию отписки
func (b *LocalBus) Subscribe(filter TypeFilter, l Listener) func() {
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, localSub{id: id, filter: filter, listener: l})
	return func() {
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit рассылает событие подписчикам
func (b *LocalBus) Emit(ev Event) {
	if ev.Frame == 0 {
		ev.Frame = b.frame
	}
	if ev.Time == 0 {
		ev.Time = b.now
	}
	b.emitted[ev.Type]++
	for _, s := range b.subs {
		if s.filter.match(ev.Type) {
			s.listener(ev)
		}
	}
}

// Count сколько событий типа t было испущено
func (b *LocalBus) Count(t Type) uint64 { return b.emitted[t] }

// Recorder слушатель, накапливающий события (тесты, отладка)
type Recorder struct {
	Events []Event
}

// Listen реализует Listener
func (r *Recorder) Listen(ev Event) { r.Events = append(r.Events, ev) }

// OfType возвращает события указанного типа
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, ev := range r.Events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// Reset очищает накопленное
func (r *Recorder) Reset() { r.Events = r.Events[:0] }
