package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope универсальный контейнер события для внешних потребителей
// (UI, аудио, лидерборд, аналитика). Внутри кадра используется Event.
type Envelope struct {
	ID        string            `json:"id"`         // UUID
	Timestamp time.Time         `json:"timestamp"`  // время публикации (UTC)
	Source    string            `json:"source"`     // идентификатор забега
	EventType string            `json:"event_type"` // Type события
	Version   int               `json:"version"`    // схема полезной нагрузки
	Priority  int               `json:"priority"`   // 0=Low … 9=Critical (для backpressure)
	Frame     uint64            `json:"frame"`
	SimTime   float64           `json:"sim_time"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewEnvelope упаковывает событие кадра
func NewEnvelope(source string, ev Event) (*Envelope, error) {
	var payload json.RawMessage
	if ev.Payload != nil {
		data, err := json.Marshal(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", ev.Type, err)
		}
		payload = data
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: string(ev.Type),
		Version:   1,
		Priority:  ev.Type.Priority(),
		Frame:     ev.Frame,
		SimTime:   ev.Time,
		Payload:   payload,
	}, nil
}

// Filter отбирает события по типу и забегу. Пустой список пропускает всё.
type Filter struct {
	Types   []string
	Sources []string
}

// Matches сообщает, проходит ли конверт фильтр.
func (f Filter) Matches(ev *Envelope) bool {
	return anyOf(f.Types, ev.EventType) && anyOf(f.Sources, ev.Source)
}

func anyOf(allowed []string, v string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus абстракция внешней шины событий (in-memory или JetStream).
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
}
