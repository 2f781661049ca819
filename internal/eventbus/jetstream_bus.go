package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	nats "github.com/nats-io/nats.go"
)

// SubjectPrefix общий префикс subject'ов арены. Полный subject: arena.<event_type>.
const SubjectPrefix = "arena"

// Subject возвращает subject для типа события.
func Subject(eventType string) string {
	return SubjectPrefix + "." + eventType
}

// JetStreamBus публикует конверты забегов в стрим NATS JetStream, чтобы
// их читали процессы вне сервера (event-cli, аналитика).
type JetStreamBus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	stream string

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// NewJetStreamBus подключается к NATS и создаёт стрим ARENA (arena.*),
// если его ещё нет. События старше retention удаляются сервером.
func NewJetStreamBus(url, stream string, retention time.Duration) (*JetStreamBus, error) {
	if stream == "" {
		stream = "ARENA"
	}
	nc, err := nats.Connect(url, nats.Name("arena-core"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	if err := ensureStream(js, stream, retention); err != nil {
		nc.Close()
		return nil, err
	}
	return &JetStreamBus{nc: nc, js: js, stream: stream}, nil
}

func ensureStream(js nats.JetStreamContext, name string, retention time.Duration) error {
	_, err := js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info %s: %w", name, err)
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:      name,
		Subjects:  []string{SubjectPrefix + ".*"},
		Retention: nats.LimitsPolicy,
		MaxAge:    retention,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("add stream %s: %w", name, err)
	}
	return nil
}

// Publish кладёт конверт в subject arena.<event_type> и ждёт подтверждения стрима.
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err == nil {
		_, err = jb.js.Publish(Subject(ev.EventType), data, nats.Context(ctx))
	}
	if err != nil {
		jb.dropped.Add(1)
		return fmt.Errorf("publish %s: %w", ev.EventType, err)
	}
	jb.published.Add(1)
	return nil
}

// Subscribe открывает эфемерного потребителя, который читает только новые
// события. Если в фильтре ровно один тип, сервер фильтрует по subject.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subject := SubjectPrefix + ".*"
	if len(f.Types) == 1 {
		subject = Subject(f.Types[0])
	}
	sub, err := jb.js.Subscribe(subject, func(msg *nats.Msg) {
		defer func() { _ = msg.Ack() }()
		var ev Envelope
		if json.Unmarshal(msg.Data, &ev) != nil || !f.Matches(&ev) {
			return
		}
		h(ctx, &ev)
		jb.consumed.Add(1)
	}, nats.BindStream(jb.stream), nats.DeliverNew(), nats.ManualAck(), nats.AckWait(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return natsSub{sub}, nil
}

type natsSub struct{ s *nats.Subscription }

func (n natsSub) Unsubscribe() { _ = n.s.Unsubscribe() }

// Metrics отдаёт счётчики. Очередь доставки держит сам JetStream, InFlight всегда 0.
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: jb.published.Load(),
		Consumed:  jb.consumed.Load(),
		Dropped:   jb.dropped.Load(),
	}
}

// Close дожидается отправки буферизованных сообщений и закрывает соединение.
func (jb *JetStreamBus) Close() error {
	return jb.nc.Drain()
}
