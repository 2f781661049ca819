package eventbus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsExporter раз в период переносит Stats шины в Prometheus.
// Counter'ы растут на разницу между двумя снимками.
type MetricsExporter struct {
	bus  EventBus
	quit chan struct{}
	done chan struct{}

	published prometheus.Counter
	consumed  prometheus.Counter
	dropped   prometheus.Counter
	inflight  prometheus.Gauge
}

func busCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Namespace: "arena", Subsystem: "eventbus", Name: name, Help: help})
}

// NewMetricsExporter создаёт экспортер и регистрирует его метрики в reg.
// Повторная регистрация в том же реестре возвращает ошибку.
func NewMetricsExporter(bus EventBus, reg prometheus.Registerer) (*MetricsExporter, error) {
	me := &MetricsExporter{
		bus:       bus,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		published: busCounter("envelopes_published_total", "Конверты событий, принятые шиной."),
		consumed:  busCounter("envelopes_consumed_total", "Конверты, переданные подписчикам."),
		dropped:   busCounter("envelopes_dropped_total", "Конверты, потерянные из-за переполнения или ошибок публикации."),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arena",
			Subsystem: "eventbus",
			Name:      "envelopes_queued",
			Help:      "Конверты в очереди доставки.",
		}),
	}
	for _, c := range []prometheus.Collector{me.published, me.consumed, me.dropped, me.inflight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return me, nil
}

// Start запускает фоновый сбор с периодом every (секунда по умолчанию).
func (m *MetricsExporter) Start(every time.Duration) {
	if every <= 0 {
		every = time.Second
	}
	go func() {
		defer close(m.done)
		t := time.NewTicker(every)
		defer t.Stop()
		var last Stats
		for {
			select {
			case <-t.C:
				last = m.collect(last)
			case <-m.quit:
				return
			}
		}
	}()
}

// Stop останавливает сбор и ждёт выхода горутины.
func (m *MetricsExporter) Stop() {
	close(m.quit)
	<-m.done
}

func (m *MetricsExporter) collect(last Stats) Stats {
	now := m.bus.Metrics()
	addDelta(m.published, last.Published, now.Published)
	addDelta(m.consumed, last.Consumed, now.Consumed)
	addDelta(m.dropped, last.Dropped, now.Dropped)
	m.inflight.Set(float64(now.InFlight))
	return now
}

func addDelta(c prometheus.Counter, before, after uint64) {
	if after > before {
		c.Add(float64(after - before))
	}
}
