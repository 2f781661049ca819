package game

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics показатели симуляции. Один экземпляр разделяется всеми забегами
// процесса; методы безопасны для nil.
type Metrics struct {
	frameSeconds prometheus.Histogram
	enemiesAlive prometheus.Gauge
	kills        prometheus.Counter
	wave         prometheus.Gauge
	runs         prometheus.Counter
}

// NewMetrics создаёт и регистрирует метрики. Повторная регистрация
// в том же реестре переиспользует уже зарегистрированные коллекторы.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		frameSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arena_frame_seconds",
			Help:    "Wall time spent in one simulation step",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.0167, 0.033},
		}),
		enemiesAlive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arena_enemies_alive",
			Help: "Active enemies after the last simulated frame",
		}),
		kills: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_enemy_kills_total",
			Help: "Enemies killed by the player across all runs",
		}),
		wave: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arena_wave",
			Help: "Wave number of the most recently stepped run",
		}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_runs_finished_total",
			Help: "Runs that ended with the player's death",
		}),
	}

	var err error
	if m.frameSeconds, err = register(reg, m.frameSeconds); err != nil {
		return nil, err
	}
	if m.enemiesAlive, err = register(reg, m.enemiesAlive); err != nil {
		return nil, err
	}
	if m.kills, err = register(reg, m.kills); err != nil {
		return nil, err
	}
	if m.wave, err = register(reg, m.wave); err != nil {
		return nil, err
	}
	if m.runs, err = register(reg, m.runs); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) observe(frame time.Duration, alive, newKills, wave int) {
	if m == nil {
		return
	}
	m.frameSeconds.Observe(frame.Seconds())
	m.enemiesAlive.Set(float64(alive))
	if newKills > 0 {
		m.kills.Add(float64(newKills))
	}
	m.wave.Set(float64(wave))
}

func (m *Metrics) runFinished() {
	if m == nil {
		return
	}
	m.runs.Inc()
}
