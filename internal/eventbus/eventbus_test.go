package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBus_FilterAndUnsubscribe(t *testing.T) {
	bus := NewLocalBus()
	bus.SetClock(7, 1.5)

	all := &Recorder{}
	deaths := &Recorder{}
	bus.Subscribe(nil, all.Listen)
	unsub := bus.Subscribe(TypeFilter{EnemyDeath}, deaths.Listen)

	bus.Emit(Event{Type: EnemyDamaged})
	bus.Emit(Event{Type: EnemyDeath})
	require.Len(t, all.Events, 2)
	require.Len(t, deaths.Events, 1)
	assert.Equal(t, uint64(7), all.Events[0].Frame)
	assert.Equal(t, 1.5, all.Events[0].Time)

	unsub()
	bus.Emit(Event{Type: EnemyDeath})
	assert.Len(t, deaths.Events, 1)
	assert.Equal(t, uint64(2), bus.Count(EnemyDeath))
	assert.Len(t, all.OfType(EnemyDeath), 2)
}

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope("run-1", Event{
		Type:    BossSpawned,
		Frame:   3,
		Time:    9,
		Payload: BossSpawnedPayload{EnemyID: 5, BossType: "BRUTE", Appearance: 1, HP: 1500},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, "boss_spawned", env.EventType)
	assert.Equal(t, 9, env.Priority)

	var p BossSpawnedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "BRUTE", p.BossType)
}

func TestMemoryBus_DeliversInOrder(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{"wave_start", "wave_end"}}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		got = append(got, ev.EventType)
		if len(got) == 2 {
			close(done)
		}
		mu.Unlock()
	})
	require.NoError(t, err)

	for _, tp := range []Type{WaveStart, EnemyDamaged, WaveEnd} {
		env, err := NewEnvelope("run", Event{Type: tp})
		require.NoError(t, err)
		require.NoError(t, bus.Publish(context.Background(), env))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("события не доставлены")
	}
	mu.Lock()
	assert.Equal(t, []string{"wave_start", "wave_end"}, got)
	mu.Unlock()
	assert.Equal(t, uint64(3), bus.Metrics().Published)
}

func TestForwarder_PublishesThroughBus(t *testing.T) {
	bus := NewMemoryBus(64)
	received := make(chan *Envelope, 8)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		received <- ev
	})
	require.NoError(t, err)

	fwd := NewForwarder("run-42", bus, 8)
	local := NewLocalBus()
	local.Subscribe(nil, fwd.Listen)
	local.Emit(Event{Type: PlayerDeath, Payload: PlayerDeathPayload{Wave: 4, TimeSurvived: 100}})
	fwd.Close()

	select {
	case env := <-received:
		assert.Equal(t, "run-42", env.Source)
		assert.Equal(t, "player_death", env.EventType)
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder ничего не опубликовал")
	}
	assert.Zero(t, fwd.Dropped())
	bus.Close()
}

type stubBus struct{ stats Stats }

func (s *stubBus) Publish(context.Context, *Envelope) error { return nil }
func (s *stubBus) Subscribe(context.Context, Filter, Handler) (Subscription, error) {
	return nil, nil
}
func (s *stubBus) Metrics() Stats { return s.stats }

func TestMetricsExporter_CollectsDeltas(t *testing.T) {
	bus := &stubBus{stats: Stats{Published: 10, Consumed: 8, Dropped: 1, InFlight: 2}}
	reg := prometheus.NewRegistry()
	me, err := NewMetricsExporter(bus, reg)
	require.NoError(t, err)

	prev := me.collect(Stats{})
	bus.stats.Published = 15
	me.collect(prev)

	assert.Equal(t, 15.0, testutil.ToFloat64(me.published))
	assert.Equal(t, 8.0, testutil.ToFloat64(me.consumed))
	assert.Equal(t, 2.0, testutil.ToFloat64(me.inflight))

	_, err = NewMetricsExporter(bus, reg)
	assert.Error(t, err, "повторная регистрация тех же метрик")
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "arena.enemy_death", Subject(string(EnemyDeath)))
}

func TestFilter_Matches(t *testing.T) {
	ev := &Envelope{EventType: "enemy_death", Source: "run-1"}
	assert.True(t, Filter{}.Matches(ev))
	assert.True(t, Filter{Types: []string{"wave_end", "enemy_death"}}.Matches(ev))
	assert.False(t, Filter{Types: []string{"wave_end"}}.Matches(ev))
	assert.False(t, Filter{Types: []string{"enemy_death"}, Sources: []string{"run-2"}}.Matches(ev))
}

func TestMemoryBus_DropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1).(*memoryBus)
	defer bus.Close()

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
	})
	require.NoError(t, err)

	// первый конверт застревает в обработчике, второй занимает очередь
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "a"}))
	<-started
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "b"}))
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "c", Priority: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = bus.Publish(ctx, &Envelope{EventType: "d", Priority: PriorityBlocking})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
	stats := bus.Metrics()
	assert.Equal(t, uint64(2), stats.Published)
	assert.Equal(t, uint64(2), stats.Dropped)
}

func TestMemoryBus_PublishAfterCloseReturnsError(t *testing.T) {
	bus := NewMemoryBus(1)
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "a"}))
	<-started
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "b"}))

	// публикация ждёт места в очереди, Close её прерывает
	waiting := make(chan error, 1)
	go func() {
		waiting <- bus.Publish(context.Background(), &Envelope{EventType: "c", Priority: 9})
	}()
	time.Sleep(20 * time.Millisecond)
	bus.Close()
	close(block)

	select {
	case err := <-waiting:
		assert.ErrorIs(t, err, ErrBusClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Close не прервал ожидающую публикацию")
	}

	assert.NotPanics(t, func() {
		err := bus.Publish(context.Background(), &Envelope{EventType: "d"})
		assert.ErrorIs(t, err, ErrBusClosed)
	})
}

func TestForwarder_SurvivesClosedBus(t *testing.T) {
	bus := NewMemoryBus(4)
	bus.Close()

	fwd := NewForwarder("run-1", bus, 4)
	fwd.Listen(Event{Type: WaveStart})
	assert.NotPanics(t, fwd.Close)
	assert.Equal(t, uint64(1), fwd.Dropped())
}
