package eventbus

import (
	"context"

	"github.com/annel0/arena-core/internal/logging"
)

// StartLoggingListener подписывается на все события внешней шины и пишет их в лог.
// Функция неблокирующая.
func StartLoggingListener(bus EventBus) (Subscription, error) {
	log := logging.GetEventLogger()
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		log.Debug("[EventBus] %s %s src=%s frame=%d prio=%d size=%dB", ev.ID, ev.EventType, ev.Source, ev.Frame, ev.Priority, len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	log.Info("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}
