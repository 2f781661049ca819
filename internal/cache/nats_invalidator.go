package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/arena-core/internal/logging"
	"github.com/nats-io/nats.go"
)

// InvalidationHandler обрабатывает уведомления об инвалидации кеша.
type InvalidationHandler func(key string)

// InvalidationMessage представляет сообщение об инвалидации кеша.
type InvalidationMessage struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	NodeID    string    `json:"node_id"`
}

// NATSInvalidator рассылает инвалидации между узлами через NATS Pub/Sub.
// Собственные сообщения узла игнорируются.
type NATSInvalidator struct {
	conn    *nats.Conn
	subject string
	nodeID  string

	mu  sync.Mutex
	sub *nats.Subscription

	published atomic.Int64
	received  atomic.Int64
	errors    atomic.Int64
}

// NewNATSInvalidator подключается к NATS. subject по умолчанию "arena.cache.invalidation".
func NewNATSInvalidator(url, subject, nodeID string) (*NATSInvalidator, error) {
	if subject == "" {
		subject = "arena.cache.invalidation"
	}
	log := logging.GetServerLogger()
	conn, err := nats.Connect(url,
		nats.Name("arena-cache-"+nodeID),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("NATS invalidator initialized: %s (subject: %s)", url, subject)
	return &NATSInvalidator{conn: conn, subject: subject, nodeID: nodeID}, nil
}

// Publish отправляет уведомление об инвалидации ключа.
func (n *NATSInvalidator) Publish(key string) error {
	data, err := json.Marshal(InvalidationMessage{Key: key, Timestamp: time.Now().UTC(), NodeID: n.nodeID})
	if err != nil {
		n.errors.Add(1)
		return fmt.Errorf("failed to marshal invalidation message: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		n.errors.Add(1)
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	n.published.Add(1)
	return nil
}

// Subscribe подписывается на инвалидации других узлов
func (n *NATSInvalidator) Subscribe(handler InvalidationHandler) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sub != nil {
		return fmt.Errorf("already subscribed to invalidations")
	}

	sub, err := n.conn.Subscribe(n.subject, func(msg *nats.Msg) {
		n.received.Add(1)
		var im InvalidationMessage
		if err := json.Unmarshal(msg.Data, &im); err != nil {
			n.errors.Add(1)
			return
		}
		if im.NodeID == n.nodeID {
			return
		}
		handler(im.Key)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to invalidations: %w", err)
	}
	n.sub = sub
	return nil
}

// Flush дожидается отправки буфера на сервер
func (n *NATSInvalidator) Flush() error { return n.conn.Flush() }

// Close закрывает соединение с NATS.
func (n *NATSInvalidator) Close() error {
	n.mu.Lock()
	if n.sub != nil {
		_ = n.sub.Unsubscribe()
		n.sub = nil
	}
	n.mu.Unlock()
	n.conn.Close()
	return nil
}

// GetMetrics возвращает метрики invalidator.
func (n *NATSInvalidator) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"published_count": n.published.Load(),
		"received_count":  n.received.Load(),
		"errors_count":    n.errors.Load(),
		"connected":       n.conn.IsConnected(),
	}
}
