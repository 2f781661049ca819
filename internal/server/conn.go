package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/annel0/arena-core/internal/eventbus"
	"github.com/annel0/arena-core/internal/game"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 << 10
	sendQueue      = 64
)

// ClientMessage сообщение клиента.
//
//	{"type":"input","input":{"up":true}}
//	{"type":"command","command":"add_weapon","weapon":"SHOTGUN"}
type ClientMessage struct {
	Type    string      `json:"type"`
	Input   *game.Input `json:"input,omitempty"`
	Command string      `json:"command,omitempty"`
	Weapon  string      `json:"weapon,omitempty"`
	Index   int         `json:"index,omitempty"`
	Stat    string      `json:"stat,omitempty"`
	Amount  float64     `json:"amount,omitempty"`
}

// ServerMessage сообщение сервера; заполнено только поле своего типа
type ServerMessage struct {
	Type    string            `json:"type"`
	RunID   string            `json:"run_id,omitempty"`
	State   *game.Snapshot    `json:"state,omitempty"`
	Events  []eventbus.Event  `json:"events,omitempty"`
	Summary *game.RunSummary  `json:"summary,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type frame struct {
	kind int
	data []byte
}

// ClientConn обёртка над websocket-соединением зрителя забега.
// Запись идёт из отдельной горутины, тик симуляции никогда не ждёт клиента.
type ClientConn struct {
	ws       *websocket.Conn
	send     chan frame
	done     chan struct{}
	once     sync.Once
	compress bool
	remote   string
}

func NewClientConn(ws *websocket.Conn, compress bool) *ClientConn {
	return &ClientConn{
		ws:       ws,
		send:     make(chan frame, sendQueue),
		done:     make(chan struct{}),
		compress: compress,
		remote:   ws.RemoteAddr().String(),
	}
}

// Enqueue кладёт кадр в очередь (неблокирующе, при переполнении кадр теряется).
// Возвращает false, если кадр не принят.
func (c *ClientConn) Enqueue(kind int, data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame{kind: kind, data: data}:
		return true
	default:
		return false
	}
}

// sendJSON отправляет личный ответ клиенту без сжатия
func (c *ClientConn) sendJSON(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.Enqueue(websocket.TextMessage, data)
}

// Close закрывает соединение; повторные вызовы безопасны
func (c *ClientConn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// Done закрывается вместе с соединением
func (c *ClientConn) Done() <-chan struct{} { return c.done }

func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case f := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(f.kind, f.data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump читает ввод и команды и передаёт их сессии
func (c *ClientConn) readPump(s *Session) {
	defer func() {
		s.Leave(c)
		c.Close()
	}()
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("ws %s: %v", c.remote, err)
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.sendJSON(ServerMessage{Type: "error", Error: "malformed message"})
			continue
		}
		switch strings.ToLower(msg.Type) {
		case "input":
			if msg.Input != nil {
				s.SetInput(*msg.Input)
			}
		case "command":
			if !s.Enqueue(Command{Name: strings.ToLower(msg.Command), Weapon: msg.Weapon, Index: msg.Index, Stat: msg.Stat, Amount: msg.Amount, from: c}) {
				c.sendJSON(ServerMessage{Type: "error", Error: "command queue full"})
			}
		default:
			c.sendJSON(ServerMessage{Type: "error", Error: "unknown message type " + msg.Type})
		}
	}
}

func newUpgrader(allowed []string) websocket.Upgrader {
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		origins[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// без списка разрешены все источники (локальная разработка)
			return len(origins) == 0 || origin == "" || origins[origin]
		},
	}
}
