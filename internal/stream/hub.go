package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/pkg/logger"
)

const (
	PingPeriod     = 15 * time.Second // Keep-alive interval
	WriteTimeout   = 5 * time.Second
	DefaultBacklog = 32
)

// Event is the envelope pushed to subscribers.
type Event struct {
	Type     string                       `json:"type"`
	Decision model.RiskEscalationDecision `json:"decision"`
}

const EventEscalation = "risk_escalation"

// Subscription receives encoded events until the hub drops or closes it.
type Subscription struct {
	C    <-chan []byte
	send chan []byte
}

// Hub fans escalation decisions out to connected admins. Publishing never
// blocks: a subscriber whose backlog is full is dropped.
type Hub struct {
	mu       sync.Mutex
	subs     map[*Subscription]struct{}
	backlog  int
	closed   bool
	upgrader websocket.Upgrader
}

func NewHub(backlog int) *Hub {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Hub{
		subs:    make(map[*Subscription]struct{}),
		backlog: backlog,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Hub) Subscribe() *Subscription {
	ch := make(chan []byte, h.backlog)
	sub := &Subscription{C: ch, send: ch}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *Subscription) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.send)
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish implements the escalation publisher used by the engine.
func (h *Hub) Publish(d model.RiskEscalationDecision) {
	payload, err := json.Marshal(Event{Type: EventEscalation, Decision: d})
	if err != nil {
		logger.Error("encode escalation event failed", "error", err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.send <- payload:
		default:
			// 慢消费者直接断开
			logger.Warn("dropping slow escalation subscriber", "withdrawal_id", d.WithdrawalID)
			h.removeLocked(sub)
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subs {
		h.removeLocked(sub)
	}
}

// ServeWS upgrades the request and streams events until either side goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err.Error())
		return
	}
	sub := h.Subscribe()
	go h.readLoop(conn, sub)
	h.writeLoop(conn, sub)
}

// readLoop only exists to notice the peer closing and to keep pong deadlines.
func (h *Hub) readLoop(conn *websocket.Conn, sub *Subscription) {
	defer h.Unsubscribe(sub)

	// Zombie Check: no pong within PingPeriod + buffer means the peer is gone.
	readTimeout := PingPeriod + 10*time.Second
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, sub *Subscription) {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.Unsubscribe(sub)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.Unsubscribe(sub)
				return
			}
		}
	}
}
