package event

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go-crash/internal/lib/logger/sl"
	"golang.org/x/exp/slog"
)

// WSPublisher forwards messages to the ws hub over a single client
// connection. Writes are serialized; gorilla connections do not allow
// concurrent writers.
type WSPublisher struct {
	log  *slog.Logger
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWSPublisher(log *slog.Logger, conn *websocket.Conn) *WSPublisher {
	return &WSPublisher{
		log:  log,
		conn: conn,
	}
}

func (p *WSPublisher) TriggerEvent(m Message) error {
	const op = "event.WSPublisher.TriggerEvent"

	msg, err := json.Marshal(m)
	if err != nil {
		p.log.Error("failed to marshal message", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err = p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		p.log.Error("failed to trigger event", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
