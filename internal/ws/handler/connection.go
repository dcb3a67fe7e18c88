package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go-crash/internal/event"
	"go-crash/internal/lib/logger/sl"
	"golang.org/x/exp/slog"
)

type Subscription struct {
	Conn    *websocket.Conn
	Channel string
}

// Hub fans game events out to subscribed connections. The engine's publisher
// is just another connection: it writes events, and every subscriber of the
// event's channel receives them.
type Hub struct {
	Channels    map[string]map[*websocket.Conn]bool
	Broadcast   chan event.Message
	Subscribe   chan Subscription
	unsubscribe chan *websocket.Conn
	mutex       sync.RWMutex
	log         *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		Channels:    make(map[string]map[*websocket.Conn]bool),
		Broadcast:   make(chan event.Message),
		Subscribe:   make(chan Subscription),
		unsubscribe: make(chan *websocket.Conn),
		log:         log,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (hub *Hub) run() {
	for {
		select {
		case sub := <-hub.Subscribe:
			hub.mutex.Lock()
			if hub.Channels[sub.Channel] == nil {
				hub.Channels[sub.Channel] = make(map[*websocket.Conn]bool)
			}
			hub.Channels[sub.Channel][sub.Conn] = true
			hub.mutex.Unlock()
		case conn := <-hub.unsubscribe:
			hub.drop(conn)
		case message := <-hub.Broadcast:
			hub.deliver(message)
		}
	}
}

func (hub *Hub) deliver(message event.Message) {
	data, err := json.Marshal(message)
	if err != nil {
		hub.log.Error("failed to marshal message", sl.Err(err))

		return
	}

	hub.mutex.RLock()
	receivers := make([]*websocket.Conn, 0, len(hub.Channels[message.Channel]))
	for conn := range hub.Channels[message.Channel] {
		receivers = append(receivers, conn)
	}
	hub.mutex.RUnlock()

	for _, conn := range receivers {
		if err = conn.WriteMessage(websocket.TextMessage, data); err != nil {
			hub.log.Error("failed to write message", sl.Err(err))

			hub.drop(conn)
		}
	}
}

func (hub *Hub) drop(conn *websocket.Conn) {
	hub.mutex.Lock()
	for _, receivers := range hub.Channels {
		delete(receivers, conn)
	}
	hub.mutex.Unlock()
}

func (hub *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Error("failed to upgrade connection", sl.Err(err))

		return
	}
	defer func() {
		hub.unsubscribe <- ws

		if err = ws.Close(); err != nil {
			hub.log.Error("failed to close connection", sl.Err(err))
		}
	}()

	for {
		_, p, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				hub.log.Error("failed to read message", sl.Err(err))
			}

			return
		}

		var message event.Message
		if err = json.Unmarshal(p, &message); err != nil {
			hub.log.Error("failed to unmarshal message", sl.Err(err))

			continue
		}
		if message.Channel == "" {
			continue
		}

		hub.mutex.RLock()
		subscribed := hub.Channels[message.Channel][ws]
		hub.mutex.RUnlock()

		if !subscribed {
			hub.Subscribe <- Subscription{Conn: ws, Channel: message.Channel}
		}

		// A bare channel name is a subscription; anything carrying an
		// event is relayed to the channel's subscribers.
		if message.Event != "" {
			hub.Broadcast <- message
		}
	}
}

func (hub *Hub) RunServer() {
	go hub.run()
}
