package api

import (
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"governance-core/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsEnvelope tags each streamed payload with the topic it came from so
// clients subscribed to several topics can demultiplex.
type wsEnvelope struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

// websocket streams governance events to the client. The topics query
// param is a comma-separated list; it defaults to trade executions.
func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	raw := c.DefaultQuery("topics", string(events.EventTradeExecuted))

	merged := make(chan wsEnvelope, 100)
	var wg sync.WaitGroup
	var unsubs []func()
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		stream, unsub := s.Bus.Subscribe(events.Event(name), 100)
		unsubs = append(unsubs, unsub)
		wg.Add(1)
		go func(topic string, in <-chan any) {
			defer wg.Done()
			for msg := range in {
				// Drop on backpressure, same policy as the bus.
				select {
				case merged <- wsEnvelope{Topic: topic, Data: msg}:
				default:
				}
			}
		}(name, stream)
	}
	if len(unsubs) == 0 {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"no topics requested"}`))
		return
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
		go func() {
			wg.Wait()
			close(merged)
		}()
	}()

	for env := range merged {
		if err := conn.WriteJSON(env); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}
