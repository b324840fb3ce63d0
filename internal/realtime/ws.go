package realtime

import (
	"encoding/json"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// WebsocketHandler serves a live event stream. Clients may send
// {"type":"PING"} frames and receive {"type":"PONG"}; everything else
// inbound is ignored. All writes happen on the outer loop because the
// connection permits only one concurrent writer.
func WebsocketHandler(hub *Hub, logger *zap.Logger) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		client := hub.Register()
		defer hub.Unregister(client)

		done := make(chan struct{})
		pings := make(chan struct{}, 1)
		go func() {
			defer close(done)
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var inbound Message
				if err := json.Unmarshal(data, &inbound); err != nil {
					continue
				}
				if inbound.Type == "PING" {
					select {
					case pings <- struct{}{}:
					default:
					}
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case <-pings:
				if err := conn.WriteJSON(Message{Type: "PONG"}); err != nil {
					return
				}
			case msg, ok := <-client.Send:
				if !ok {
					return
				}
				if err := conn.WriteJSON(msg); err != nil {
					logger.Debug("websocket write failed", zap.Error(err))
					return
				}
			}
		}
	}
}
