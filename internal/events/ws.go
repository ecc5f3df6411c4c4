package events

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// ServeWS upgrades the request and streams hub messages to the client until
// either side goes away. Origins are checked by the CORS allow list.
func ServeWS(hub *Hub, allowed func(origin string) bool, log *slog.Logger) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed == nil || allowed(origin)
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("ws_upgrade_error", "err", err)
			return
		}

		client := &Client{Send: make(chan []byte, 64)}
		hub.Register(client)

		go func() {
			ticker := time.NewTicker(pingPeriod)
			defer func() {
				ticker.Stop()
				_ = conn.Close()
			}()
			for {
				select {
				case msg, ok := <-client.Send:
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					if !ok {
						_ = conn.WriteMessage(websocket.CloseMessage, nil)
						return
					}
					if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				case <-ticker.C:
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						return
					}
				}
			}
		}()

		go func() {
			defer func() {
				hub.Unregister(client)
				_ = conn.Close()
			}()
			conn.SetReadLimit(512)
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(pongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
