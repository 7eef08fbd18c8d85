package live

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The console is served with open CORS; origins are not restricted here either.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StateType is the envelope type of full state pushes.
const StateType = "trip_state"

// Handler upgrades the request and serves one client. current supplies the
// state sent right after connecting.
func Handler(hub *Hub, console Console, current func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("op=ws_upgrade err=%v", err)
			return
		}

		c := &Client{
			ID:      uuid.NewString(),
			conn:    conn,
			hub:     hub,
			console: console,
			send:    make(chan []byte, sendBuffer),
		}

		if b, err := json.Marshal(Envelope{Type: StateType, Data: current()}); err == nil {
			c.send <- b
		}

		select {
		case hub.register <- c:
		case <-hub.done:
			conn.Close()
			return
		}

		go c.WritePump()
		go c.ReadPump()
	}
}
