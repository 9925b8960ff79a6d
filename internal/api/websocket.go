package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"kraken-watch/internal/events"
)

const (
	streamBuffer = 16
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type streamMessage struct {
	Topic events.Event `json:"topic"`
	Kind  string       `json:"kind"`
	At    time.Time    `json:"at"`
	Text  string       `json:"text"`
}

// websocket pushes journal entries (market checks and synthesized jobs) to the
// client until either side closes.
func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.deps.Log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	deliveries, cancel := s.deps.Events.Subscribe(streamBuffer, events.EventMarketCheck, events.EventJobsCreated)
	defer cancel()

	// The client never sends; reading only surfaces its close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		var (
			d  events.Delivery
			ok bool
		)
		select {
		case <-gone:
			return
		case d, ok = <-deliveries:
		}
		if !ok {
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		m := d.Message
		msg := streamMessage{Topic: d.Topic, Kind: m.Kind(), At: m.Time().UTC(), Text: m.Render()}
		if err := conn.WriteJSON(msg); err != nil {
			s.deps.Log.Warn().Err(err).Msg("ws write failed")
			return
		}
	}
}
