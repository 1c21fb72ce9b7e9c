package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/goliatone/go-formstate/pkg/devtool"
)

const (
	streamBuffer = 16
	writeWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
}

// handleDevtoolStream pushes a snapshot on connect and after every form
// transition. Slow clients drop intermediate snapshots; the listener is
// removed when the client disconnects.
func (s *Server) handleDevtoolStream(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("devtool stream upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	updates := make(chan devtool.Snapshot, streamBuffer)
	stop := s.panel.Listen(func(snap devtool.Snapshot) {
		select {
		case updates <- snap:
		default:
		}
	})
	defer stop()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.send(ws, s.panel.Snapshot()); err != nil {
		return
	}
	ctx := c.Request.Context()
	for {
		select {
		case snap := <-updates:
			if err := s.send(ws, snap); err != nil {
				return
			}
		case <-closed:
			s.logger.Debug("devtool stream closed")
			return
		case <-ctx.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		}
	}
}

func (s *Server) send(ws *websocket.Conn, snap devtool.Snapshot) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteJSON(snap); err != nil {
		s.logger.Warn("devtool stream write failed", "error", err)
		return err
	}
	return nil
}
