package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/flare-risk-server/internal/domain"
	"github.com/flare-risk-server/internal/logging"
)

const (
	streamBuffer     = 16
	streamWriteWait  = 10 * time.Second
	streamPingPeriod = 30 * time.Second
)

// StreamMessage is one frame on the session stream: a snapshot of the
// rolling log first, then one frame per appended record.
type StreamMessage struct {
	Type    string                    `json:"type"`
	Records []domain.SymptomLogRecord `json:"records,omitempty"`
	Record  *domain.SymptomLogRecord  `json:"record,omitempty"`
}

// handleStream upgrades to a websocket and follows a session's rolling log.
// Subscribing to an unknown session creates it.
func (s *Server) handleStream(c *gin.Context) {
	sessionID := c.Param("id")
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Entry(c.Request.Context(), s.logger).WithError(err).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	snapshot, updates, cancel := s.predictor.Sessions().Log(sessionID).Subscribe(streamBuffer)
	defer cancel()

	entry := logging.Entry(c.Request.Context(), s.logger).WithField("session_id", sessionID)
	entry.Debug("Stream subscriber connected")
	defer entry.Debug("Stream subscriber disconnected")

	// The client never sends data; reading detects disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if snapshot == nil {
		snapshot = []domain.SymptomLogRecord{}
	}
	if err := s.writeFrame(conn, StreamMessage{Type: "snapshot", Records: snapshot}); err != nil {
		return
	}

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case record, ok := <-updates:
			if !ok {
				// The session was evicted or removed.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(streamWriteWait))
				return
			}
			if err := s.writeFrame(conn, StreamMessage{Type: "record", Record: &record}); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeFrame(conn *websocket.Conn, msg StreamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
