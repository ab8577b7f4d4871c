package service

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tieubaoca/sikoma-be/utils"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// WebSocketService streams ingestion progress of one upload to a browser.
type WebSocketService struct {
	hub      *ProgressHub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketService accepts browser connections from the API's own host and
// from allowedOrigins, the same policy CORS applies.
func NewWebSocketService(hub *ProgressHub, allowedOrigins []string, logger *zap.Logger) *WebSocketService {
	return &WebSocketService{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return utils.OriginAllowed(r.Header.Get("Origin"), r.Host, allowedOrigins)
			},
		},
		logger: logger,
	}
}

// HandleProgress serves GET /ws/progress?uploadId=. The connection closes
// after the upload's done or failed event.
func (s *WebSocketService) HandleProgress(w http.ResponseWriter, r *http.Request) {
	uploadID := r.URL.Query().Get("uploadId")
	if uploadID == "" {
		http.Error(w, `{"error":"validation_error","message":"uploadId is required"}`, http.StatusBadRequest)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := s.hub.Subscribe(uploadID)
	defer unsubscribe()

	// Set connection properties
	conn.SetReadLimit(4 * 1024)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// closed once the client goes away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					s.logger.Debug("WebSocket read error", zap.Error(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				s.logger.Debug("Write error", zap.Error(err))
				return
			}
			if IsTerminalStage(event.Stage) {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, event.Stage),
					time.Now().Add(wsWriteWait))
				return
			}
		}
	}
}
