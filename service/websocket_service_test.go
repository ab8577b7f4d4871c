package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/sikoma-be/types"
	"go.uber.org/zap"
)

func newProgressServer(t *testing.T, hub *ProgressHub, allowedOrigins []string) *httptest.Server {
	t.Helper()
	ws := NewWebSocketService(hub, allowedOrigins, zap.NewNop())
	server := httptest.NewServer(http.HandlerFunc(ws.HandleProgress))
	t.Cleanup(server.Close)
	return server
}

func progressURL(server *httptest.Server, uploadID string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/progress?uploadId=" + uploadID
}

func TestHandleProgress_RejectsForeignOrigin(t *testing.T) {
	server := newProgressServer(t, NewProgressHub(), []string{"http://localhost:3000"})

	header := http.Header{"Origin": []string{"https://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(progressURL(server, "u1"), header)
	if conn != nil {
		conn.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandleProgress_StreamsUntilDone(t *testing.T) {
	hub := NewProgressHub()
	server := newProgressServer(t, hub, []string{"http://localhost:3000"})

	header := http.Header{"Origin": []string{"http://localhost:3000"}}
	conn, _, err := websocket.DefaultDialer.Dial(progressURL(server, "u1"), header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.SubscriberCount("u1") == 1 }, time.Second, 5*time.Millisecond)
	hub.Publish(types.ProgressEvent{UploadID: "u1", Stage: types.PROGRESS_STAGE_EMBED, Done: 1, Total: 2})
	hub.Publish(types.ProgressEvent{UploadID: "u1", Stage: types.PROGRESS_STAGE_DONE, DocID: "d1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event types.ProgressEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, types.PROGRESS_STAGE_EMBED, event.Stage)
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, types.PROGRESS_STAGE_DONE, event.Stage)
	assert.Equal(t, "d1", event.DocID)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestHandleProgress_RequiresUploadID(t *testing.T) {
	server := newProgressServer(t, NewProgressHub(), nil)
	resp, err := http.Get(server.URL + "/ws/progress")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
