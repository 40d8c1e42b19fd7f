package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/capacity-controller/pkg/config"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

func newTestServer(t *testing.T, cfg *config.WebSocketConfig) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(cfg)
	go hub.Run()

	router := gin.New()
	router.GET("/ws", ServeWebSocket(hub))
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, query string) *gorilla.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gorilla.Conn) OutgoingMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg OutgoingMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestMessageType(t *testing.T) {
	tests := []struct {
		eventType models.EventType
		expected  MessageType
	}{
		{models.EventTypeSignalObserved, MessageTypeSignal},
		{models.EventTypeTelemetryUnavailable, MessageTypeSignal},
		{models.EventTypeDecisionMade, MessageTypeDecision},
		{models.EventTypeScalingComplete, MessageTypeScalingEvent},
		{models.EventTypeScalingFailed, MessageTypeScalingFail},
		{models.EventTypeZeroBoundary, MessageTypeZeroBoundary},
		{models.EventType("internal"), ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			assert.Equal(t, tt.expected, messageType(tt.eventType))
		})
	}
}

func TestBridge_StreamsEventsForSubscribedService(t *testing.T) {
	hub, server := newTestServer(t, nil)

	events := make(chan *models.Event, 4)
	bridge := NewEventBridge(hub, events)
	bridge.Start()
	defer bridge.Stop()

	converter := dial(t, server, "?service_id=converter")
	everything := dial(t, server, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	events <- models.NewEvent(models.EventTypeDecisionMade, "ocr", "Scaling decision: NO_CHANGE")
	events <- models.NewEvent(models.EventTypeZeroBoundary, "converter", "Zero boundary crossed: SCALE_TO_ZERO").
		WithSeverity(models.SeverityWarning)

	msg := readMessage(t, converter)
	assert.Equal(t, MessageTypeZeroBoundary, msg.Type)
	assert.Equal(t, "converter", msg.ServiceID)
	assert.Equal(t, models.SeverityWarning, msg.Severity)

	first := readMessage(t, everything)
	second := readMessage(t, everything)
	assert.Equal(t, "ocr", first.ServiceID)
	assert.Equal(t, "converter", second.ServiceID)
}

func TestClient_Subscribe(t *testing.T) {
	hub, server := newTestServer(t, nil)
	conn := dial(t, server, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(IncomingMessage{Type: "subscribe", ServiceID: "converter"}))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeSubscription, msg.Type)
	assert.Equal(t, "converter", msg.ServiceID)

	hub.BroadcastToService("ocr", NewMessage(MessageTypeAlert, "ocr", nil).JSON())
	hub.BroadcastToService("converter", NewMessage(MessageTypeAlert, "converter", nil).JSON())

	msg = readMessage(t, conn)
	assert.Equal(t, "converter", msg.ServiceID)
}

func TestServeWebSocket_ConnectionLimit(t *testing.T) {
	hub, server := newTestServer(t, &config.WebSocketConfig{MaxConnections: 1})
	dial(t, server, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := gorilla.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestHub_DisconnectsOnClose(t *testing.T) {
	hub, server := newTestServer(t, nil)
	conn := dial(t, server, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
