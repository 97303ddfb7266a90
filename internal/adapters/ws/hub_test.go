package ws_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphalink/alphalink/internal/adapters/ws"
	"github.com/alphalink/alphalink/internal/domain"
)

func TestPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	hub := ws.NewHub()

	done := make(chan struct{})
	go func() {
		hub.Publish("sessions/none", domain.Event{Type: "message.created"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with no subscribers")
	}
}

func TestSubscriberReceivesChannelEvents(t *testing.T) {
	hub := ws.NewHub()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "sessions/s1")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Wait for the subscription to register before publishing.
	require.Eventually(t, func() bool {
		return hub.SubscriberCount("sessions/s1") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Publish("sessions/s1", domain.Event{Type: "message.created", Payload: map[string]string{"text": "hi"}})
	hub.Publish("sessions/other", domain.Event{Type: "message.created", Payload: map[string]string{"text": "not for us"}})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "message.created", event.Type)
	assert.Equal(t, "hi", event.Payload["text"])

	// The cross-channel event must not arrive.
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
