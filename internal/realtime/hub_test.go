// internal/realtime/hub_test.go
package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPublishReachesOnlyTargetUser(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(r.URL.Query().Get("user"), w, r)
	}))
	defer srv.Close()

	dial := func(user string) *ws.Conn {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + user
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		return conn
	}

	alice := dial("alice")
	defer alice.Close()
	bob := dial("bob")
	defer bob.Close()
	waitFor(t, func() bool { return hub.ClientCount("alice") == 1 && hub.ClientCount("bob") == 1 })

	hub.Publish("alice", "notification", map[string]string{"message": "ECO-1 approved"})

	var event struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, alice.ReadJSON(&event))
	assert.Equal(t, "notification", event.Type)
	assert.Equal(t, "ECO-1 approved", event.Data["message"])

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err)

	alice.Close()
	waitFor(t, func() bool { return hub.ClientCount("alice") == 0 })
}

func TestPublishWithoutClientsIsNoop(t *testing.T) {
	hub := NewHub()
	hub.Publish("nobody", "notification", nil)
	assert.Zero(t, hub.ClientCount("nobody"))
}

func TestPublishDropsClientThatStopsDraining(t *testing.T) {
	hub := NewHub()
	stalled := newClient("carol", nil)
	hub.register(stalled)

	start := time.Now()
	for i := 0; i < sendBuffer; i++ {
		hub.Publish("carol", "notification", i)
	}
	assert.Equal(t, 1, hub.ClientCount("carol"))
	assert.Len(t, stalled.send, sendBuffer)

	hub.Publish("carol", "notification", "one too many")
	assert.Less(t, time.Since(start), writeWait)
	assert.Zero(t, hub.ClientCount("carol"))

	select {
	case <-stalled.done:
	default:
		t.Fatal("dropped client was not signalled")
	}

	// Dropping twice is harmless.
	hub.unregister(stalled)
}
