package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*WSHub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := newWSHub()
	go hub.run(ctx)
	srv := httptest.NewServer(newWebHandler(hub))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func TestWebSocketStatusThenBroadcast(t *testing.T) {
	hub, srv := startHub(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var first WSMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, MsgTypeStatus, first.Type)

	// registration races the first publish, so keep publishing until one lands
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				hub.publish(MsgTypeBest, BestData{Iteration: 3, Score: 0.42, Tier: 2})
			}
		}
	}()

	var msg struct {
		Type string   `json:"type"`
		Data BestData `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MsgTypeBest, msg.Type)
	assert.Equal(t, 3, msg.Data.Iteration)
	assert.InDelta(t, 0.42, msg.Data.Score, 1e-12)
}

func TestStatusEndpointTracksLastStatus(t *testing.T) {
	hub, srv := startHub(t)
	hub.publish(MsgTypeStatus, StatusData{Status: "running", RunID: "r1", Mode: "balanced"})

	require.Eventually(t, func() bool {
		s, _ := hub.status.Load().(StatusData)
		return s.Status == "running"
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var msg struct {
		Type string     `json:"type"`
		Data StatusData `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.Equal(t, MsgTypeStatus, msg.Type)
	assert.Equal(t, "running", msg.Data.Status)
	assert.Equal(t, "r1", msg.Data.RunID)
}

func TestDashboardPage(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "/ws")

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/status", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandlerDoesNotBlockAfterHubStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := newWSHub()
	go hub.run(ctx)
	srv := httptest.NewServer(newWebHandler(hub))
	defer srv.Close()

	cancel()
	select {
	case <-hub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var status WSMessage
	require.NoError(t, conn.ReadJSON(&status))
	assert.Equal(t, MsgTypeStatus, status.Type)

	// the handler gives up on registration and closes the connection
	var next WSMessage
	err = conn.ReadJSON(&next)
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "connection should be closed, not left hanging")
	}
}

func TestBroadcastWithoutHubIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		Broadcast(MsgTypeProgress, ProgressData{Completed: 1})
		SendStatus(StatusData{Status: "running"})
		SendError("boom")
	})
}
