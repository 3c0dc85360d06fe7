// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocket_InitMessage(t *testing.T) {
	s, _ := newTestServer(t, "exit 0")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ws", s.handleWebSocket)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	conn := dialWS(t, ts)
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("reading init message: %v", err)
	}
	if msg.Type != "init" {
		t.Errorf("first message type = %q, want init", msg.Type)
	}
}

func TestWebSocket_JobUpdatesBroadcast(t *testing.T) {
	s, api := newTestServer(t, `echo "25%"; exit 0`)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ws", s.handleWebSocket)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	conn := dialWS(t, ts)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// Wait until the hub has registered the client before starting the
	// job, or the broadcast can race past us.
	deadline := time.Now().Add(2 * time.Second)
	for s.wsHub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	resp := postJSON(t, api.URL+"/api/mirror", MirrorRequest{URLs: []string{"https://example.com"}})
	job := decode[Job](t, resp)

	sawUpdate := false
	sawLog := false
	for !sawUpdate || !sawLog {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("reading broadcast (update=%v log=%v): %v", sawUpdate, sawLog, err)
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		switch msg.Type {
		case "job_update":
			b, _ := json.Marshal(msg.Data)
			var j Job
			json.Unmarshal(b, &j)
			if j.ID == job.ID {
				sawUpdate = true
			}
		case "log":
			sawLog = true
		}
	}
}

// A peer that disconnects before the init message goes out must not
// crash the server: teardown marks the client closed before the hub
// closes its send channel, and sendInitialState honors that mark.
func TestWebSocket_InitAfterEarlyDisconnect(t *testing.T) {
	s, _ := newTestServer(t, "exit 0")

	client := &WSClient{send: make(chan []byte, 1), hub: s.wsHub}
	s.wsHub.register <- client

	// Replay the read pump's teardown for a client that vanished
	// immediately after connecting.
	client.mu.Lock()
	client.closed = true
	client.mu.Unlock()
	s.wsHub.unregister <- client

	// Once the hub no longer lists the client, its channel is closed.
	deadline := time.Now().Add(2 * time.Second)
	for s.wsHub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.wsHub.ClientCount() != 0 {
		t.Fatal("hub did not unregister the client")
	}

	s.sendInitialState(client)
}

// A slow client evicted on a full send buffer must carry the closed
// mark so no later send hits its closed channel.
func TestWSHub_EvictedSlowClientMarkedClosed(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()

	// Unbuffered send channel: the first broadcast finds it full.
	client := &WSClient{send: make(chan []byte), hub: hub}
	hub.register <- client

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	hub.Broadcast("log", WSLogData{JobID: "x"})

	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Fatal("slow client was not evicted")
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if !client.closed {
		t.Error("evicted client not marked closed")
	}
}

func TestWSHub_ClientCount(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()
	if hub.ClientCount() != 0 {
		t.Error("fresh hub should have no clients")
	}
}
