package websocket

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/pobabytouch/leaderboard/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(testLogger())
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	if got := hub.GetTotalConnections(); got != 0 {
		t.Fatalf("expected 0 connections, got %d", got)
	}

	// Broadcasting with no subscribers must not block.
	hub.BroadcastLeaderboardUpdate("Default", []domain.LeaderboardEntry{
		{Rank: 1, Initials: "ABC", Score: 1500, GameMode: "Default"},
	}, 1)

	hub.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
}

func TestHubSubscriberCounts(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(testLogger())
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	client := &Client{
		id:     "test-client",
		hub:    hub,
		send:   make(chan []byte, 1),
		logger: testLogger(),
	}

	hub.Register(client)
	hub.Subscribe(client, "Default")

	waitFor(t, func() bool { return hub.GetSubscriberCount("Default") == 1 })
	if got := hub.GetTotalConnections(); got != 1 {
		t.Fatalf("expected 1 connection, got %d", got)
	}

	hub.Unsubscribe(client, "Default")
	waitFor(t, func() bool { return hub.GetSubscriberCount("Default") == 0 })

	hub.Unregister(client)
	waitFor(t, func() bool { return hub.GetTotalConnections() == 0 })

	hub.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
}

// waitFor polls a condition processed by the hub loop.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
