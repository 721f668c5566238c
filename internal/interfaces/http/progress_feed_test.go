package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vlab-edu/vlab-backend/internal/progress"
	"go.uber.org/zap"
)

func subscriberCount(f *ProgressFeed) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func waitForSubscribers(t *testing.T, f *ProgressFeed, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for subscriberCount(f) != want {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber count = %d, want %d", subscriberCount(f), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestProgressFeedDeliversAndReleasesClients(t *testing.T) {
	_, store := handlerFixture(t)
	feed := NewProgressFeed(store, zap.NewNop())

	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		feed.Handle(conn)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	var snap progress.Collection
	if err := client.ReadJSON(&snap); err != nil {
		t.Fatalf("initial snapshot: %v", err)
	}
	if len(snap) != 0 {
		t.Errorf("initial snapshot should be empty, got %v", snap)
	}
	waitForSubscribers(t, feed, 1)

	store.CompleteLesson("c1", "ss1")
	if err := client.ReadJSON(&snap); err != nil {
		t.Fatalf("snapshot after transition: %v", err)
	}
	if cp, ok := snap["c1"]; !ok || !cp.HasLesson("ss1") {
		t.Errorf("pushed snapshot = %v, want the completed lesson", snap)
	}

	// the subscription must be released on disconnect even though the store
	// never mutates again
	client.Close()
	waitForSubscribers(t, feed, 0)
}
