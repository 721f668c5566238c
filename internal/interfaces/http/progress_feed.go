package http

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vlab-edu/vlab-backend/internal/progress"
	"go.uber.org/zap"
)

const feedWriteWait = 10 * time.Second

// ProgressFeed pushes a snapshot of the progress collection to every
// connected websocket client after each applied transition. Registered as a
// store observer next to the persistence gateway.
type ProgressFeed struct {
	store  *progress.Store
	logger *zap.Logger

	mu   sync.Mutex
	subs map[chan progress.Collection]struct{}
}

// NewProgressFeed create a feed and subscribe it to the store
func NewProgressFeed(store *progress.Store, logger *zap.Logger) *ProgressFeed {
	feed := &ProgressFeed{
		store:  store,
		logger: logger,
		subs:   make(map[chan progress.Collection]struct{}),
	}
	store.Subscribe(feed.broadcast)
	return feed
}

// Handle serve one websocket client until its connection drops. A slow
// client only loses intermediate snapshots, never the latest one.
func (f *ProgressFeed) Handle(conn *websocket.Conn) error {
	ch := make(chan progress.Collection, 1)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
	}()

	// drain client frames so control messages keep being processed; the read
	// loop also detects the disconnect, so an idle store cannot strand the
	// subscription
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := f.write(conn, f.store.Snapshot()); err != nil {
		return err
	}
	for {
		select {
		case snapshot := <-ch:
			if err := f.write(conn, snapshot); err != nil {
				return err
			}
		case <-gone:
			return nil
		}
	}
}

func (f *ProgressFeed) write(conn *websocket.Conn, snapshot progress.Collection) error {
	conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
	if err := conn.WriteJSON(snapshot); err != nil {
		f.logger.Debug("Dropping progress feed client", zap.Error(err))
		return err
	}
	return nil
}

func (f *ProgressFeed) broadcast(snapshot progress.Collection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		// keep only the latest snapshot for laggards
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}
