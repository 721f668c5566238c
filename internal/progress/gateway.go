package progress

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/vlab-edu/vlab-backend/internal/infrastructure/driver"
	"go.uber.org/zap"
)

// StorageKey single fixed blob key holding the whole serialized collection.
// Writes overwrite the prior value, last write wins.
const StorageKey = "vlab:progress"

// Gateway mirrors the progress collection to the durable blob store. It is
// the only component that touches the progress key.
//
// Saves are fire-and-forget for the caller: Enqueue hands the snapshot to a
// single writer goroutine, so no two saves interleave and the snapshot of
// transition N can never land after the snapshot of transition N+1. The queue
// holds one pending snapshot, a newer one displaces an unwritten older one.
type Gateway struct {
	kv     driver.KeyValueDB
	logger *zap.Logger

	queue chan Collection
	done  chan struct{}

	mu     sync.Mutex
	failed Collection // last snapshot that could not be written
}

// NewGateway create a gateway and start its writer
func NewGateway(kv driver.KeyValueDB, logger *zap.Logger) *Gateway {
	g := &Gateway{
		kv:     kv,
		logger: logger,
		queue:  make(chan Collection, 1),
		done:   make(chan struct{}),
	}
	go g.writer()
	return g
}

// Hydrate read the persisted snapshot into the store. An absent or corrupt
// blob is not fatal: the store simply starts empty. Must complete before the
// transport starts accepting transitions.
func (g *Gateway) Hydrate(ctx context.Context, store *Store) error {
	ok, err := g.kv.Exists(StorageKey)
	if err != nil {
		return err
	}
	if !ok {
		g.logger.Info("No persisted progress snapshot, starting empty")
		return nil
	}

	raw, err := g.kv.Get(StorageKey)
	if err != nil {
		return err
	}
	var snapshot Collection
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		g.logger.Warn("Discarding corrupt progress snapshot", zap.Error(err))
		return nil
	}
	store.LoadSnapshot(snapshot)
	return nil
}

// Enqueue schedule a snapshot save, never blocks the calling transition.
// Registered as a store observer.
func (g *Gateway) Enqueue(snapshot Collection) {
	for {
		select {
		case g.queue <- snapshot:
			return
		default:
		}
		// displace the stale pending snapshot
		select {
		case <-g.queue:
		default:
		}
	}
}

// RetryFailed re-attempt the last failed save, if any. Wired to a periodic
// job so a transient storage outage does not strand local progress until the
// next user action.
func (g *Gateway) RetryFailed() {
	g.mu.Lock()
	snapshot := g.failed
	g.failed = nil
	g.mu.Unlock()
	if snapshot == nil {
		return
	}
	g.logger.Info("Retrying failed progress snapshot save")
	g.Enqueue(snapshot)
}

// Close stop the writer after flushing any pending snapshot
func (g *Gateway) Close() {
	close(g.queue)
	<-g.done
}

func (g *Gateway) writer() {
	defer close(g.done)
	for snapshot := range g.queue {
		g.save(snapshot)
	}
}

func (g *Gateway) save(snapshot Collection) {
	blob, err := json.Marshal(snapshot)
	if err != nil {
		// collection is plain data, this cannot happen with well-formed records
		g.logger.Error("Failed to serialize progress snapshot", zap.Error(err))
		return
	}
	if err := g.kv.Set(StorageKey, string(blob)); err != nil {
		g.logger.Error("Failed to persist progress snapshot", zap.Error(err))
		g.mu.Lock()
		g.failed = snapshot
		g.mu.Unlock()
		return
	}
	g.mu.Lock()
	g.failed = nil
	g.mu.Unlock()
	g.logger.Debug("Persisted progress snapshot",
		zap.Int("progress.records", len(snapshot)),
		zap.Int("blob.bytes", len(blob)),
	)
}
