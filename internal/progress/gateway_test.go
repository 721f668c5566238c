package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeKV in-memory stand-in for the blob store
type fakeKV struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
	sets   int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Set(key string, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

func (f *fakeKV) SetEX(key string, value string, expiration time.Duration) error {
	return f.Set(key, value)
}

func (f *fakeKV) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", errors.New("no such key")
	}
	return v, nil
}

func (f *fakeKV) Exists(key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok, nil
}

func (f *fakeKV) Ping() error { return nil }

func (f *fakeKV) failWrites(err error) {
	f.mu.Lock()
	f.setErr = err
	f.mu.Unlock()
}

func (f *fakeKV) stored(t *testing.T) Collection {
	t.Helper()
	f.mu.Lock()
	raw, ok := f.data[StorageKey]
	f.mu.Unlock()
	if !ok {
		t.Fatal("no snapshot stored")
	}
	var snapshot Collection
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		t.Fatalf("stored blob is not valid JSON: %v", err)
	}
	return snapshot
}

func TestGatewayRoundTrip(t *testing.T) {
	kv := newFakeKV()
	logger := zap.NewNop()

	store := NewStore(testCatalog(t), logger)
	gateway := NewGateway(kv, logger)
	store.Subscribe(gateway.Enqueue)

	store.OpenCourse("c1")
	store.CompleteLesson("c1", "ss1")
	if _, _, err := store.RecordQuizScore("c1", "ss2", 100); err != nil {
		t.Fatalf("RecordQuizScore() error = %v", err)
	}
	want := store.Snapshot()
	gateway.Close()

	// hydrate a fresh store from what was written
	restored := NewStore(testCatalog(t), logger)
	if err := NewGateway(kv, logger).Hydrate(context.Background(), restored); err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}
	got := restored.Snapshot()
	gotJSON, _ := json.Marshal(got)
	wantJSON, _ := json.Marshal(want)
	if string(gotJSON) != string(wantJSON) {
		t.Errorf("restored snapshot differs\n got: %s\nwant: %s", gotJSON, wantJSON)
	}
	if !got["c1"].IsCompleted {
		t.Error("restored record should be complete")
	}
}

func TestGatewayHydrateAbsentBlob(t *testing.T) {
	logger := zap.NewNop()
	store := NewStore(testCatalog(t), logger)
	gateway := NewGateway(newFakeKV(), logger)
	defer gateway.Close()

	if err := gateway.Hydrate(context.Background(), store); err != nil {
		t.Fatalf("Hydrate() error = %v", err)
	}
	if len(store.Snapshot()) != 0 {
		t.Error("store should start empty when no snapshot is persisted")
	}
}

func TestGatewayHydrateCorruptBlob(t *testing.T) {
	logger := zap.NewNop()
	kv := newFakeKV()
	kv.data[StorageKey] = "{not json"

	store := NewStore(testCatalog(t), logger)
	gateway := NewGateway(kv, logger)
	defer gateway.Close()

	if err := gateway.Hydrate(context.Background(), store); err != nil {
		t.Fatalf("a corrupt snapshot should be discarded, not fatal: %v", err)
	}
	if len(store.Snapshot()) != 0 {
		t.Error("store should start empty after discarding a corrupt snapshot")
	}
}

func TestGatewayLastWriteWins(t *testing.T) {
	kv := newFakeKV()
	logger := zap.NewNop()
	gateway := NewGateway(kv, logger)

	for i := 0; i < 10; i++ {
		snap := Collection{"c1": {CourseID: "c1", CompletedLessons: []string{}, CompletedQuizzes: []QuizScore{
			{SubsectionID: "ss2", Score: float64(i * 10)},
		}}}
		gateway.Enqueue(snap)
	}
	gateway.Close()

	got := kv.stored(t)
	qs, ok := got["c1"].QuizScoreFor("ss2")
	if !ok || qs.Score != 90 {
		t.Errorf("stored score = %v, want the last enqueued snapshot (90)", qs.Score)
	}
}

func TestGatewayPersistsFinalStateUnderConcurrentTransitions(t *testing.T) {
	kv := newFakeKV()
	logger := zap.NewNop()

	store := NewStore(testCatalog(t), logger)
	gateway := NewGateway(kv, logger)
	store.Subscribe(gateway.Enqueue)

	// one writer races the lessons, another the quiz score; whatever order
	// they apply in, the blob on disk must end up equal to the final state
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 8; i++ {
			store.CompleteLesson("c1", fmt.Sprintf("l%d", i))
		}
	}()
	go func() {
		defer wg.Done()
		for _, score := range []float64{25, 50, 75, 100} {
			if _, _, err := store.RecordQuizScore("c1", "ss2", score); err != nil {
				t.Errorf("RecordQuizScore() error = %v", err)
			}
		}
	}()
	wg.Wait()

	want := store.Snapshot()
	gateway.Close()

	got := kv.stored(t)
	gotJSON, _ := json.Marshal(got)
	wantJSON, _ := json.Marshal(want)
	if string(gotJSON) != string(wantJSON) {
		t.Errorf("durable snapshot is stale\n got: %s\nwant: %s", gotJSON, wantJSON)
	}
	if qs, ok := got["c1"].QuizScoreFor("ss2"); !ok || qs.Score != 100 {
		t.Errorf("stored quiz score = %+v, %v, want the last recorded attempt", qs, ok)
	}
}

func TestGatewayRetryFailed(t *testing.T) {
	kv := newFakeKV()
	logger := zap.NewNop()
	gateway := NewGateway(kv, logger)

	kv.failWrites(errors.New("storage down"))
	gateway.Enqueue(Collection{"c1": {CourseID: "c1", CompletedLessons: []string{"ss1"}, CompletedQuizzes: []QuizScore{}}})

	// wait for the failed write to land in the retry slot
	deadline := time.Now().Add(time.Second)
	for {
		gateway.mu.Lock()
		failed := gateway.failed
		gateway.mu.Unlock()
		if failed != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("failed snapshot was never captured")
		}
		time.Sleep(time.Millisecond)
	}

	kv.failWrites(nil)
	gateway.RetryFailed()
	gateway.Close()

	got := kv.stored(t)
	if !got["c1"].HasLesson("ss1") {
		t.Error("retried snapshot should be persisted once storage recovers")
	}

	// with nothing pending, a retry sweep is a no-op
	gateway2 := NewGateway(kv, logger)
	before := kv.sets
	gateway2.RetryFailed()
	gateway2.Close()
	if kv.sets != before {
		t.Error("retry with no failed snapshot should not touch storage")
	}
}
