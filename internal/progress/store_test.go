package progress

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/vlab-edu/vlab-backend/internal/course"
	"go.uber.org/zap"
)

func testCatalog(t *testing.T) *course.Catalog {
	t.Helper()
	catalog, err := course.NewCatalog([]course.Course{
		{
			ID: "c1",
			Sections: []course.Section{
				{
					ID: "s1",
					Subsections: []course.Subsection{
						{ID: "ss1", DurationMinutes: 5},
						{ID: "ss2", QuestionCount: 2, Questions: []course.Question{
							{ID: "1", CorrectAnswer: 0},
							{ID: "2", CorrectAnswer: 1},
						}},
					},
				},
			},
		},
		{ID: "c2", Sections: []course.Section{}},
	})
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return catalog
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(testCatalog(t), zap.NewNop())
}

func TestOpenCourseCreatesOnce(t *testing.T) {
	store := newTestStore(t)

	cp, created := store.OpenCourse("c1")
	if !created {
		t.Fatal("first OpenCourse() should create a record")
	}
	if cp.CourseID != "c1" {
		t.Errorf("CourseID = %q, want %q", cp.CourseID, "c1")
	}
	if len(cp.CompletedLessons) != 0 || len(cp.CompletedQuizzes) != 0 {
		t.Error("fresh record should start empty")
	}
	if cp.IsCompleted {
		t.Error("fresh record for a course with subsections should not be complete")
	}

	store.CompleteLesson("c1", "ss1")

	cp, created = store.OpenCourse("c1")
	if created {
		t.Error("second OpenCourse() must not recreate the record")
	}
	if !cp.HasLesson("ss1") {
		t.Error("reopening must not reset accumulated progress")
	}
}

func TestOpenCourseVacuousCompletion(t *testing.T) {
	store := newTestStore(t)
	cp, created := store.OpenCourse("c2")
	if !created {
		t.Fatal("expected a new record")
	}
	if !cp.IsCompleted {
		t.Error("a course with no sections should be complete on open")
	}
}

func TestCompleteLessonIdempotent(t *testing.T) {
	store := newTestStore(t)
	store.OpenCourse("c1")

	store.CompleteLesson("c1", "ss1")
	cp, _ := store.CompleteLesson("c1", "ss1")

	count := 0
	for _, id := range cp.CompletedLessons {
		if id == "ss1" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("completed lesson recorded %d times, want 1", count)
	}
}

func TestCompleteLessonImplicitlyCreatesRecord(t *testing.T) {
	store := newTestStore(t)
	cp, _ := store.CompleteLesson("c1", "ss1")
	if !cp.HasLesson("ss1") {
		t.Error("lesson should be recorded without a prior OpenCourse")
	}
}

func TestRecordQuizScoreReplaces(t *testing.T) {
	store := newTestStore(t)
	store.OpenCourse("c1")

	if _, _, err := store.RecordQuizScore("c1", "ss2", 50); err != nil {
		t.Fatalf("RecordQuizScore() error = %v", err)
	}
	cp, _, err := store.RecordQuizScore("c1", "ss2", 100)
	if err != nil {
		t.Fatalf("RecordQuizScore() error = %v", err)
	}

	if len(cp.CompletedQuizzes) != 1 {
		t.Fatalf("got %d quiz entries, want 1", len(cp.CompletedQuizzes))
	}
	qs, ok := cp.QuizScoreFor("ss2")
	if !ok || qs.Score != 100 {
		t.Errorf("QuizScoreFor() = %+v, %v, want score 100", qs, ok)
	}
}

func TestRecordQuizScoreRange(t *testing.T) {
	store := newTestStore(t)
	for _, score := range []float64{-0.1, 100.1, 250} {
		if _, _, err := store.RecordQuizScore("c1", "ss2", score); !errors.Is(err, ErrScoreOutOfRange) {
			t.Errorf("RecordQuizScore(%v) error = %v, want ErrScoreOutOfRange", score, err)
		}
	}
	if _, ok := store.CourseProgress("c1"); ok {
		t.Error("a rejected score must not create a record")
	}
}

func TestCourseCompletionLifecycle(t *testing.T) {
	store := newTestStore(t)
	store.OpenCourse("c1")

	cp, completed := store.CompleteLesson("c1", "ss1")
	if cp.IsCompleted || completed {
		t.Error("course should not be complete with the quiz outstanding")
	}

	cp, completed, err := store.RecordQuizScore("c1", "ss2", 100)
	if err != nil {
		t.Fatalf("RecordQuizScore() error = %v", err)
	}
	if !cp.IsCompleted {
		t.Error("course should be complete after every subsection is satisfied")
	}
	if !completed {
		t.Error("the transition that satisfies the last subsection should report the completion edge")
	}

	// re-recording the same passing score is not a new completion edge
	_, completed, err = store.RecordQuizScore("c1", "ss2", 100)
	if err != nil {
		t.Fatalf("RecordQuizScore() error = %v", err)
	}
	if completed {
		t.Error("an already complete course must not report another completion edge")
	}

	// a worse re-take is kept and revokes completion
	cp, completed, err = store.RecordQuizScore("c1", "ss2", 50)
	if err != nil {
		t.Fatalf("RecordQuizScore() error = %v", err)
	}
	if cp.IsCompleted || completed {
		t.Error("a failing re-take should revoke course completion")
	}
	if qs, _ := cp.QuizScoreFor("ss2"); qs.Score != 50 {
		t.Errorf("latest attempt should win, got score %v", qs.Score)
	}

	// passing again is a fresh edge
	_, completed, err = store.RecordQuizScore("c1", "ss2", 100)
	if err != nil {
		t.Fatalf("RecordQuizScore() error = %v", err)
	}
	if !completed {
		t.Error("re-passing after a revocation should report the completion edge again")
	}
}

func TestClearProgress(t *testing.T) {
	store := newTestStore(t)

	if store.ClearProgress("c1") {
		t.Error("clearing an absent record should report false")
	}

	store.OpenCourse("c1")
	store.CompleteLesson("c1", "ss1")

	if !store.ClearProgress("c1") {
		t.Error("clearing an existing record should report true")
	}
	if _, ok := store.CourseProgress("c1"); ok {
		t.Error("record should be gone after clear")
	}

	// reopening after a clear starts from scratch
	cp, created := store.OpenCourse("c1")
	if !created {
		t.Error("reopening a cleared course should create a fresh record")
	}
	if len(cp.CompletedLessons) != 0 {
		t.Error("fresh record should carry no lessons")
	}
}

func TestLoadSnapshotRecomputesCompletion(t *testing.T) {
	store := newTestStore(t)
	store.LoadSnapshot(Collection{
		"c1": {
			CourseID:         "c1",
			CompletedLessons: []string{"ss1"},
			CompletedQuizzes: []QuizScore{{SubsectionID: "ss2", Score: 100}},
			IsCompleted:      false, // stale flag in the persisted blob
		},
		"c2": {
			CourseID:    "c2",
			IsCompleted: false,
		},
		"ghost": {
			CourseID:    "ghost",
			IsCompleted: true, // course no longer in the catalog
		},
	})

	cp, ok := store.CourseProgress("c1")
	if !ok || !cp.IsCompleted {
		t.Error("completion flag should be recomputed from the catalog on load")
	}
	cp, ok = store.CourseProgress("c2")
	if !ok || !cp.IsCompleted {
		t.Error("vacuous completion should be recomputed on load")
	}
	cp, ok = store.CourseProgress("ghost")
	if !ok || cp.IsCompleted {
		t.Error("a record for an unknown course must never be complete")
	}
	if cp.CompletedLessons == nil || cp.CompletedQuizzes == nil {
		t.Error("nil slices should be normalized on load")
	}
}

func TestObserversReceiveSnapshots(t *testing.T) {
	store := newTestStore(t)
	var got []Collection
	store.Subscribe(func(snap Collection) {
		got = append(got, snap)
	})

	store.OpenCourse("c1")
	store.CompleteLesson("c1", "ss1")
	store.OpenCourse("c1") // no mutation, no notification
	store.ClearProgress("c1")

	if len(got) != 3 {
		t.Fatalf("observer called %d times, want 3", len(got))
	}
	if !got[1]["c1"].HasLesson("ss1") {
		t.Error("second snapshot should carry the completed lesson")
	}
	if _, ok := got[2]["c1"]; ok {
		t.Error("final snapshot should not contain the cleared course")
	}

	// snapshots are deep copies, mutating one must not leak into the store
	got[1]["c1"].CompletedLessons[0] = "tampered"
	store.OpenCourse("c1")
	if cp, ok := store.CourseProgress("c1"); ok && cp.HasLesson("tampered") {
		t.Error("observer snapshot mutation leaked into the store")
	}
}

func TestObserverOrderUnderConcurrentTransitions(t *testing.T) {
	store := newTestStore(t)

	var mu sync.Mutex
	var seen []int
	store.Subscribe(func(snap Collection) {
		mu.Lock()
		seen = append(seen, len(snap["c1"].CompletedLessons))
		mu.Unlock()
	})

	const transitions = 16
	var wg sync.WaitGroup
	for i := 0; i < transitions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.CompleteLesson("c1", fmt.Sprintf("l%d", i))
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != transitions {
		t.Fatalf("observer called %d times, want %d", len(seen), transitions)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Fatalf("snapshot %d delivered out of apply order: %v", i, seen)
		}
	}
	if seen[len(seen)-1] != transitions {
		t.Errorf("last delivered snapshot has %d lessons, want the final state with %d", seen[len(seen)-1], transitions)
	}
}

func TestCursorIsTransient(t *testing.T) {
	store := newTestStore(t)
	store.OpenCourse("c1")
	store.SetCurrentSection("s1")

	courseID, sectionID := store.Cursor()
	if courseID != "c1" || sectionID != "s1" {
		t.Errorf("Cursor() = %q, %q, want c1, s1", courseID, sectionID)
	}

	// the cursor never appears in persisted snapshots
	snap := store.Snapshot()
	if _, ok := snap["c1"]; !ok {
		t.Fatal("snapshot should contain the opened course")
	}
}
