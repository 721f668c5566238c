package progress

import (
	"sync"
	"time"

	"github.com/vlab-edu/vlab-backend/internal/course"
	"go.uber.org/zap"
)

// Observer receives a deep copy of the collection after every applied
// mutation. Observers run under the store lock, in apply order, so the
// snapshot of one transition can never reach an observer after the snapshot
// of a later transition. Observers must not block.
type Observer func(Collection)

// Store owns the in-memory progress collection. Every mutation goes through
// one of the transition methods; they are serialized by the store lock so a
// transition fully applies before the next one observes state. Malformed
// input is rejected before any state is touched, there is no partial apply.
type Store struct {
	mu        sync.Mutex
	catalog   *course.Catalog
	logger    *zap.Logger
	records   Collection
	observers []Observer

	// navigation cursors, transient, never persisted
	currentCourseID  string
	currentSectionID string
}

// NewStore create an empty progress store bound to a course catalog
func NewStore(catalog *course.Catalog, logger *zap.Logger) *Store {
	return &Store{
		catalog: catalog,
		logger:  logger,
		records: make(Collection),
	}
}

// Subscribe register an observer, must be called before transitions start
func (s *Store) Subscribe(ob Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, ob)
	s.mu.Unlock()
}

// OpenCourse lazily create a progress record for the course and move the
// navigation cursor to it. An existing record is left untouched.
func (s *Store) OpenCourse(courseID string) (*CourseProgress, bool) {
	s.mu.Lock()
	s.currentCourseID = courseID
	cp, ok := s.records[courseID]
	if ok {
		out := cp.clone()
		s.mu.Unlock()
		return out, false
	}

	cp = newCourseProgress(courseID, time.Now().UTC())
	cp.IsCompleted = s.evaluate(cp)
	s.records[courseID] = cp
	out := cp.clone()
	s.notify(s.records.Clone())
	s.mu.Unlock()

	s.logger.Debug("Opened course", zap.String("course.id", courseID))
	return out, true
}

// CompleteLesson add the subsection to the completed lesson set. Completing
// an already completed lesson is a no-op beyond touching the access time.
// The second return reports whether this transition flipped the course to
// complete, so callers get the completion edge atomically.
func (s *Store) CompleteLesson(courseID, subsectionID string) (*CourseProgress, bool) {
	s.mu.Lock()
	cp := s.ensure(courseID)
	wasCompleted := cp.IsCompleted
	if !cp.HasLesson(subsectionID) {
		cp.CompletedLessons = append(cp.CompletedLessons, subsectionID)
	}
	cp.LastAccessedAt = time.Now().UTC()
	cp.IsCompleted = s.evaluate(cp)
	completed := cp.IsCompleted && !wasCompleted
	out := cp.clone()
	s.notify(s.records.Clone())
	s.mu.Unlock()

	s.logger.Debug("Completed lesson",
		zap.String("course.id", courseID),
		zap.String("subsection.id", subsectionID),
		zap.Bool("course.completed", out.IsCompleted),
	)
	return out, completed
}

// RecordQuizScore replace the recorded score for the quiz subsection. The
// latest attempt always wins, even when it is worse than the previous one,
// so a re-take below the pass threshold can revoke course completion. The
// bool return reports whether this transition flipped the course to
// complete.
func (s *Store) RecordQuizScore(courseID, subsectionID string, score float64) (*CourseProgress, bool, error) {
	if score < 0 || score > 100 {
		return nil, false, ErrScoreOutOfRange
	}

	s.mu.Lock()
	cp := s.ensure(courseID)
	wasCompleted := cp.IsCompleted
	now := time.Now().UTC()
	entry := QuizScore{SubsectionID: subsectionID, Score: score, CompletedAt: now}
	replaced := false
	for i := range cp.CompletedQuizzes {
		if cp.CompletedQuizzes[i].SubsectionID == subsectionID {
			cp.CompletedQuizzes[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		cp.CompletedQuizzes = append(cp.CompletedQuizzes, entry)
	}
	cp.LastAccessedAt = now
	cp.IsCompleted = s.evaluate(cp)
	completed := cp.IsCompleted && !wasCompleted
	out := cp.clone()
	s.notify(s.records.Clone())
	s.mu.Unlock()

	s.logger.Debug("Recorded quiz score",
		zap.String("course.id", courseID),
		zap.String("subsection.id", subsectionID),
		zap.Float64("quiz.score", score),
		zap.Bool("course.completed", out.IsCompleted),
	)
	return out, completed, nil
}

// ClearProgress drop the progress record entirely. Clearing an absent record
// is a no-op.
func (s *Store) ClearProgress(courseID string) bool {
	s.mu.Lock()
	_, ok := s.records[courseID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.records, courseID)
	s.notify(s.records.Clone())
	s.mu.Unlock()

	s.logger.Debug("Cleared course progress", zap.String("course.id", courseID))
	return true
}

// LoadSnapshot replace the whole collection with a persisted snapshot. Meant
// to run once at startup before any transition is accepted. Completion flags
// are recomputed for every record so snapshots written under an older
// completion rule cannot leak stale flags.
func (s *Store) LoadSnapshot(snapshot Collection) {
	s.mu.Lock()
	s.records = make(Collection, len(snapshot))
	for id, cp := range snapshot {
		clone := cp.clone()
		if clone.CompletedLessons == nil {
			clone.CompletedLessons = []string{}
		}
		if clone.CompletedQuizzes == nil {
			clone.CompletedQuizzes = []QuizScore{}
		}
		clone.IsCompleted = s.evaluate(clone)
		s.records[id] = clone
	}
	s.mu.Unlock()
	s.logger.Info("Hydrated progress store", zap.Int("progress.records", len(snapshot)))
}

// CourseProgress copy of the record for the course, ok is false when absent
func (s *Store) CourseProgress(courseID string) (*CourseProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.records[courseID]
	if !ok {
		return nil, false
	}
	return cp.clone(), true
}

// Snapshot deep copy of the whole collection
func (s *Store) Snapshot() Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Clone()
}

// SetCurrentSection move the section navigation cursor
func (s *Store) SetCurrentSection(sectionID string) {
	s.mu.Lock()
	s.currentSectionID = sectionID
	s.mu.Unlock()
}

// Cursor current navigation position (transient, not persisted)
func (s *Store) Cursor() (courseID, sectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentCourseID, s.currentSectionID
}

// ensure must be called with the lock held
func (s *Store) ensure(courseID string) *CourseProgress {
	cp, ok := s.records[courseID]
	if !ok {
		cp = newCourseProgress(courseID, time.Now().UTC())
		s.records[courseID] = cp
	}
	return cp
}

// evaluate must be called with the lock held. Records referencing a course
// the catalog does not know are never considered complete.
func (s *Store) evaluate(cp *CourseProgress) bool {
	c, ok := s.catalog.Course(cp.CourseID)
	if !ok {
		return false
	}
	return IsCourseComplete(c, cp)
}

// notify must be called with the lock held so observers see snapshots in
// apply order
func (s *Store) notify(snap Collection) {
	for _, ob := range s.observers {
		ob(snap)
	}
}
