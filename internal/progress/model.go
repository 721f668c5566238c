package progress

import (
	"errors"
	"time"
)

// ErrScoreOutOfRange quiz scores are percentages
var ErrScoreOutOfRange = errors.New("quiz score must be within [0,100]")

// ErrNoQuestions scoring an empty question set is undefined
var ErrNoQuestions = errors.New("cannot score an empty question set")

// QuizScore latest recorded score for a quiz subsection. Replaced as a whole
// when a new attempt is recorded, never mutated in place.
type QuizScore struct {
	SubsectionID string    `json:"quizId"`
	Score        float64   `json:"score"`
	CompletedAt  time.Time `json:"completedAt"`
}

// CourseProgress per course completion state.
//
// CompletedLessons has set semantics: membership only, no duplicates.
// IsCompleted is derived and recomputed after every mutation, callers never
// set it directly.
type CourseProgress struct {
	CourseID         string      `json:"courseId"`
	CompletedLessons []string    `json:"completedLessons"`
	CompletedQuizzes []QuizScore `json:"completedQuizzes"`
	LastAccessedAt   time.Time   `json:"lastAccessedAt"`
	IsCompleted      bool        `json:"isCompleted"`
}

func newCourseProgress(courseID string, now time.Time) *CourseProgress {
	return &CourseProgress{
		CourseID:         courseID,
		CompletedLessons: []string{},
		CompletedQuizzes: []QuizScore{},
		LastAccessedAt:   now,
	}
}

// HasLesson reports membership in the completed lesson set
func (cp *CourseProgress) HasLesson(subsectionID string) bool {
	for _, id := range cp.CompletedLessons {
		if id == subsectionID {
			return true
		}
	}
	return false
}

// QuizScoreFor latest recorded score for a quiz subsection
func (cp *CourseProgress) QuizScoreFor(subsectionID string) (QuizScore, bool) {
	for _, qs := range cp.CompletedQuizzes {
		if qs.SubsectionID == subsectionID {
			return qs, true
		}
	}
	return QuizScore{}, false
}

func (cp *CourseProgress) clone() *CourseProgress {
	out := &CourseProgress{
		CourseID:         cp.CourseID,
		CompletedLessons: make([]string, len(cp.CompletedLessons)),
		CompletedQuizzes: make([]QuizScore, len(cp.CompletedQuizzes)),
		LastAccessedAt:   cp.LastAccessedAt,
		IsCompleted:      cp.IsCompleted,
	}
	copy(out.CompletedLessons, cp.CompletedLessons)
	copy(out.CompletedQuizzes, cp.CompletedQuizzes)
	return out
}

// Collection every course progress record, keyed by course ID
type Collection map[string]*CourseProgress

// Clone deep copy, safe to hand to observers and encoders
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for id, cp := range c {
		out[id] = cp.clone()
	}
	return out
}
