package progress

import "github.com/vlab-edu/vlab-backend/internal/course"

// PassThreshold a quiz subsection only counts toward course completion once a
// full score is recorded. Lower attempts are kept as the latest score for
// display but never unlock completion.
const PassThreshold = 100

// IsCourseComplete reports whether every subsection of the course is
// satisfied by the progress record: content subsections must be in the
// completed lesson set, quiz subsections must have a passing score recorded.
// A course with no sections is complete by definition.
func IsCourseComplete(c *course.Course, cp *CourseProgress) bool {
	for si := range c.Sections {
		for ssi := range c.Sections[si].Subsections {
			ss := &c.Sections[si].Subsections[ssi]
			switch ss.Kind() {
			case course.KindContent:
				if !cp.HasLesson(ss.ID) {
					return false
				}
			case course.KindQuiz:
				qs, ok := cp.QuizScoreFor(ss.ID)
				if !ok || qs.Score < PassThreshold {
					return false
				}
			}
		}
	}
	return true
}
