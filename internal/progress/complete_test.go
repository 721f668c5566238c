package progress

import (
	"testing"

	"github.com/vlab-edu/vlab-backend/internal/course"
)

func mixedCourse() *course.Course {
	return &course.Course{
		ID: "c1",
		Sections: []course.Section{
			{
				ID: "s1",
				Subsections: []course.Subsection{
					{ID: "ss1", DurationMinutes: 5},
					{ID: "ss2", QuestionCount: 2, Questions: []course.Question{
						{ID: "1", CorrectAnswer: 0},
						{ID: "2", CorrectAnswer: 0},
					}},
				},
			},
			{
				ID: "s2",
				Subsections: []course.Subsection{
					{ID: "ss3", DurationMinutes: 10},
				},
			},
		},
	}
}

func TestIsCourseComplete(t *testing.T) {
	cases := []struct {
		name string
		cp   *CourseProgress
		want bool
	}{
		{
			name: "empty progress",
			cp:   &CourseProgress{CourseID: "c1"},
			want: false,
		},
		{
			name: "lessons done but quiz missing",
			cp: &CourseProgress{
				CourseID:         "c1",
				CompletedLessons: []string{"ss1", "ss3"},
			},
			want: false,
		},
		{
			name: "quiz below full score does not unlock",
			cp: &CourseProgress{
				CourseID:         "c1",
				CompletedLessons: []string{"ss1", "ss3"},
				CompletedQuizzes: []QuizScore{{SubsectionID: "ss2", Score: 99.9}},
			},
			want: false,
		},
		{
			name: "quiz passed but lesson missing",
			cp: &CourseProgress{
				CourseID:         "c1",
				CompletedLessons: []string{"ss1"},
				CompletedQuizzes: []QuizScore{{SubsectionID: "ss2", Score: 100}},
			},
			want: false,
		},
		{
			name: "everything satisfied",
			cp: &CourseProgress{
				CourseID:         "c1",
				CompletedLessons: []string{"ss1", "ss3"},
				CompletedQuizzes: []QuizScore{{SubsectionID: "ss2", Score: 100}},
			},
			want: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsCourseComplete(mixedCourse(), tc.cp); got != tc.want {
				t.Errorf("IsCourseComplete() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsCourseCompleteNoSections(t *testing.T) {
	c := &course.Course{ID: "empty", Sections: []course.Section{}}
	cp := &CourseProgress{CourseID: "empty"}
	if !IsCourseComplete(c, cp) {
		t.Error("a course with no sections should be complete by definition")
	}
}
