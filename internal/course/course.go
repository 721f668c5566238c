package course

import (
	"errors"
	"fmt"
)

// SubsectionKind discriminates the two subsection flavors
type SubsectionKind int

const (
	// KindContent timed lesson content
	KindContent SubsectionKind = iota
	// KindQuiz graded question set
	KindQuiz
)

// ErrMalformedSubsection a subsection must be either content or quiz, never both
var ErrMalformedSubsection = errors.New("subsection must carry exactly one of duration or question count")

// QuestionType supported question flavors
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
)

// Question single choice question, CorrectAnswer is an index into Options
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Text          string       `json:"text"`
	Options       []string     `json:"options"`
	CorrectAnswer int          `json:"-"`
}

// Subsection smallest addressable unit of a course. Exactly one of
// DurationMinutes or QuestionCount is set, which decides its kind.
type Subsection struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration,omitempty"`
	QuestionCount   int        `json:"question_count,omitempty"`
	Questions       []Question `json:"-"`
}

// Kind derive the subsection kind from which optional field is present
func (s *Subsection) Kind() SubsectionKind {
	if s.QuestionCount > 0 {
		return KindQuiz
	}
	return KindContent
}

func (s *Subsection) validate() error {
	if (s.DurationMinutes > 0) == (s.QuestionCount > 0) {
		return fmt.Errorf("%w: subsection %q", ErrMalformedSubsection, s.ID)
	}
	if s.QuestionCount > 0 && len(s.Questions) != s.QuestionCount {
		return fmt.Errorf("subsection %q declares %d questions but carries %d", s.ID, s.QuestionCount, len(s.Questions))
	}
	return nil
}

// Section grouping within a course, may mix content and quiz subsections
type Section struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Subsections []Subsection `json:"subsections"`
}

// HasContent reports whether the section carries at least one content subsection
func (s *Section) HasContent() bool {
	for i := range s.Subsections {
		if s.Subsections[i].Kind() == KindContent {
			return true
		}
	}
	return false
}

// HasQuiz reports whether the section carries at least one quiz subsection
func (s *Section) HasQuiz() bool {
	for i := range s.Subsections {
		if s.Subsections[i].Kind() == KindQuiz {
			return true
		}
	}
	return false
}

// Course top level learning unit, immutable once loaded
type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	StudentCount int       `json:"student_count"`
	Sections     []Section `json:"sections"`
}

// Subsection find a subsection by ID
func (c *Course) Subsection(id string) (*Subsection, bool) {
	for i := range c.Sections {
		for j := range c.Sections[i].Subsections {
			if c.Sections[i].Subsections[j].ID == id {
				return &c.Sections[i].Subsections[j], true
			}
		}
	}
	return nil, false
}
