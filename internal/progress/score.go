package progress

import "github.com/vlab-edu/vlab-backend/internal/course"

// ScoreQuiz grade submitted answers against a question set and return the
// percentage of correct answers. Answers map question IDs to the chosen
// option index; unanswered questions count as incorrect, there is no partial
// credit. An empty question set is rejected rather than producing NaN.
func ScoreQuiz(questions []course.Question, answers map[string]int) (float64, error) {
	if len(questions) == 0 {
		return 0, ErrNoQuestions
	}
	correct := 0
	for i := range questions {
		if chosen, ok := answers[questions[i].ID]; ok && chosen == questions[i].CorrectAnswer {
			correct++
		}
	}
	return float64(correct) / float64(len(questions)) * 100, nil
}
