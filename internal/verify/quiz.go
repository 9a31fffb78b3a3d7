package verify

// Question is a multiple-choice knowledge-check question. CorrectAnswer is
// the index into Options and is never sent to clients unredacted.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

// Grade is the result of grading a free-text submission.
type Grade struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// FallbackQuestions is the fixed quiz used whenever question generation
// fails. Signup must never block on the AI service.
func FallbackQuestions() []Question {
	return []Question{
		{
			Question:      "Sample Question: What is React?",
			Options:       []string{"A Library", "A Framework", "A Language", "A Database"},
			CorrectAnswer: 0,
		},
	}
}

// Score computes the percentage of correct answers by integer index
// equality. Missing answers count as wrong.
func Score(questions []Question, answers []int) float64 {
	if len(questions) == 0 {
		return 0
	}
	correct := 0
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectAnswer {
			correct++
		}
	}
	return float64(correct) / float64(len(questions)) * 100
}
