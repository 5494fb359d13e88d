package model

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeText           QuestionType = "TEXT"
	QuestionTypeEssay          QuestionType = "ESSAY"
	QuestionTypeCoding         QuestionType = "CODING"
)

// IsChoice reports whether answers to this type are graded automatically.
func (t QuestionType) IsChoice() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeMultipleChoice
}

// IsFreeForm reports whether answers to this type need a human grader.
func (t QuestionType) IsFreeForm() bool {
	return t == QuestionTypeText || t == QuestionTypeEssay || t == QuestionTypeCoding
}

// Test is an assessment definition. The session engine only reads it.
type Test struct {
	ID              int64  `json:"test_id"`
	Name            string `json:"test_name"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	PassingScore    *int   `json:"passing_score,omitempty"`
	IsActive        bool   `json:"is_active"`
}

// PassingThreshold returns the test's passing score or fallback when unset.
func (t *Test) PassingThreshold(fallback int) int {
	if t.PassingScore == nil {
		return fallback
	}
	return *t.PassingScore
}

// Option is one answer choice. IsCorrect never leaves the server for candidates.
type Option struct {
	ID        int64  `json:"option_id"`
	Text      string `json:"option_text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question is a prompt with its options (choice types only).
type Question struct {
	ID      int64        `json:"question_id"`
	Text    string       `json:"question_text"`
	Type    QuestionType `json:"question_type"`
	Options []Option     `json:"options"`
}

// TestQuestion is a question placed in a test with its order and weight.
type TestQuestion struct {
	Question
	Order  int `json:"order"`
	Weight int `json:"weight"`
}

// QuestionSet is a test together with its ordered, weighted questions.
type QuestionSet struct {
	Test      Test           `json:"test"`
	Questions []TestQuestion `json:"questions"`
}

// OptionForCandidate is an Option without its correctness flag.
type OptionForCandidate struct {
	ID   int64  `json:"option_id"`
	Text string `json:"option_text"`
}

// QuestionForCandidate is what a candidate sees of a question.
type QuestionForCandidate struct {
	ID      int64                `json:"question_id"`
	Text    string               `json:"question_text"`
	Type    QuestionType         `json:"question_type"`
	Order   int                  `json:"order"`
	Weight  int                  `json:"weight"`
	Options []OptionForCandidate `json:"options"`
}

// TestPaper is the candidate-facing question snapshot of a test.
type TestPaper struct {
	TestID    int64                  `json:"test_id"`
	Name      string                 `json:"test_name"`
	Duration  int                    `json:"duration_minutes"`
	Questions []QuestionForCandidate `json:"questions"`
}
