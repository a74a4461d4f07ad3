package workflow

// ShortlistRatio 是入围所需的最低正确率（含边界）。
const ShortlistRatio = 0.7

// Verdict is the pass/fail outcome of an assessment.
type Verdict string

const (
	VerdictShortlisted Verdict = "shortlisted"
	VerdictRejected    Verdict = "rejected"
)

// Answers maps a question position to the submitted option text.
type Answers map[int]string

// AssessmentResult is the scored outcome of one submission.
type AssessmentResult struct {
	MarksCorrect int     `json:"marks_correct"`
	MarksWrong   int     `json:"marks_wrong"`
	Total        int     `json:"total"`
	Verdict      Verdict `json:"verdict"`
}

// QuestionSheet is a question without its answer key.
type QuestionSheet struct {
	Index   int       `json:"index"`
	Prompt  string    `json:"prompt"`
	Options [4]string `json:"options"`
}

// Score compares answers against the job's answer key in stored order.
// Comparison is exact; a missing answer counts as wrong.
func Score(job *Job, answers Answers) AssessmentResult {
	var questions []Question
	if job != nil {
		questions = job.Questions
	}

	result := AssessmentResult{Total: len(questions)}
	for i, q := range questions {
		ans, ok := answers[i]
		if ok && ans == q.CorrectAnswer {
			result.MarksCorrect++
		} else {
			result.MarksWrong++
		}
	}

	if float64(result.MarksCorrect) >= ShortlistRatio*float64(result.Total) {
		result.Verdict = VerdictShortlisted
	} else {
		result.Verdict = VerdictRejected
	}
	return result
}

// ValidateAnswers rejects indices that do not address a question.
func ValidateAnswers(job *Job, answers Answers) error {
	total := len(job.Questions)
	for idx := range answers {
		if idx < 0 || idx >= total {
			return invalidAnswers("answer index out of range")
		}
	}
	return nil
}

// Sheet returns the assessment without correct answers.
func Sheet(job *Job) []QuestionSheet {
	sheet := make([]QuestionSheet, 0, len(job.Questions))
	for i, q := range job.Questions {
		sheet = append(sheet, QuestionSheet{
			Index:   i,
			Prompt:  q.Prompt,
			Options: q.Options,
		})
	}
	return sheet
}
