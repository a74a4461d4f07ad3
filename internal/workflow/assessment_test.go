package workflow

import "testing"

func questionsN(n int) []Question {
	qs := make([]Question, n)
	for i := range qs {
		qs[i] = Question{
			Prompt:        "q",
			Options:       [4]string{"a", "b", "c", "d"},
			CorrectAnswer: "a",
		}
	}
	return qs
}

func answersWithCorrect(total, correct int) Answers {
	ans := Answers{}
	for i := 0; i < total; i++ {
		if i < correct {
			ans[i] = "a"
		} else {
			ans[i] = "b"
		}
	}
	return ans
}

func TestScore_Boundary(t *testing.T) {
	job := &Job{Questions: questionsN(10)}

	cases := []struct {
		correct int
		want    Verdict
	}{
		{10, VerdictShortlisted},
		{7, VerdictShortlisted},
		{6, VerdictRejected},
		{0, VerdictRejected},
	}
	for _, tc := range cases {
		got := Score(job, answersWithCorrect(10, tc.correct))
		if got.Verdict != tc.want {
			t.Fatalf("correct=%d: expected %s got %s", tc.correct, tc.want, got.Verdict)
		}
		if got.MarksCorrect != tc.correct || got.MarksWrong != 10-tc.correct || got.Total != 10 {
			t.Fatalf("correct=%d: unexpected counts %+v", tc.correct, got)
		}
	}
}

func TestScore_CeilBoundaryForOddTotals(t *testing.T) {
	// 0.7*3 = 2.1, so two correct answers are not enough.
	job := &Job{Questions: questionsN(3)}
	if got := Score(job, answersWithCorrect(3, 2)); got.Verdict != VerdictRejected {
		t.Fatalf("expected rejected got %s", got.Verdict)
	}
	if got := Score(job, answersWithCorrect(3, 3)); got.Verdict != VerdictShortlisted {
		t.Fatalf("expected shortlisted got %s", got.Verdict)
	}
}

func TestScore_NoQuestionsIsShortlisted(t *testing.T) {
	got := Score(&Job{}, nil)
	want := AssessmentResult{MarksCorrect: 0, MarksWrong: 0, Total: 0, Verdict: VerdictShortlisted}
	if got != want {
		t.Fatalf("expected %+v got %+v", want, got)
	}
}

func TestScore_MissingAnswersCountAsWrong(t *testing.T) {
	job := &Job{Questions: questionsN(4)}
	got := Score(job, Answers{0: "a"})
	if got.MarksCorrect != 1 || got.MarksWrong != 3 {
		t.Fatalf("unexpected counts %+v", got)
	}
}

func TestScore_ExactStringMatch(t *testing.T) {
	job := &Job{Questions: []Question{
		{Prompt: "p", Options: [4]string{"Go", "go", " Go", "GO"}, CorrectAnswer: "Go"},
	}}
	for _, ans := range []string{"go", " Go", "Go ", "GO"} {
		if got := Score(job, Answers{0: ans}); got.MarksCorrect != 0 {
			t.Fatalf("answer %q should not match", ans)
		}
	}
	if got := Score(job, Answers{0: "Go"}); got.MarksCorrect != 1 {
		t.Fatalf("exact answer should match")
	}
}

func TestScore_Deterministic(t *testing.T) {
	job := &Job{Questions: questionsN(5)}
	ans := answersWithCorrect(5, 4)
	first := Score(job, ans)
	second := Score(job, ans)
	if first != second {
		t.Fatalf("score not deterministic: %+v vs %+v", first, second)
	}
	if len(ans) != 5 || len(job.Questions) != 5 {
		t.Fatalf("inputs mutated")
	}
}

func TestValidateAnswers(t *testing.T) {
	job := &Job{Questions: questionsN(2)}
	if err := ValidateAnswers(job, Answers{0: "a", 1: "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, idx := range []int{-1, 2, 10} {
		if err := ValidateAnswers(job, Answers{idx: "a"}); err == nil {
			t.Fatalf("index %d should be rejected", idx)
		}
	}
}

func TestSheet_HidesAnswerKey(t *testing.T) {
	job := &Job{Questions: questionsN(2)}
	sheet := Sheet(job)
	if len(sheet) != 2 || sheet[1].Index != 1 || sheet[0].Options[0] != "a" {
		t.Fatalf("unexpected sheet %+v", sheet)
	}
}
