package main

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestScoreQuestion(t *testing.T) {
	sc := &Question{ID: 10, QuestionType: QuestionSingleChoice, Answers: []Answer{
		{ID: 100, IsCorrect: true}, {ID: 101},
	}}
	mc := &Question{ID: 20, QuestionType: QuestionMultipleChoice, Answers: []Answer{
		{ID: 201, IsCorrect: true}, {ID: 200, IsCorrect: true}, {ID: 202},
	}}
	mt := &Question{ID: 30, QuestionType: QuestionMatching, MatchingPairs: []MatchingPair{
		{ID: 1, CorrectForLeft1: 3, CorrectForLeft2: 1},
	}}

	tests := []struct {
		name string
		q    *Question
		raw  string
		want int
	}{
		{"sc string id", sc, `["100"]`, 1},
		{"sc numeric id", sc, `[100]`, 1},
		{"sc whole float id", sc, `[100.0]`, 1},
		{"sc fractional id", sc, `[100.5]`, 0},
		{"sc first element wins", sc, `["100","101"]`, 1},
		{"sc first element wrong", sc, `["101","100"]`, 0},
		{"sc wrong", sc, `["101"]`, 0},
		{"sc empty list", sc, `[]`, 0},
		{"sc not a list", sc, `"100"`, 0},
		{"sc non numeric", sc, `["x"]`, 0},
		{"sc object", sc, `{}`, 0},

		{"mc exact", mc, `["200","201"]`, 2},
		{"mc order ignored", mc, `["201","200"]`, 2},
		{"mc duplicates collapse", mc, `["200","200","201"]`, 2},
		{"mc subset", mc, `["200"]`, 0},
		{"mc superset", mc, `["200","201","202"]`, 0},
		{"mc empty", mc, `[]`, 0},
		{"mc non numeric item", mc, `["200","201","x"]`, 0},
		{"mc not a list", mc, `{"a":1}`, 0},

		{"mt both right", mt, `{"left_side_1":"3","left_side_2":"1"}`, 2},
		{"mt numeric", mt, `{"left_side_1":3,"left_side_2":1}`, 2},
		{"mt whole floats", mt, `{"left_side_1":3.0,"left_side_2":1.0}`, 2},
		{"mt one wrong", mt, `{"left_side_1":"3","left_side_2":"2"}`, 0},
		{"mt missing side", mt, `{"left_side_1":"3"}`, 0},
		{"mt non numeric", mt, `{"left_side_1":"c","left_side_2":"a"}`, 0},
		{"mt list", mt, `["3","1"]`, 0},
		{"mt string", mt, `"3,1"`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := scoreQuestion(tt.q, json.RawMessage(tt.raw))
			if got != tt.want {
				t.Errorf("scoreQuestion(%s) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestScoreQuestionCorrectAnswers(t *testing.T) {
	mc := &Question{QuestionType: QuestionMultipleChoice, Answers: []Answer{
		{ID: 7, IsCorrect: true}, {ID: 3, IsCorrect: true}, {ID: 5},
	}}
	_, got := scoreQuestion(mc, json.RawMessage(`[]`))
	if !reflect.DeepEqual(got.CorrectAnswers, []uint{3, 7}) {
		t.Errorf("mc correct answers = %v, want [3 7]", got.CorrectAnswers)
	}

	mt := &Question{QuestionType: QuestionMatching, MatchingPairs: []MatchingPair{{CorrectForLeft1: 2, CorrectForLeft2: 4}}}
	_, got = scoreQuestion(mt, json.RawMessage(`null`))
	if got.CorrectAnswers != (MatchingKey{LeftSide1: 2, LeftSide2: 4}) {
		t.Errorf("mt correct answers = %v", got.CorrectAnswers)
	}

	// no pair: zero points, empty list
	points, got := scoreQuestion(&Question{QuestionType: QuestionMatching}, json.RawMessage(`{"left_side_1":"1","left_side_2":"1"}`))
	if points != 0 || !reflect.DeepEqual(got.CorrectAnswers, []uint{}) {
		t.Errorf("mt without pair = %d, %v", points, got.CorrectAnswers)
	}
}

func evaluate(t *testing.T, ev *Evaluator, submission string) *Evaluation {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(submission), &m); err != nil {
		t.Fatalf("bad submission fixture: %v", err)
	}
	out, err := ev.Evaluate(context.Background(), m)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return out
}

func TestEvaluate(t *testing.T) {
	ev := NewEvaluator(NewBank(seededDB(t)))

	t.Run("single correct answer", func(t *testing.T) {
		out := evaluate(t, ev, `{"1":{"1":["1"]}}`)
		if out.Total != 1 || len(out.Subjects) != 1 || out.Subjects[0].Score != 1 {
			t.Fatalf("got total=%d subjects=%+v", out.Total, out.Subjects)
		}
		want := CorrectAnswer{QuestionType: QuestionSingleChoice, CorrectAnswers: []uint{1}}
		if !reflect.DeepEqual(out.Correct[1][1], want) {
			t.Errorf("correct[1][1] = %+v, want %+v", out.Correct[1][1], want)
		}
	})

	t.Run("mixed subjects", func(t *testing.T) {
		out := evaluate(t, ev, `{
			"4": {"6": ["10"]},
			"1": {"1": ["1"], "2": ["4","3"], "3": {"left_side_1": "3", "left_side_2": "1"}}
		}`)
		if out.Total != 7 {
			t.Errorf("total = %d, want 7", out.Total)
		}
		if len(out.Subjects) != 2 || out.Subjects[0].Subject.ID != 1 || out.Subjects[1].Subject.ID != 4 {
			t.Fatalf("subjects = %+v", out.Subjects)
		}
		if out.Subjects[0].Score != 5 || out.Subjects[1].Score != 2 {
			t.Errorf("scores = %d, %d; want 5, 2", out.Subjects[0].Score, out.Subjects[1].Score)
		}
		if got := out.Correct[1][3].CorrectAnswers; got != (MatchingKey{LeftSide1: 3, LeftSide2: 1}) {
			t.Errorf("matching key = %v", got)
		}
	})

	t.Run("matching needs both sides", func(t *testing.T) {
		out := evaluate(t, ev, `{"1":{"3":{"left_side_1":"3","left_side_2":"2"}}}`)
		if out.Total != 0 {
			t.Errorf("total = %d, want 0", out.Total)
		}
		if _, ok := out.Correct[1][3]; !ok {
			t.Errorf("ground truth missing for a wrong answer")
		}
	})

	t.Run("unknown and malformed ids are skipped", func(t *testing.T) {
		out := evaluate(t, ev, `{"99":{"1":["1"]},"abc":{"1":["1"]},"2":{"999":["1"],"x":["6"],"4":["6"]}}`)
		if out.Total != 1 || len(out.Subjects) != 1 || out.Subjects[0].Subject.ID != 2 {
			t.Fatalf("got total=%d subjects=%+v", out.Total, out.Subjects)
		}
		if len(out.Correct[2]) != 1 {
			t.Errorf("correct[2] = %+v, want only question 4", out.Correct[2])
		}
	})

	t.Run("subject body not an object", func(t *testing.T) {
		out := evaluate(t, ev, `{"3":"oops"}`)
		if len(out.Subjects) != 1 || out.Subjects[0].Score != 0 || out.Total != 0 {
			t.Errorf("got %+v", out)
		}
	})

	t.Run("question looked up by id alone", func(t *testing.T) {
		// q6 belongs to subject 4 but is scored under subject 1
		out := evaluate(t, ev, `{"1":{"6":["10"]}}`)
		if out.Total != 2 {
			t.Errorf("total = %d, want 2", out.Total)
		}
	})
}

type failingBank struct{ Bank }

var errStore = errors.New("store down")

func (failingBank) SubjectTree(context.Context, uint) (*Subject, error) { return nil, errStore }

func TestEvaluateStoreError(t *testing.T) {
	ev := NewEvaluator(failingBank{})
	_, err := ev.Evaluate(context.Background(), map[string]json.RawMessage{"1": json.RawMessage(`{}`)})
	if !errors.Is(err, errStore) {
		t.Fatalf("err = %v, want %v", err, errStore)
	}
}
