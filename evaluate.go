package main

import (
	"context"
	"encoding/json"
	"sort"
)

// Points for a fully correct response. There is no partial credit.
const (
	pointsSingleChoice   = 1
	pointsMultipleChoice = 2
	pointsMatching       = 2
)

// CorrectAnswer is the ground truth for one question, returned for review.
// CorrectAnswers holds []uint for choice questions and MatchingKey for matching.
type CorrectAnswer struct {
	QuestionType   QuestionType `json:"question_type"`
	CorrectAnswers any          `json:"correct_answers"`
}

type MatchingKey struct {
	LeftSide1 int `json:"left_side_1"`
	LeftSide2 int `json:"left_side_2"`
}

type SubjectScore struct {
	Subject Subject
	Score   int
}

type Evaluation struct {
	Subjects []SubjectScore
	// subject id -> question id -> ground truth
	Correct map[uint]map[uint]CorrectAnswer
	Total   int
}

type Evaluator struct {
	bank Bank
}

func NewEvaluator(bank Bank) *Evaluator { return &Evaluator{bank: bank} }

// Evaluate scores a submission keyed subject id -> question id -> response.
// Unknown or non-numeric ids are skipped and malformed responses score zero;
// only store failures are returned as errors.
func (e *Evaluator) Evaluate(ctx context.Context, submission map[string]json.RawMessage) (*Evaluation, error) {
	ev := &Evaluation{Correct: map[uint]map[uint]CorrectAnswer{}}

	for _, sk := range sortedKeys(submission) {
		subjectID, ok := parseKey(sk)
		if !ok {
			continue
		}
		subject, err := e.bank.SubjectTree(ctx, subjectID)
		if err != nil {
			return nil, err
		}
		if subject == nil {
			continue
		}

		// a body that is not an object scores like an empty one
		var answers map[string]json.RawMessage
		_ = json.Unmarshal(submission[sk], &answers)

		key := map[uint]CorrectAnswer{}
		ev.Correct[subjectID] = key
		score := 0
		for _, qk := range sortedKeys(answers) {
			questionID, ok := parseKey(qk)
			if !ok {
				continue
			}
			q, err := e.bank.QuestionByID(ctx, questionID)
			if err != nil {
				return nil, err
			}
			if q == nil {
				continue
			}
			points, correct := scoreQuestion(q, answers[qk])
			key[questionID] = correct
			score += points
		}

		ev.Subjects = append(ev.Subjects, SubjectScore{Subject: *subject, Score: score})
		ev.Total += score
	}
	return ev, nil
}

// choiceResponse is the list form used by single and multiple choice.
// It is nil when the response is not a JSON list.
type choiceResponse []json.RawMessage

// matchingResponse is the object form used by matching questions.
type matchingResponse struct {
	LeftSide1 json.RawMessage `json:"left_side_1"`
	LeftSide2 json.RawMessage `json:"left_side_2"`
}

func decodeChoice(raw json.RawMessage) choiceResponse {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

func decodeMatching(raw json.RawMessage) matchingResponse {
	var m matchingResponse
	_ = json.Unmarshal(raw, &m)
	return m
}

// scoreQuestion resolves the response shape from the question type and
// dispatches to the type's rule.
func scoreQuestion(q *Question, raw json.RawMessage) (int, CorrectAnswer) {
	switch q.QuestionType {
	case QuestionSingleChoice:
		return scoreSingleChoice(q, decodeChoice(raw))
	case QuestionMultipleChoice:
		return scoreMultipleChoice(q, decodeChoice(raw))
	case QuestionMatching:
		return scoreMatching(q, decodeMatching(raw))
	}
	return 0, CorrectAnswer{QuestionType: q.QuestionType, CorrectAnswers: []uint{}}
}

func correctAnswerIDs(q *Question) []uint {
	ids := []uint{}
	for _, a := range q.Answers {
		if a.IsCorrect {
			ids = append(ids, a.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// scoreSingleChoice compares the first selected id with the correct answer.
func scoreSingleChoice(q *Question, resp choiceResponse) (int, CorrectAnswer) {
	ids := correctAnswerIDs(q)
	if len(ids) > 1 {
		ids = ids[:1]
	}
	out := CorrectAnswer{QuestionType: q.QuestionType, CorrectAnswers: ids}

	if len(resp) == 0 || len(ids) == 0 {
		return 0, out
	}
	selected, ok := parseInt(resp[0])
	if !ok || selected != int64(ids[0]) {
		return 0, out
	}
	return pointsSingleChoice, out
}

// scoreMultipleChoice requires the selected set to equal the correct set.
func scoreMultipleChoice(q *Question, resp choiceResponse) (int, CorrectAnswer) {
	ids := correctAnswerIDs(q)
	out := CorrectAnswer{QuestionType: q.QuestionType, CorrectAnswers: ids}

	if len(resp) == 0 {
		return 0, out
	}
	selected := make([]int64, 0, len(resp))
	for _, item := range resp {
		id, ok := parseInt(item)
		if !ok {
			return 0, out
		}
		selected = append(selected, id)
	}
	if !sameIDSet(selected, ids) {
		return 0, out
	}
	return pointsMultipleChoice, out
}

// scoreMatching requires both prompts to be matched correctly.
func scoreMatching(q *Question, resp matchingResponse) (int, CorrectAnswer) {
	out := CorrectAnswer{QuestionType: q.QuestionType, CorrectAnswers: []uint{}}
	if len(q.MatchingPairs) == 0 {
		return 0, out
	}
	pair := q.MatchingPairs[0]
	out.CorrectAnswers = MatchingKey{LeftSide1: pair.CorrectForLeft1, LeftSide2: pair.CorrectForLeft2}

	left1, ok1 := parseInt(resp.LeftSide1)
	left2, ok2 := parseInt(resp.LeftSide2)
	if !ok1 || !ok2 {
		return 0, out
	}
	if left1 != int64(pair.CorrectForLeft1) || left2 != int64(pair.CorrectForLeft2) {
		return 0, out
	}
	return pointsMatching, out
}
