package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() { gin.SetMode(gin.TestMode) }

// newTestDB opens a fresh in-memory database. One connection keeps every
// query on the same memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func ptr[T any](v T) *T { return &v }

// fixtureBank seeds, in insertion order:
//
//	subject 1 HIS v1: q1 SC (a1 correct, a2), q2 MC (a3, a4 correct, a5), q3 MT (pair 1: 3/1)
//	subject 2 RL  v1: q4 SC (a6 correct, a7)
//	subject 3 ML  v1: q5 SC (a8, a9 correct)
//	subject 4 MAT v1: q6 MC (a10 correct, a11)
//	subject 5 MAT v2 inactive: q7 SC (a12 correct)
//
// users: 1 "000000000001"/"secret1" (school 1), 2 "000000000002"/"secret2",
// 3 "000000000003"/"secret3" inactive.
func fixtureBank() *BankInput {
	return &BankInput{
		Schools: []SchoolInput{{Name: "School 1"}},
		Users: []UserInput{
			{IIN: "000000000001", FullName: "Student One", Password: "secret1", School: "School 1"},
			{IIN: "000000000002", FullName: "Student Two", Password: "secret2", UsageType: UsageSubscription},
			{IIN: "000000000003", FullName: "Student Three", Password: "secret3", IsActive: ptr(false)},
		},
		Subjects: []SubjectInput{
			{Name: SubjectHistory, Variant: 1, Questions: []QuestionInput{
				{Text: "q1", QuestionType: QuestionSingleChoice, Answers: []AnswerInput{
					{Text: "a1", IsCorrect: true}, {Text: "a2"},
				}},
				{Text: "q2", QuestionType: QuestionMultipleChoice, Answers: []AnswerInput{
					{Text: "a3", IsCorrect: true}, {Text: "a4", IsCorrect: true}, {Text: "a5"},
				}},
				{Text: "q3", QuestionType: QuestionMatching, MatchingPairs: []MatchingPairInput{{
					LeftSide1: "L1", LeftSide2: "L2",
					RightOption1: "R1", RightOption2: "R2", RightOption3: "R3", RightOption4: "R4",
					CorrectForLeft1: 3, CorrectForLeft2: 1,
				}}},
			}},
			{Name: SubjectReadingLiteracy, Variant: 1, Questions: []QuestionInput{
				{Text: "q4", QuestionType: QuestionSingleChoice, Answers: []AnswerInput{
					{Text: "a6", IsCorrect: true}, {Text: "a7"},
				}},
			}},
			{Name: SubjectMathLiteracy, Variant: 1, Questions: []QuestionInput{
				{Text: "q5", QuestionType: QuestionSingleChoice, Answers: []AnswerInput{
					{Text: "a8"}, {Text: "a9", IsCorrect: true},
				}},
			}},
			{Name: SubjectMath, Variant: 1, Questions: []QuestionInput{
				{Text: "q6", QuestionType: QuestionMultipleChoice, Answers: []AnswerInput{
					{Text: "a10", IsCorrect: true}, {Text: "a11"},
				}},
			}},
			{Name: SubjectMath, Variant: 2, IsActive: ptr(false), Questions: []QuestionInput{
				{Text: "q7", QuestionType: QuestionSingleChoice, Answers: []AnswerInput{
					{Text: "a12", IsCorrect: true},
				}},
			}},
		},
	}
}

func seededDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := newTestDB(t)
	if err := Seed(db, fixtureBank()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("encode body: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// doRequest sends body with a raw Authorization header value.
func doRequest(r http.Handler, method, path, authorization, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}
