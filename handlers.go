package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

/*** DTOs shared across handlers ***/

// Correctness flags and matching indices never leave through these types.

type AnswerDTO struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type MatchingPairDTO struct {
	ID           uint   `json:"id"`
	Question     uint   `json:"question"`
	LeftSide1    string `json:"left_side_1"`
	LeftSide2    string `json:"left_side_2"`
	RightOption1 string `json:"right_option_1"`
	RightOption2 string `json:"right_option_2"`
	RightOption3 string `json:"right_option_3"`
	RightOption4 string `json:"right_option_4"`
}

type QuestionDTO struct {
	ID            uint              `json:"id"`
	Text          string            `json:"text"`
	QuestionType  QuestionType      `json:"question_type"`
	Answers       []AnswerDTO       `json:"answers"`
	MatchingPairs []MatchingPairDTO `json:"matching_pairs"`
}

type SubjectDTO struct {
	ID        uint          `json:"id"`
	Name      SubjectCode   `json:"name"`
	Variant   int           `json:"variant"`
	Questions []QuestionDTO `json:"questions"`
}

type UserSummaryDTO struct {
	ID       uint   `json:"id"`
	IIN      string `json:"iin"`
	FullName string `json:"full_name"`
}

type SubjectResultDTO struct {
	Subject SubjectDTO `json:"subject"`
	Score   int        `json:"score"`
}

type TestResultDTO struct {
	ID             uint                            `json:"id"`
	User           UserSummaryDTO                  `json:"user"`
	DateTaken      time.Time                       `json:"date_taken"`
	TotalScore     int                             `json:"total_score"`
	SubjectResults []SubjectResultDTO              `json:"subject_results"`
	CorrectAnswers map[uint]map[uint]CorrectAnswer `json:"correct_answers,omitempty"`
}

func toSubjectDTO(s Subject) SubjectDTO {
	qs := make([]QuestionDTO, 0, len(s.Questions))
	for _, q := range s.Questions {
		answers := make([]AnswerDTO, 0, len(q.Answers))
		for _, a := range q.Answers {
			answers = append(answers, AnswerDTO{ID: a.ID, Text: a.Text})
		}
		pairs := make([]MatchingPairDTO, 0, len(q.MatchingPairs))
		for _, p := range q.MatchingPairs {
			pairs = append(pairs, MatchingPairDTO{
				ID:           p.ID,
				Question:     p.QuestionID,
				LeftSide1:    p.LeftSide1,
				LeftSide2:    p.LeftSide2,
				RightOption1: p.RightOption1,
				RightOption2: p.RightOption2,
				RightOption3: p.RightOption3,
				RightOption4: p.RightOption4,
			})
		}
		qs = append(qs, QuestionDTO{
			ID: q.ID, Text: q.Text, QuestionType: q.QuestionType, Answers: answers, MatchingPairs: pairs,
		})
	}
	return SubjectDTO{ID: s.ID, Name: s.Name, Variant: s.Variant, Questions: qs}
}

func toResultDTO(r *TestResult) TestResultDTO {
	subjects := make([]SubjectResultDTO, 0, len(r.SubjectResults))
	for _, sr := range r.SubjectResults {
		subjects = append(subjects, SubjectResultDTO{Subject: toSubjectDTO(sr.Subject), Score: sr.Score})
	}
	return TestResultDTO{
		ID:             r.ID,
		User:           UserSummaryDTO{ID: r.User.ID, IIN: r.User.IIN, FullName: r.User.FullName},
		DateTaken:      r.DateTaken,
		TotalScore:     r.TotalScore,
		SubjectResults: subjects,
	}
}

/*** Test assembly ***/

type GenerateTestReq struct {
	SelectedSubjects []SubjectCode `json:"selected_subjects"`
}

// POST /api/generate_test
func GenerateTest(asm *Assembler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GenerateTestReq
		if err := bindOptionalJSON(c, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}

		subjects, err := asm.Assemble(c.Request.Context(), req.SelectedSubjects)
		var nv *NoVariantError
		if errors.As(err, &nv) {
			c.JSON(http.StatusBadRequest, gin.H{"error": nv.Error()})
			return
		}
		if err != nil {
			log.Printf("generate_test: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}

		out := make([]SubjectDTO, 0, len(subjects))
		for _, s := range subjects {
			out = append(out, toSubjectDTO(s))
		}
		c.JSON(http.StatusOK, gin.H{"test": out})
	}
}

/*** Submission ***/

var ErrEmptySubmission = errors.New("empty submission")

const emptySubmissionMsg = "No answers provided."

type SubmitAnswersReq struct {
	Answers json.RawMessage `json:"answers"`
}

// decodeSubmission rejects a missing, empty or non-object answers field.
func decodeSubmission(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var answers map[string]json.RawMessage
	if err := json.Unmarshal(raw, &answers); err != nil || len(answers) == 0 {
		return nil, ErrEmptySubmission
	}
	return answers, nil
}

// POST /api/submit_answers
func SubmitAnswers(bank Bank, ev *Evaluator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SubmitAnswersReq
		if err := bindOptionalJSON(c, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
		answers, err := decodeSubmission(req.Answers)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": emptySubmissionMsg})
			return
		}
		user, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no user"})
			return
		}

		ctx := c.Request.Context()
		evaluation, err := ev.Evaluate(ctx, answers)
		if err != nil {
			log.Printf("submit_answers: evaluate: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}

		result := TestResult{
			UserID:     user.ID,
			DateTaken:  time.Now().UTC(),
			TotalScore: evaluation.Total,
		}
		for _, s := range evaluation.Subjects {
			result.SubjectResults = append(result.SubjectResults, SubjectResult{SubjectID: s.Subject.ID, Score: s.Score})
		}
		if err := bank.CreateResult(ctx, &result); err != nil {
			log.Printf("submit_answers: create result: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		for i, s := range evaluation.Subjects {
			result.SubjectResults[i].Subject = s.Subject
		}
		result.User = user

		log.Printf("submit_answers: user=%d result=%d subjects=%d total=%d",
			user.ID, result.ID, len(result.SubjectResults), result.TotalScore)

		out := toResultDTO(&result)
		out.CorrectAnswers = evaluation.Correct
		c.JSON(http.StatusOK, out)
	}
}

// bindOptionalJSON decodes the body when there is one; an empty body leaves v untouched.
func bindOptionalJSON(c *gin.Context, v any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(c.Request.Body); err != nil {
		return err
	}
	if len(bytes.TrimSpace(buf.Bytes())) == 0 {
		return nil
	}
	return json.Unmarshal(buf.Bytes(), v)
}

/*** Result history (read-only) ***/

type ResultSummaryDTO struct {
	ID         uint      `json:"id"`
	DateTaken  time.Time `json:"date_taken"`
	TotalScore int       `json:"total_score"`
}

// ListMyResults returns the caller's results, newest first.
// Query params: ?limit=20&offset=0  (limit default 20, max 100)
func ListMyResults(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetUint(ctxUserID)
		db := db.WithContext(c.Request.Context())

		limit := 20
		offset := 0
		if l := c.Query("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil && n > 0 {
				if n > 100 {
					n = 100
				}
				limit = n
			}
		}
		if o := c.Query("offset"); o != "" {
			if n, err := strconv.Atoi(o); err == nil && n >= 0 {
				offset = n
			}
		}

		var total int64
		if err := db.Model(&TestResult{}).Where("user_id = ?", uid).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}

		var results []TestResult
		if err := db.Where("user_id = ?", uid).
			Order("date_taken DESC, id DESC").
			Limit(limit).Offset(offset).
			Find(&results).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}

		items := make([]ResultSummaryDTO, 0, len(results))
		for _, r := range results {
			items = append(items, ResultSummaryDTO{ID: r.ID, DateTaken: r.DateTaken, TotalScore: r.TotalScore})
		}
		c.JSON(http.StatusOK, gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
			"items":  items,
		})
	}
}

// GetMyResult returns one of the caller's results with its subject breakdown.
func GetMyResult(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseKey(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}
		r, err := loadResult(c.Request.Context(), db, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		if r == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}
		if r.UserID != c.GetUint(ctxUserID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.JSON(http.StatusOK, toResultDTO(r))
	}
}
