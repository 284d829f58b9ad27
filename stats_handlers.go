package main

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SubjectStats struct {
	Code         SubjectCode `json:"code"`
	Title        string      `json:"title"`
	Attempts     int64       `json:"attempts"`
	AverageScore float64     `json:"average_score"`
	BestScore    int         `json:"best_score"`
}

type StatsResponse struct {
	TotalTests   int64          `json:"total_tests"`
	BestScore    *int           `json:"best_score,omitempty"`
	AverageScore *float64       `json:"average_score,omitempty"`
	LastTaken    *time.Time     `json:"last_taken,omitempty"`
	Subjects     []SubjectStats `json:"subjects"`
}

// GET /api/stats
func Stats(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetUint(ctxUserID)
		if uid == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no user"})
			return
		}
		db := db.WithContext(c.Request.Context())

		resp := StatsResponse{Subjects: []SubjectStats{}}
		if err := db.Model(&TestResult{}).Where("user_id = ?", uid).Count(&resp.TotalTests).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		if resp.TotalTests == 0 {
			c.JSON(http.StatusOK, resp)
			return
		}

		// totals over the user's results
		type rowTotals struct {
			Best *int
			Avg  *float64
		}
		var totals rowTotals
		if err := db.Model(&TestResult{}).
			Where("user_id = ?", uid).
			Select("MAX(total_score) AS best, AVG(total_score) AS avg").
			Scan(&totals).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		resp.BestScore = totals.Best
		resp.AverageScore = totals.Avg

		var last TestResult
		if err := db.Where("user_id = ?", uid).Order("date_taken DESC, id DESC").
			Limit(1).Find(&last).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		if last.ID != 0 {
			t := last.DateTaken
			resp.LastTaken = &t
		}

		// per subject code, across variants
		type rowSubject struct {
			Code     SubjectCode
			Attempts int64
			Avg      float64
			Best     int
		}
		var rows []rowSubject
		if err := db.Table("subject_results sr").
			Select("s.name AS code, COUNT(*) AS attempts, AVG(sr.score) AS avg, MAX(sr.score) AS best").
			Joins("JOIN test_results tr ON tr.id = sr.test_result_id").
			Joins("JOIN subjects s ON s.id = sr.subject_id").
			Where("tr.user_id = ?", uid).
			Group("s.name").
			Scan(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		for _, r := range rows {
			resp.Subjects = append(resp.Subjects, SubjectStats{
				Code:         r.Code,
				Title:        r.Code.Title(),
				Attempts:     r.Attempts,
				AverageScore: r.Avg,
				BestScore:    r.Best,
			})
		}
		sort.Slice(resp.Subjects, func(i, j int) bool { return resp.Subjects[i].Code < resp.Subjects[j].Code })

		c.JSON(http.StatusOK, resp)
	}
}
