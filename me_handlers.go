package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SchoolDTO struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type MeResponse struct {
	ID        uint       `json:"id"`
	IIN       string     `json:"iin"`
	FullName  string     `json:"full_name"`
	UsageType UsageType  `json:"usage_type"`
	IsActive  bool       `json:"is_active"`
	School    *SchoolDTO `json:"school"`
}

// GET /api/me
func GetMe(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetUint(ctxUserID)
		if uid == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no user"})
			return
		}
		var u User
		tx := db.WithContext(c.Request.Context()).Preload("School").Limit(1).Find(&u, uid)
		if tx.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		if tx.RowsAffected == 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		resp := MeResponse{
			ID:        u.ID,
			IIN:       u.IIN,
			FullName:  u.FullName,
			UsageType: u.UsageType,
			IsActive:  u.IsActive,
		}
		if u.School != nil {
			resp.School = &SchoolDTO{ID: u.School.ID, Name: u.School.Name}
		}
		c.JSON(http.StatusOK, resp)
	}
}
