package main

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const invalidCredentialsMsg = "Invalid IIN or password."

// compared against for unknown IINs so both failures cost one bcrypt round
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("ubt-dummy-password"), bcrypt.DefaultCost)

func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Authenticate checks the IIN/password pair of an active user.
func Authenticate(ctx context.Context, db *gorm.DB, iin, password string) (User, error) {
	var u User
	tx := db.WithContext(ctx).Limit(1).Find(&u, "iin = ?", strings.TrimSpace(iin))
	if tx.Error != nil {
		return User{}, tx.Error
	}
	if tx.RowsAffected == 0 {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// tokenFor returns the user's token, creating it on first login.
func tokenFor(ctx context.Context, db *gorm.DB, userID uint) (string, error) {
	fresh := AuthToken{Key: strings.ReplaceAll(uuid.NewString(), "-", ""), UserID: userID}
	var tok AuthToken
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).First(&tok).Error
	})
	if err != nil {
		return "", err
	}
	return tok.Key, nil
}

type LoginReq struct {
	IIN      string `json:"iin" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /api/login
func Login(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": invalidCredentialsMsg})
			return
		}
		u, err := Authenticate(c.Request.Context(), db, req.IIN, req.Password)
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": invalidCredentialsMsg})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		key, err := tokenFor(c.Request.Context(), db, u.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"token":     key,
			"user_id":   u.ID,
			"iin":       u.IIN,
			"full_name": u.FullName,
		})
	}
}
