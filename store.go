package main

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Bank is the read side of the question bank plus the atomic result write.
type Bank interface {
	// ActiveVariants returns the active subjects for code, ordered by variant.
	ActiveVariants(ctx context.Context, code SubjectCode) ([]Subject, error)
	// SubjectTree loads a subject with its questions, answers and matching pairs.
	// It returns nil when the id is unknown.
	SubjectTree(ctx context.Context, id uint) (*Subject, error)
	// QuestionByID returns nil when the id is unknown.
	QuestionByID(ctx context.Context, id uint) (*Question, error)
	// CreateResult writes the result and all of its subject results, or nothing.
	CreateResult(ctx context.Context, res *TestResult) error
}

type gormBank struct {
	db *gorm.DB
}

func NewBank(db *gorm.DB) Bank { return &gormBank{db: db} }

func byID(db *gorm.DB) *gorm.DB { return db.Order("id") }

// preloadTree preloads questions, answers and matching pairs under prefix
// ("" for a Subject, "Subject." for a SubjectResult...).
func preloadTree(db *gorm.DB, prefix string) *gorm.DB {
	return db.
		Preload(prefix+"Questions", byID).
		Preload(prefix+"Questions.Answers", byID).
		Preload(prefix+"Questions.MatchingPairs", byID)
}

func (b *gormBank) ActiveVariants(ctx context.Context, code SubjectCode) ([]Subject, error) {
	var out []Subject
	err := b.db.WithContext(ctx).
		Where("name = ? AND is_active = ?", code, true).
		Order("variant, id").
		Find(&out).Error
	return out, err
}

func (b *gormBank) SubjectTree(ctx context.Context, id uint) (*Subject, error) {
	var s Subject
	tx := preloadTree(b.db.WithContext(ctx), "").Limit(1).Find(&s, id)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, nil
	}
	return &s, nil
}

func (b *gormBank) QuestionByID(ctx context.Context, id uint) (*Question, error) {
	var q Question
	tx := b.db.WithContext(ctx).
		Preload("Answers", byID).
		Preload("MatchingPairs", byID).
		Limit(1).Find(&q, id)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, nil
	}
	return &q, nil
}

func (b *gormBank) CreateResult(ctx context.Context, res *TestResult) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows := res.SubjectResults
		if err := tx.Omit(clause.Associations).Create(res).Error; err != nil {
			return err
		}
		for i := range rows {
			rows[i].TestResultID = res.ID
			if err := tx.Omit(clause.Associations).Create(&rows[i]).Error; err != nil {
				return err
			}
		}
		res.SubjectResults = rows
		return nil
	})
}

// loadResult fetches a result with its user and full subject trees.
func loadResult(ctx context.Context, db *gorm.DB, id uint) (*TestResult, error) {
	var r TestResult
	tx := preloadTree(db.WithContext(ctx).
		Preload("User").
		Preload("SubjectResults", byID).
		Preload("SubjectResults.Subject"), "SubjectResults.Subject.").
		Limit(1).Find(&r, id)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, nil
	}
	return &r, nil
}
