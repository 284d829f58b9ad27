package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ==== JSON input structures ====

type SchoolInput struct {
	Name string `json:"name" validate:"required,max=255"`
}

type UserInput struct {
	IIN       string    `json:"iin" validate:"required,len=12,numeric"`
	FullName  string    `json:"full_name" validate:"required,max=255"`
	Password  string    `json:"password" validate:"required,min=6"`
	IsActive  *bool     `json:"is_active"`
	IsStaff   bool      `json:"is_staff"`
	UsageType UsageType `json:"usage_type" validate:"omitempty,oneof=single subscription"`
	School    string    `json:"school"`
}

type AnswerInput struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

type MatchingPairInput struct {
	LeftSide1       string `json:"left_side_1" validate:"required"`
	LeftSide2       string `json:"left_side_2" validate:"required"`
	RightOption1    string `json:"right_option_1" validate:"required"`
	RightOption2    string `json:"right_option_2" validate:"required"`
	RightOption3    string `json:"right_option_3" validate:"required"`
	RightOption4    string `json:"right_option_4" validate:"required"`
	CorrectForLeft1 int    `json:"correct_for_left_1" validate:"min=1,max=4"`
	CorrectForLeft2 int    `json:"correct_for_left_2" validate:"min=1,max=4"`
}

type QuestionInput struct {
	Text          string              `json:"text" validate:"required"`
	QuestionType  QuestionType        `json:"question_type" validate:"required,oneof=SC MC MT"`
	Answers       []AnswerInput       `json:"answers" validate:"dive"`
	MatchingPairs []MatchingPairInput `json:"matching_pairs" validate:"dive"`
}

type SubjectInput struct {
	Name      SubjectCode     `json:"name" validate:"required"`
	Variant   int             `json:"variant" validate:"min=1"`
	IsActive  *bool           `json:"is_active"`
	Questions []QuestionInput `json:"questions" validate:"dive"`
}

type BankInput struct {
	Schools  []SchoolInput  `json:"schools" validate:"dive"`
	Users    []UserInput    `json:"users" validate:"dive"`
	Subjects []SubjectInput `json:"subjects" validate:"dive"`
}

var validate = validator.New()

// ==== Validation ====

// Check runs the tag rules and the per-type shape rules of the bank.
func (in *BankInput) Check() error {
	if err := validate.Struct(in); err != nil {
		return err
	}

	var errs []error
	schools := map[string]bool{}
	for _, s := range in.Schools {
		schools[strings.TrimSpace(s.Name)] = true
	}
	iins := map[string]bool{}
	for _, u := range in.Users {
		if iins[u.IIN] {
			errs = append(errs, fmt.Errorf("user %s: duplicate iin", u.IIN))
		}
		iins[u.IIN] = true
		if u.School != "" && !schools[strings.TrimSpace(u.School)] {
			errs = append(errs, fmt.Errorf("user %s: unknown school %q", u.IIN, u.School))
		}
	}

	variants := map[string]bool{}
	for _, s := range in.Subjects {
		if !s.Name.Valid() {
			errs = append(errs, fmt.Errorf("subject %q: unknown code", s.Name))
			continue
		}
		vk := fmt.Sprintf("%s/%d", s.Name, s.Variant)
		if variants[vk] {
			errs = append(errs, fmt.Errorf("subject %s: duplicate variant", vk))
		}
		variants[vk] = true

		for i, q := range s.Questions {
			if err := checkQuestionShape(q); err != nil {
				errs = append(errs, fmt.Errorf("subject %s question %d: %w", vk, i+1, err))
			}
		}
	}
	return errors.Join(errs...)
}

func checkQuestionShape(q QuestionInput) error {
	correct := 0
	for _, a := range q.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	switch q.QuestionType {
	case QuestionSingleChoice, QuestionMultipleChoice:
		if len(q.MatchingPairs) != 0 {
			return errors.New("choice question cannot carry matching pairs")
		}
		if q.QuestionType == QuestionSingleChoice && correct != 1 {
			return fmt.Errorf("single choice needs exactly one correct answer, got %d", correct)
		}
		if q.QuestionType == QuestionMultipleChoice && correct < 1 {
			return errors.New("multiple choice needs at least one correct answer")
		}
	case QuestionMatching:
		if len(q.Answers) != 0 {
			return errors.New("matching question cannot carry answers")
		}
		if len(q.MatchingPairs) != 1 {
			return fmt.Errorf("matching needs exactly one matching pair, got %d", len(q.MatchingPairs))
		}
	}
	return nil
}

// ==== Seeder ====

func ReadBankFile(path string) (*BankInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var in BankInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("json parse: %w", err)
	}
	return &in, nil
}

func SeedFromJSON(db *gorm.DB, path string) error {
	in, err := ReadBankFile(path)
	if err != nil {
		return err
	}
	return Seed(db, in)
}

// Seed validates the whole document and then writes it in one transaction.
func Seed(db *gorm.DB, in *BankInput) error {
	if err := in.Check(); err != nil {
		return fmt.Errorf("seed validation: %w", err)
	}

	// hashed before the transaction opens
	hashes := make([]string, len(in.Users))
	for i, u := range in.Users {
		h, err := HashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("user %s: %w", u.IIN, err)
		}
		hashes[i] = h
	}

	return db.Transaction(func(tx *gorm.DB) error {
		schoolIDs := map[string]uint{}
		for _, s := range in.Schools {
			name := strings.TrimSpace(s.Name)
			if _, ok := schoolIDs[name]; ok {
				continue
			}
			school := School{Name: name}
			if err := tx.Create(&school).Error; err != nil {
				return err
			}
			schoolIDs[name] = school.ID
		}

		for i, u := range in.Users {
			user := User{
				IIN:          u.IIN,
				FullName:     u.FullName,
				PasswordHash: hashes[i],
				IsActive:     boolOr(u.IsActive, true),
				IsStaff:      u.IsStaff,
				UsageType:    u.UsageType,
			}
			if user.UsageType == "" {
				user.UsageType = UsageSingle
			}
			if id, ok := schoolIDs[strings.TrimSpace(u.School)]; ok {
				user.SchoolID = &id
			}
			if err := tx.Omit(clause.Associations).Create(&user).Error; err != nil {
				return fmt.Errorf("user %s: %w", u.IIN, err)
			}
		}

		for _, s := range in.Subjects {
			subject := Subject{Name: s.Name, Variant: s.Variant, IsActive: boolOr(s.IsActive, true)}
			if err := tx.Omit(clause.Associations).Create(&subject).Error; err != nil {
				return err
			}
			for _, qi := range s.Questions {
				if err := seedQuestion(tx, subject.ID, qi); err != nil {
					return fmt.Errorf("subject %s/%d: %w", s.Name, s.Variant, err)
				}
			}
		}
		return nil
	})
}

func seedQuestion(tx *gorm.DB, subjectID uint, in QuestionInput) error {
	q := Question{SubjectID: subjectID, Text: in.Text, QuestionType: in.QuestionType}
	if err := tx.Omit(clause.Associations).Create(&q).Error; err != nil {
		return err
	}
	for _, a := range in.Answers {
		answer := Answer{QuestionID: q.ID, Text: a.Text, IsCorrect: a.IsCorrect}
		if err := tx.Create(&answer).Error; err != nil {
			return err
		}
	}
	for _, p := range in.MatchingPairs {
		pair := MatchingPair{
			QuestionID:      q.ID,
			LeftSide1:       p.LeftSide1,
			LeftSide2:       p.LeftSide2,
			RightOption1:    p.RightOption1,
			RightOption2:    p.RightOption2,
			RightOption3:    p.RightOption3,
			RightOption4:    p.RightOption4,
			CorrectForLeft1: p.CorrectForLeft1,
			CorrectForLeft2: p.CorrectForLeft2,
		}
		if err := tx.Create(&pair).Error; err != nil {
			return err
		}
	}
	return nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
