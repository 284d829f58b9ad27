package main

import (
	"time"

	"gorm.io/datatypes"
)

// --- Subjects ---

type SubjectCode string

const (
	SubjectHistory           SubjectCode = "HIS"
	SubjectMath              SubjectCode = "MAT"
	SubjectPhysics           SubjectCode = "PHY"
	SubjectChemistry         SubjectCode = "CHE"
	SubjectReadingLiteracy   SubjectCode = "RL"
	SubjectMathLiteracy      SubjectCode = "ML"
	SubjectWorldHistory      SubjectCode = "WHI"
	SubjectGeography         SubjectCode = "GEO"
	SubjectLawFundamentals   SubjectCode = "LF"
	SubjectForeignLanguage   SubjectCode = "FL"
	SubjectBiology           SubjectCode = "BIO"
	SubjectKazakhLanguage    SubjectCode = "KZ"
	SubjectKazakhLiterature  SubjectCode = "KL"
	SubjectInformatics       SubjectCode = "INF"
	SubjectRussianLanguage   SubjectCode = "RU"
	SubjectRussianLiterature SubjectCode = "RUL"
)

var subjectTitles = map[SubjectCode]string{
	SubjectHistory:           "Тарих",
	SubjectMath:              "Математика",
	SubjectPhysics:           "Физика",
	SubjectChemistry:         "Химия",
	SubjectReadingLiteracy:   "Оқу сауаттылығы",
	SubjectMathLiteracy:      "Математикалық сауаттылық",
	SubjectWorldHistory:      "Дүниежүзі тарихы",
	SubjectGeography:         "География",
	SubjectLawFundamentals:   "Құқық негіздері",
	SubjectForeignLanguage:   "Шет тілі",
	SubjectBiology:           "Биология",
	SubjectKazakhLanguage:    "Қазақ тілі",
	SubjectKazakhLiterature:  "Қазақ әдебиеті",
	SubjectInformatics:       "Информатика",
	SubjectRussianLanguage:   "Русский язык",
	SubjectRussianLiterature: "Русская литература",
}

// DefaultRequiredSubjects are prepended to every assembled test.
var DefaultRequiredSubjects = []SubjectCode{SubjectHistory, SubjectReadingLiteracy, SubjectMathLiteracy}

func (c SubjectCode) Valid() bool {
	_, ok := subjectTitles[c]
	return ok
}

func (c SubjectCode) Title() string { return subjectTitles[c] }

type Subject struct {
	ID        uint        `gorm:"primaryKey"`
	Name      SubjectCode `gorm:"size:3;not null;index:idx_subjects_name_active"`
	Variant   int         `gorm:"not null"`
	IsActive  bool        `gorm:"not null;index:idx_subjects_name_active"`
	Questions []Question
}

// --- Questions ---

type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "SC"
	QuestionMultipleChoice QuestionType = "MC"
	QuestionMatching       QuestionType = "MT"
)

type Question struct {
	ID            uint         `gorm:"primaryKey"`
	SubjectID     uint         `gorm:"index;not null"`
	Text          string       `gorm:"not null"`
	QuestionType  QuestionType `gorm:"size:2;not null"`
	Answers       []Answer
	MatchingPairs []MatchingPair
}

type Answer struct {
	ID         uint   `gorm:"primaryKey"`
	QuestionID uint   `gorm:"index;not null"`
	Text       string `gorm:"not null"`
	IsCorrect  bool   `gorm:"not null"`
}

// MatchingPair holds two fixed prompts and four options; the correct option
// for each prompt is an index in 1..4.
type MatchingPair struct {
	ID              uint   `gorm:"primaryKey"`
	QuestionID      uint   `gorm:"index;not null"`
	LeftSide1       string `gorm:"column:left_side_1;not null"`
	LeftSide2       string `gorm:"column:left_side_2;not null"`
	RightOption1    string `gorm:"column:right_option_1;not null"`
	RightOption2    string `gorm:"column:right_option_2;not null"`
	RightOption3    string `gorm:"column:right_option_3;not null"`
	RightOption4    string `gorm:"column:right_option_4;not null"`
	CorrectForLeft1 int    `gorm:"column:correct_for_left_1;not null"`
	CorrectForLeft2 int    `gorm:"column:correct_for_left_2;not null"`
}

// --- Results ---

type TestResult struct {
	ID             uint      `gorm:"primaryKey"`
	UserID         uint      `gorm:"index;not null"`
	User           User
	DateTaken      time.Time `gorm:"not null;index"`
	TotalScore     int       `gorm:"not null"`
	SubjectResults []SubjectResult
}

type SubjectResult struct {
	ID           uint `gorm:"primaryKey"`
	TestResultID uint `gorm:"index;not null"`
	SubjectID    uint `gorm:"not null"`
	Subject      Subject
	Score        int `gorm:"not null"`
}

// --- Users ---

type UsageType string

const (
	UsageSingle       UsageType = "single"
	UsageSubscription UsageType = "subscription"
)

type School struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:255;not null"`
}

type User struct {
	ID           uint      `gorm:"primaryKey"`
	IIN          string    `gorm:"column:iin;size:12;uniqueIndex;not null"`
	FullName     string    `gorm:"size:255;not null"`
	PasswordHash string    `gorm:"not null"`
	IsActive     bool      `gorm:"not null"`
	IsStaff      bool      `gorm:"not null"`
	UsageType    UsageType `gorm:"size:20;not null"`
	SchoolID     *uint     `gorm:"index"`
	School       *School
	CreatedAt    time.Time
}

// AuthToken is the opaque bearer token issued at login, one per user.
type AuthToken struct {
	Key       string `gorm:"column:token_key;primaryKey;size:40"`
	UserID    uint   `gorm:"uniqueIndex;not null"`
	User      User
	CreatedAt time.Time
}

// --- Throttling ---

// ThrottleBucket stores the request timestamps (unix millis, oldest first)
// of one (scope, user) key.
type ThrottleBucket struct {
	BucketKey string         `gorm:"primaryKey;size:128"`
	History   datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}
