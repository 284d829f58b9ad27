package main

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultSQLiteDSN = "ubt.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

func OpenDB(driver, dsn, logLevel string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(parseLogLevel(logLevel))}

	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = defaultSQLiteDSN
		}
		db, err := gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, err
		}
		// one writer: transactions on the same key serialize on the pool
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	case "postgres":
		if dsn == "" {
			dsn = "postgres://localhost:5432/ubt?sslmode=disable"
		}
		return gorm.Open(postgres.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&School{},
		&User{},
		&AuthToken{},
		&Subject{},
		&Question{},
		&Answer{},
		&MatchingPair{},
		&TestResult{},
		&SubjectResult{},
		&ThrottleBucket{},
	)
}

func IsBankEmpty(db *gorm.DB) (bool, error) {
	var count int64
	if err := db.Model(&Subject{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

func parseLogLevel(s string) logger.LogLevel {
	switch strings.ToLower(s) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
