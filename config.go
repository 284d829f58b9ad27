package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	DBDriver   string // sqlite|postgres
	DBDSN      string
	DBLogLevel string
	SeedPath   string

	CORSOrigins      []string
	RequiredSubjects []SubjectCode

	GenerateTestRate  Rate
	SubmitAnswersRate Rate

	ThrottleBackend string // memory|db|redis
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
}

// LoadConfig reads the environment, after merging a .env file when present.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded, using process environment")
	}

	cfg := Config{
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		DBDriver:        envOr("DB_DRIVER", "sqlite"),
		DBDSN:           os.Getenv("DB_DSN"),
		DBLogLevel:      envOr("DB_LOG_LEVEL", "warn"),
		SeedPath:        envOr("SEED_PATH", "data/bank.json"),
		CORSOrigins:     csvOr("CORS_ORIGINS", ""),
		ThrottleBackend: envOr("THROTTLE_BACKEND", "db"),
		RedisAddr:       envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
	}

	for _, code := range csvOr("REQUIRED_SUBJECTS", "HIS,RL,ML") {
		sc := SubjectCode(strings.ToUpper(code))
		if !sc.Valid() {
			return Config{}, fmt.Errorf("REQUIRED_SUBJECTS: unknown subject code %q", code)
		}
		cfg.RequiredSubjects = append(cfg.RequiredSubjects, sc)
	}

	var err error
	if cfg.GenerateTestRate, err = ParseRate(envOr("THROTTLE_GENERATE_TEST", "2/day")); err != nil {
		return Config{}, fmt.Errorf("THROTTLE_GENERATE_TEST: %w", err)
	}
	if cfg.SubmitAnswersRate, err = ParseRate(envOr("THROTTLE_SUBMIT_ANSWERS", "2/day")); err != nil {
		return Config{}, fmt.Errorf("THROTTLE_SUBMIT_ANSWERS: %w", err)
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if cfg.RedisDB, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("REDIS_DB: %w", err)
		}
	}
	return cfg, nil
}

// Rates returns the per-scope throttle policy.
func (c Config) Rates() map[Scope]Rate {
	return map[Scope]Rate{
		ScopeGenerateTest:  c.GenerateTestRate,
		ScopeSubmitAnswers: c.SubmitAnswersRate,
	}
}

// Rate is a request quota over a rolling window.
type Rate struct {
	Limit  int
	Window time.Duration
}

func (r Rate) String() string { return fmt.Sprintf("%d/%s", r.Limit, r.Window) }

// ParseRate parses "N/period" where period is s, m, h or d. Only the first
// letter of the period counts, so "2/day" and "2/d" are equal.
func ParseRate(s string) (Rate, error) {
	num, period, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || period == "" {
		return Rate{}, fmt.Errorf("rate %q: want N/period", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || n <= 0 {
		return Rate{}, fmt.Errorf("rate %q: bad request count", s)
	}
	var window time.Duration
	switch strings.ToLower(strings.TrimSpace(period))[0] {
	case 's':
		window = time.Second
	case 'm':
		window = time.Minute
	case 'h':
		window = time.Hour
	case 'd':
		window = 24 * time.Hour
	default:
		return Rate{}, fmt.Errorf("rate %q: unknown period", s)
	}
	return Rate{Limit: n, Window: window}, nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
