package main

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NewRouter wires the HTTP surface: auth first, then throttling, then the handler.
func NewRouter(cfg Config, db *gorm.DB, th *Throttle) *gin.Engine {
	bank := NewBank(db)
	asm := NewAssembler(bank, cfg.RequiredSubjects)
	ev := NewEvaluator(bank)

	r := gin.Default()
	r.RedirectTrailingSlash = false

	// --- CORS: configured origins + any localhost:port ---
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if slices.Contains(cfg.CORSOrigins, origin) {
				return true
			}
			return strings.HasPrefix(origin, "http://localhost:")
		},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Authorization"},
		ExposeHeaders: []string{"Retry-After"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api")
	route(api, http.MethodPost, "/login", Login(db))

	auth := api.Group("", RequireToken(db))
	{
		route(auth, http.MethodPost, "/generate_test", Throttled(th, ScopeGenerateTest), GenerateTest(asm))
		route(auth, http.MethodPost, "/submit_answers", Throttled(th, ScopeSubmitAnswers), SubmitAnswers(bank, ev))

		route(auth, http.MethodGet, "/me", GetMe(db))
		route(auth, http.MethodGet, "/results", ListMyResults(db))
		route(auth, http.MethodGet, "/results/:id", GetMyResult(db))
		route(auth, http.MethodGet, "/stats", Stats(db))
	}
	return r
}

// route registers path with and without a trailing slash.
func route(g *gin.RouterGroup, method, path string, handlers ...gin.HandlerFunc) {
	g.Handle(method, path, handlers...)
	g.Handle(method, path+"/", handlers...)
}
