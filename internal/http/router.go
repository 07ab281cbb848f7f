// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/caky/go-study-backend/internal/config"
	"github.com/caky/go-study-backend/internal/http/handlers"
	"github.com/caky/go-study-backend/internal/http/middleware"
	"github.com/caky/go-study-backend/internal/ingest"
	"github.com/caky/go-study-backend/internal/llm"
	"github.com/caky/go-study-backend/internal/repo"
	"github.com/caky/go-study-backend/internal/services"
	"github.com/caky/go-study-backend/internal/storage"
	"github.com/caky/go-study-backend/internal/tasks"
)

// Deps bundles the externally constructed dependencies the router needs.
// Everything else (services, handlers) is wired here.
type Deps struct {
	DB      *gorm.DB
	Store   storage.Store
	LLM     llm.Completer
	Spawner tasks.Spawner
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and
// rate limiting, CORS and security headers, health and metrics endpoints,
// and then mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. User identity (so idempotency and rate limiting key on the user)
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
// 10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit; uploads need headroom over JSON endpoints.
	r.Use(limitBody(int64(cfg.Ingest.MaxUploadMB) << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Compress JSON responses; Prometheus negotiates its own encoding.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 7) User identity from the X-User-ID header, matching what the handlers
	// resolve, so idempotency scopes and rate-limit buckets agree with them.
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-User-ID"); uid != "" {
			c.Set("userID", uid)
		}
		c.Next()
	})

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, scopeID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, deps.DB, userID, scopeID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/upstreams
	pipeline := &ingest.Pipeline{
		Rasterizer:  &ingest.PDFToPPM{DPI: cfg.Ingest.RasterDPI},
		Completer:   deps.LLM,
		Model:       cfg.LLM.VisionModel,
		PageTimeout: cfg.Ingest.PageTimeout,
	}

	sessionSvc := services.NewSessionService(deps.DB)
	docSvc := services.NewDocumentService(deps.DB, deps.Store, pipeline, deps.Spawner)
	planSvc := services.NewPlanService(deps.DB, deps.LLM, cfg.LLM.PlanModel)
	planSvc.DefaultLanguage = cfg.Ingest.DefaultLang
	studySvc := services.NewStudyService(deps.DB, deps.LLM, deps.Spawner, cfg.LLM.ChatModel)
	studySvc.DefaultLanguage = cfg.Ingest.DefaultLang
	chatSvc := services.NewChatService(deps.DB, deps.LLM, cfg.LLM.ChatModel)
	chatSvc.DefaultLanguage = cfg.Ingest.DefaultLang
	chatSvc.IdempotencyTTL = cfg.IdempotencyTTL

	h := handlers.New(sessionSvc, docSvc, planSvc, studySvc, chatSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Sessions
		api.POST("/sessions", h.CreateSession)
		api.GET("/sessions", h.ListSessions)
		api.GET("/sessions/:id", h.GetSession)
		api.PUT("/sessions/:id/title", h.UpdateSessionTitle)
		api.POST("/sessions/:id/complete", h.CompleteSession)
		api.DELETE("/sessions/:id", h.DeleteSession)

		// Documents
		api.POST("/sessions/:id/documents", h.UploadDocument)
		api.GET("/sessions/:id/documents", h.ListDocuments)
		api.GET("/sessions/:id/documents/:docID", h.GetDocument)
		api.GET("/sessions/:id/documents/:docID/url", h.DocumentURL)
		api.POST("/sessions/:id/documents/:docID/reprocess", h.ReprocessDocument)
		api.DELETE("/sessions/:id/documents/:docID", h.DeleteDocument)

		// Plan
		api.POST("/sessions/:id/plan/generate", h.GeneratePlan)
		api.POST("/sessions/:id/plan/revisions", h.RevisePlan)
		api.DELETE("/sessions/:id/plan/revisions/latest", h.UndoPlanRevision)
		api.GET("/sessions/:id/plan/revisions", h.PlanHistory)
		api.PATCH("/sessions/:id/plan/topics/:topicID", h.PatchDraftTopic)

		// Study stage
		api.POST("/sessions/:id/start", h.StartStudying)
		api.GET("/sessions/:id/topics", h.ListTopics)
		api.PATCH("/sessions/:id/topics/:topicID", h.PatchTopic)

		// Chats
		api.GET("/sessions/:id/chats", h.ListChats)
		api.GET("/sessions/:id/chats/:chatID", h.GetChat)
		api.GET("/sessions/:id/chats/:chatID/messages", h.ListMessages)
		api.POST("/sessions/:id/chats/:chatID/messages", h.SendMessage)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix; "" and "/" both mean root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	return r.Group(prefix)
}
