package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/javier/tender-desk/internal/ai"
	"github.com/javier/tender-desk/internal/auth"
	"github.com/javier/tender-desk/internal/db"
	"github.com/javier/tender-desk/internal/engine"
	"github.com/javier/tender-desk/internal/ingest"
	"github.com/javier/tender-desk/internal/models"
)

type Server struct {
	Store       *db.Store
	AuthService *auth.Service
	Echo        *echo.Echo
	DB          *pgxpool.Pool
	AI          *ai.OllamaClient
	Engine      *engine.Engine

	// Background job tracking
	jobMu      sync.Mutex
	runningJob *backgroundJob
}

type backgroundJob struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"` // running, completed, failed
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
	Result    any                `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	Cancel    context.CancelFunc `json:"-"`
}

var (
	adminSecretOnce    sync.Once
	adminSecretRuntime string
	adminSecretErr     error
)

func NewServer(pool *pgxpool.Pool, eng *engine.Engine) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// CORS: allow frontend origins from env or default to localhost
	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Admin-Secret"},
	}))

	store := db.NewStore(pool)
	authService := auth.NewService(store)

	ollamaHost := os.Getenv("OLLAMA_HOST")
	if ollamaHost == "" {
		ollamaHost = "http://localhost:11434"
	}
	aiClient := ai.NewOllamaClient(ollamaHost, "", "qwen2.5:14b")

	s := &Server{
		DB:          pool,
		Store:       store,
		AuthService: authService,
		Echo:        e,
		AI:          aiClient,
		Engine:      eng,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")
	api.GET("/tenders", s.handleListTenders)
	api.GET("/tenders/:id", s.handleGetTender)
	api.GET("/sources", s.handleGetSources)
	api.GET("/stats", s.handleGetStats)

	// Analysis
	api.POST("/tenders/:id/analyze", s.handleAnalyzeTender)
	api.GET("/tenders/:id/reports", s.handleListReports)
	api.POST("/analyze/batch", s.handleAnalyzeBatch)
	api.POST("/compare", s.handleCompare)

	// Auth Routes
	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	// Protected Routes (Watchlist, proposal drafting)
	watch := api.Group("/watchlist")
	watch.Use(auth.Middleware)
	watch.POST("/:id", s.handleWatchTender)
	watch.DELETE("/:id", s.handleUnwatchTender)
	watch.GET("", s.handleGetWatchlist)

	protected := api.Group("")
	protected.Use(auth.Middleware)
	protected.POST("/tenders/:id/proposal", s.handleDraftProposal)

	// Admin Routes (Ingest & classification)
	admin := api.Group("")
	admin.Use(s.adminMiddleware)
	admin.POST("/ingest", s.handleTriggerIngest)
	admin.POST("/ingest/source/:id", s.handleIngestSourceByID)
	admin.POST("/ingest/all", s.handleIngestAll)
	admin.POST("/tenders/:id/classify", s.handleClassifyTender)
	admin.POST("/admin/recompute-status", s.handleRecomputeStatus)
	admin.GET("/admin/job/:id", s.handleJobStatus)
	admin.GET("/admin/runs", s.handleIngestRuns)
}

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrUserExists {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Login(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrInvalidCreds {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

// splitCSV splits a comma-separated query parameter into trimmed non-empty strings.
func splitCSV(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleListTenders(c echo.Context) error {
	q := c.QueryParam("q")
	limit := 20
	offset := 0
	var minBudget, maxBudget float64
	var deadlineDays int

	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		offset = o
	}
	if v, err := strconv.ParseFloat(c.QueryParam("min_budget"), 64); err == nil && v > 0 {
		minBudget = v
	}
	if v, err := strconv.ParseFloat(c.QueryParam("max_budget"), 64); err == nil && v > 0 {
		maxBudget = v
	}
	if v, err := strconv.Atoi(c.QueryParam("deadline_days")); err == nil && v > 0 {
		deadlineDays = v
	}

	// Generate embedding for semantic search; keyword search is the fallback.
	var queryEmbedding []float32
	if q != "" {
		aiCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		vec, err := s.AI.GenerateEmbedding(aiCtx, q)
		if err != nil {
			c.Logger().Errorf("Failed to generate query embedding: %v", err)
		} else {
			queryEmbedding = vec
		}
	}

	result, err := s.Store.ListTenders(c.Request().Context(), db.ListParams{
		Query:          q,
		QueryEmbedding: queryEmbedding,
		Source:         c.QueryParam("source"),
		Purchaser:      c.QueryParam("purchaser"),
		PurchaserType:  splitCSV(c.QueryParam("purchaser_type")),
		Area:           splitCSV(c.QueryParam("area")),
		Country:        splitCSV(c.QueryParam("country")),
		Categories:     c.QueryParams()["categories"],
		MinBudget:      minBudget,
		MaxBudget:      maxBudget,
		DeadlineDays:   deadlineDays,
		Status:         c.QueryParam("status"),
		SortBy:         c.QueryParam("sort"),
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		c.Logger().Errorf("Failed to list tenders: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetSources(c echo.Context) error {
	sources, err := s.Store.GetSources(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, sources)
}

func (s *Server) handleGetStats(c echo.Context) error {
	stats, err := s.Store.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleGetTender(c echo.Context) error {
	id := c.Param("id")
	tender, err := s.Store.GetTender(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	return c.JSON(http.StatusOK, tender)
}

func (s *Server) handleClassifyTender(c echo.Context) error {
	ctx := c.Request().Context()
	tender, err := s.Store.GetTender(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	result, err := ai.ClassifyTender(ctx, s.AI, tender.Title, tender.Purchaser, tender.Summary)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if err := s.Store.UpdateTenderClassification(ctx, tender.ID.String(), result.Categories, result.Keywords, result.PurchaserType); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleTriggerIngest(c echo.Context) error {
	urlStr := c.QueryParam("url")
	if urlStr == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "url param required"})
	}

	u, err := url.Parse(urlStr)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid URL scheme"})
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "URL host is required"})
	}
	if host == "localhost" || host == "127.0.0.1" || host == "::1" || strings.HasSuffix(host, ".local") {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Internal network access forbidden"})
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unable to resolve URL host"})
	}
	if len(ips) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "URL host resolved to no addresses"})
	}
	for _, ip := range ips {
		if isPrivateOrSpecialIP(ip) {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Internal network access forbidden"})
		}
	}

	pipeline := ingest.NewPipeline(s.DB, ingest.NewHTTPFetcher(), s.AI)
	if err := pipeline.RunURL(c.Request().Context(), urlStr); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Ingestion complete", "url": urlStr})
}

func (s *Server) handleIngestSourceByID(c echo.Context) error {
	pipeline := ingest.NewPipeline(s.DB, nil, s.AI)

	stats, err := pipeline.IngestSource(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("%s ingestion complete", c.Param("id")),
		"stats":   stats,
	})
}

func (s *Server) handleIngestAll(c echo.Context) error {
	pipeline := ingest.NewPipeline(s.DB, nil, s.AI)

	results, err := pipeline.IngestAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "All registry sources ingestion complete",
		"results": results,
	})
}

func (s *Server) handleIngestRuns(c echo.Context) error {
	limit := 20
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}
	runs, err := s.Store.RecentIngestRuns(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, runs)
}

func (s *Server) handleRecomputeStatus(c echo.Context) error {
	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Status == "running" {
		job := s.runningJob
		s.jobMu.Unlock()
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":  "A recompute job is already running",
			"job_id": job.ID,
		})
	}

	batchSize := 500
	if raw := strings.TrimSpace(c.QueryParam("batch_size")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 5000 {
			batchSize = parsed
		}
	}

	// context.WithoutCancel detaches from the HTTP lifecycle but preserves
	// trace values. A timeout bounds the run.
	jobCtx, jobCancel := context.WithTimeout(
		context.WithoutCancel(c.Request().Context()), 30*time.Minute,
	)

	jobID := uuid.New().String()[:8]
	job := &backgroundJob{
		ID:        jobID,
		Status:    "running",
		StartedAt: time.Now(),
		Cancel:    jobCancel,
	}
	s.runningJob = job
	s.jobMu.Unlock()

	// Runs in a background goroutine; the request returns 202 immediately.
	go func() {
		defer jobCancel()
		pipeline := ingest.NewPipeline(s.DB, nil, s.AI)

		statusCounts, statusUpdated, err := pipeline.RecomputeStatuses(jobCtx, batchSize)
		if err != nil {
			s.jobMu.Lock()
			job.Status = "failed"
			job.Error = err.Error()
			job.EndedAt = time.Now()
			s.jobMu.Unlock()
			log.Printf("[recompute-job %s] failed: %v", jobID, err)
			return
		}

		s.jobMu.Lock()
		job.Status = "completed"
		job.EndedAt = time.Now()
		job.Result = map[string]interface{}{
			"status_updated":  statusUpdated,
			"status_counts":   statusCounts,
			"batch_size_used": batchSize,
		}
		s.jobMu.Unlock()
		log.Printf("[recompute-job %s] completed: updated=%d", jobID, statusUpdated)
	}()

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message": "Recompute job started",
		"job_id":  jobID,
		"poll":    fmt.Sprintf("/api/v1/admin/job/%s", jobID),
	})
}

func (s *Server) handleJobStatus(c echo.Context) error {
	queried := c.Param("id")
	s.jobMu.Lock()
	job := s.runningJob
	s.jobMu.Unlock()

	if job == nil || job.ID != queried {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	s.jobMu.Lock()
	resp := map[string]interface{}{
		"id":         job.ID,
		"status":     job.Status,
		"started_at": job.StartedAt,
	}
	if !job.EndedAt.IsZero() {
		resp["ended_at"] = job.EndedAt
		resp["duration"] = job.EndedAt.Sub(job.StartedAt).String()
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	s.jobMu.Unlock()

	return c.JSON(http.StatusOK, resp)
}

// Protected Handlers

func (s *Server) handleWatchTender(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	tenderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid tender ID"})
	}

	if err := s.AuthService.WatchTender(ctx, userID, tenderID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to watch tender"})
	}

	return c.NoContent(http.StatusOK)
}

func (s *Server) handleUnwatchTender(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	tenderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid tender ID"})
	}

	if err := s.AuthService.UnwatchTender(ctx, userID, tenderID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to unwatch tender"})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "unwatched"})
}

func (s *Server) handleGetWatchlist(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	tenders, err := s.AuthService.Watchlist(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch watchlist"})
	}

	if tenders == nil {
		tenders = []models.Tender{}
	}

	return c.JSON(http.StatusOK, tenders)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func isPrivateOrSpecialIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsMulticast() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return true
	}

	if ip4 := ip.To4(); ip4 != nil {
		if ip4[0] == 100 && ip4[1]&0xC0 == 64 {
			return true
		}
		if ip4[0] == 169 && ip4[1] == 254 {
			return true
		}
	}

	return false
}

func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		secret, err := adminSecret()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server admin configuration error"})
		}

		authHeader := c.Request().Header.Get("Authorization")
		adminHeader := c.Request().Header.Get("X-Admin-Secret")

		if adminHeader == secret {
			return next(c)
		}
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
			if authHeader[7:] == secret {
				return next(c)
			}
		}

		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized admin access"})
	}
}

func adminSecret() (string, error) {
	adminSecretOnce.Do(func() {
		secret := strings.TrimSpace(os.Getenv("ADMIN_SECRET"))
		if secret != "" {
			adminSecretRuntime = secret
			return
		}

		buf := make([]byte, 48)
		if _, err := rand.Read(buf); err != nil {
			adminSecretErr = fmt.Errorf("failed to generate ADMIN_SECRET fallback: %w", err)
			return
		}

		adminSecretRuntime = base64.RawURLEncoding.EncodeToString(buf)
		log.Print("ADMIN_SECRET is not set; using ephemeral in-memory fallback secret")
	})

	if adminSecretErr != nil {
		return "", adminSecretErr
	}
	if adminSecretRuntime == "" {
		return "", fmt.Errorf("admin secret unavailable")
	}

	return adminSecretRuntime, nil
}
