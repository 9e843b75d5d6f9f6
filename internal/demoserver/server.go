// Package demoserver serves a generated inventory over the same HTTP API the
// dashboard consumes, including refresh sessions streamed as server-sent
// events. It backs the demo command and the end-to-end tests.
package demoserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"osreport/internal/api"
	"osreport/internal/inventory"
	"osreport/internal/progress"
)

const (
	minSessionBuffer = 100
	// sessionTTL bounds how long an unclaimed session stays registered.
	sessionTTL = time.Minute
)

// Options configures a Server.
type Options struct {
	Addr     string
	Token    string // empty disables authentication
	Projects int
	// Pace is the delay between collected resource types during a refresh.
	Pace    time.Duration
	Version api.Version
	Logger  *slog.Logger
	// Fail, when set, decides whether collecting a resource type of a
	// project fails.
	Fail func(project, resourceType string) error
}

// Server is the demo inventory backend.
type Server struct {
	opts   Options
	logger *slog.Logger
	engine *gin.Engine
	now    func() time.Time

	mu       sync.RWMutex
	report   *inventory.Report
	sessions map[string]chan progress.Event

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New builds a server with a freshly generated inventory.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Projects <= 0 {
		opts.Projects = 4
	}
	if opts.Version.Version == "" {
		opts.Version.Version = "dev"
	}
	if opts.Version.GoVersion == "" {
		opts.Version.GoVersion = runtime.Version()
	}

	s := &Server{
		opts:     opts,
		logger:   opts.Logger,
		now:      time.Now,
		sessions: make(map[string]chan progress.Event),
		stop:     make(chan struct{}),
	}
	s.report = Generate(opts.Projects, s.now())
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on opts.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("demo server listening", "addr", s.opts.Addr, "auth", s.opts.Token != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("demo server: %w", err)
	case <-ctx.Done():
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown demo server: %w", err)
	}
	return nil
}

// Close stops running refresh sessions and waits for them to exit.
func (s *Server) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	apiGroup := r.Group("/api")
	apiGroup.GET("/status", s.handleStatus)
	apiGroup.GET("/version", s.handleVersion)

	protected := apiGroup.Group("")
	protected.Use(s.authMiddleware())
	protected.GET("/resources", s.handleResources)
	protected.GET("/projects", s.handleProjects)
	protected.POST("/refresh/progress", s.handleRefresh)
	protected.GET("/progress", s.handleProgress)
	protected.GET("/export/pdf", s.handleExportPDF)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("demo request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"request_id", c.GetHeader("X-Request-ID"),
			"duration", time.Since(start),
		)
	}
}

// requestToken reads the credential from the Authorization header (with or
// without a Bearer prefix), the X-API-Token header or the token query.
func requestToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if h := c.GetHeader("X-API-Token"); h != "" {
		return h
	}
	return c.Query("token")
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	if s.opts.Token == "" {
		s.logger.Warn("demo server token not set, authentication disabled")
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if requestToken(c) != s.opts.Token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Valid API token required. Use Authorization: Bearer <token>, X-API-Token header, or token query parameter",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) currentReport() *inventory.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

func (s *Server) handleStatus(c *gin.Context) {
	report := s.currentReport()
	now := s.now()
	age := now.Sub(report.GeneratedAt)
	c.JSON(http.StatusOK, api.ReportStatus{
		ReportExists:   true,
		LastCheck:      now,
		ReportAgeHours: age.Hours(),
		ReportAgeHuman: humanAge(age),
	})
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, s.opts.Version)
}

func (s *Server) handleResources(c *gin.Context) {
	c.JSON(http.StatusOK, filterReport(s.currentReport(), queryFilter{
		projects:   splitList(c.Query("project")),
		projectIDs: splitList(c.Query("project_id")),
		types:      splitList(c.Query("type")),
		statuses:   splitList(c.Query("status")),
	}))
}

func (s *Server) handleProjects(c *gin.Context) {
	report := s.currentReport()
	c.JSON(http.StatusOK, api.ProjectList{
		Projects:    report.Projects,
		Total:       len(report.Projects),
		GeneratedAt: report.GeneratedAt,
	})
}

func (s *Server) handleExportPDF(c *gin.Context) {
	report := s.currentReport()
	if len(report.Resources) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "No report data available for export",
			"details": "Please refresh the data first",
		})
		return
	}
	data, err := renderPDF(report)
	if err != nil {
		s.logger.Error("pdf export failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to generate PDF",
			"details": err.Error(),
		})
		return
	}
	filename := "openstack_report_" + s.now().Format("2006-01-02_15-04-05") + ".pdf"
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", data)
}

func humanAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "less than a minute"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
