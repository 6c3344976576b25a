package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"maro_automation/comfort-studio/models"
	"maro_automation/comfort-studio/pipeline"
	"maro_automation/comfort-studio/store"
	"maro_automation/comfort-studio/timeline"
)

const (
	Version          = "1.0.0"
	defaultListLimit = 20
	maxListLimit     = 200
)

// Runner starts a production run under a given ID
type Runner interface {
	RunWithID(ctx context.Context, runID string, req pipeline.Request) (*pipeline.Result, error)
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// TimelineResponse previews the segments of a content type
type TimelineResponse struct {
	ContentType  models.ContentType   `json:"content_type"`
	Label        string               `json:"label"`
	TotalSeconds float64              `json:"total_seconds"`
	Segments     []models.SegmentView `json:"segments"`
}

// Server is the HTTP control API
type Server struct {
	ctx     context.Context
	runner  Runner
	records store.Repository
	config  *models.StudioConfig
	runs    *Registry
	logger  logrus.FieldLogger
	newID   func() string

	// slot lets one pipeline run at a time
	slot chan struct{}
	wg   sync.WaitGroup
}

// New creates the API. Background runs use ctx and stop when it is
// cancelled. records may be nil.
func New(ctx context.Context, runner Runner, runs *Registry, records store.Repository, cfg *models.StudioConfig, logger logrus.FieldLogger) *Server {
	if runs == nil {
		runs = NewRegistry()
	}
	if cfg == nil {
		cfg = models.DefaultConfig()
	}
	return &Server{
		ctx:     ctx,
		runner:  runner,
		records: records,
		config:  cfg,
		runs:    runs,
		logger:  logger,
		newID:   uuid.NewString,
		slot:    make(chan struct{}, 1),
	}
}

// Handler builds the gin router
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/health", s.healthCheck)

	api := r.Group("/api")
	api.POST("/runs", s.startRun)
	api.GET("/runs", s.listRuns)
	api.GET("/runs/:id", s.getRun)
	api.GET("/timeline/:type", s.previewTimeline)
	api.GET("/records", s.listRecords)
	api.GET("/records/:id", s.getRecord)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then waits for
// running pipelines
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("🎬 maro control API starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Wait()
	return err
}

// Wait blocks until every background run has finished
func (s *Server) Wait() {
	s.wg.Wait()
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   Version,
	})
}

func (s *Server) startRun(c *gin.Context) {
	var body struct {
		ContentType string `json:"content_type" binding:"required"`
		Topic       string `json:"topic"`
		Upload      bool   `json:"upload"`
		Privacy     string `json:"privacy"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: err.Error()})
		return
	}
	ct, err := models.ParseContentType(body.ContentType)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_content_type", Message: err.Error()})
		return
	}
	switch body.Privacy {
	case "", "public", "unlisted", "private":
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_privacy", Message: "privacy must be public, unlisted or private"})
		return
	}

	req := pipeline.Request{Type: ct, Topic: body.Topic, Upload: body.Upload, Privacy: body.Privacy}
	id := s.newID()
	info := s.runs.add(id, req)

	s.wg.Add(1)
	go s.execute(id, req)

	s.logger.WithFields(logrus.Fields{"run_id": id, "content_type": ct}).Info("📥 run queued")
	c.JSON(http.StatusAccepted, info)
}

func (s *Server) execute(id string, req pipeline.Request) {
	defer s.wg.Done()

	select {
	case s.slot <- struct{}{}:
	case <-s.ctx.Done():
		s.runs.finish(id, nil, s.ctx.Err())
		return
	}
	defer func() { <-s.slot }()

	s.runs.SetStage(id, "starting")
	result, err := s.runner.RunWithID(s.ctx, id, req)
	s.runs.finish(id, result, err)
}

func (s *Server) listRuns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runs": s.runs.List()})
}

func (s *Server) getRun(c *gin.Context) {
	info, ok := s.runs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "run_not_found", Message: "no run with id " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) previewTimeline(c *gin.Context) {
	ct, err := models.ParseContentType(c.Param("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_content_type", Message: err.Error()})
		return
	}
	profile, err := s.config.Profile(ct)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "profile_not_found", Message: err.Error()})
		return
	}

	total := profile.Duration()
	if raw := c.Query("total"); raw != "" {
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_total", Message: "total must be a number of seconds"})
			return
		}
		total = time.Duration(secs * float64(time.Second))
	}

	specs, err := profile.Specs()
	if err == nil {
		var tl timeline.Timeline
		tl, err = timeline.Build(total, specs)
		if err == nil {
			record := &models.ContentRecord{}
			record.SetTimeline(tl)
			c.JSON(http.StatusOK, TimelineResponse{
				ContentType:  ct,
				Label:        ct.Label(),
				TotalSeconds: record.DurationTargetSeconds,
				Segments:     record.SegmentTimeline,
			})
			return
		}
	}
	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "invalid_timeline", Message: err.Error()})
}

func (s *Server) listRecords(c *gin.Context) {
	if s.records == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "records_unavailable", Message: "no record store configured"})
		return
	}
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_limit", Message: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	records, err := s.records.List(c.Request.Context(), limit)
	if err != nil {
		s.logger.WithError(err).Error("failed to list records")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "records_failed", Message: "could not load records"})
		return
	}
	if records == nil {
		records = []*models.ContentRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

func (s *Server) getRecord(c *gin.Context) {
	if s.records == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "records_unavailable", Message: "no record store configured"})
		return
	}
	record, err := s.records.FindByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "record not found"})
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to load record")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "records_failed", Message: "could not load record"})
		return
	}
	c.JSON(http.StatusOK, record)
}
