package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agenthands/lorekeeper/internal/core"
	"github.com/agenthands/lorekeeper/internal/core/model"
	"github.com/agenthands/lorekeeper/internal/core/scan"
	"github.com/agenthands/lorekeeper/internal/export"
	"github.com/agenthands/lorekeeper/internal/store"
)

type Server struct {
	Detector *core.Detector
	Store    store.Store
	Logger   *zap.Logger
}

func NewServer(detector *core.Detector, st store.Store) *Server {
	return &Server{
		Detector: detector,
		Store:    st,
		Logger:   zap.L(),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	p := r.Group("/profiles/:profileID")
	p.POST("/facts", s.IngestFact)
	p.GET("/facts", s.ListFacts)
	p.POST("/facts/:factID/check", s.CheckFact)
	p.POST("/scans", s.StartScan)
	p.GET("/scans", s.ScanStatus)
	p.DELETE("/scans", s.AcceptScan)
	p.GET("/export", s.Export)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("starting server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

type IngestFactRequest struct {
	Content      string `json:"content" binding:"required"`
	Confidence   *int   `json:"confidence"`
	Importance   int    `json:"importance"`
	SupportCount int    `json:"support_count"`
	Type         string `json:"type"`
	Source       string `json:"source"`
	IsProtected  bool   `json:"is_protected"`
}

func (s *Server) IngestFact(c *gin.Context) {
	var req IngestFactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	fact := model.Fact{
		ProfileID:    c.Param("profileID"),
		Content:      req.Content,
		Confidence:   model.DefaultConfidence,
		Importance:   req.Importance,
		SupportCount: req.SupportCount,
		Type:         req.Type,
		Source:       req.Source,
		IsProtected:  req.IsProtected,
	}
	if req.Confidence != nil {
		fact.Confidence = *req.Confidence
	}

	group, err := s.Detector.IngestFact(c.Request.Context(), &fact)
	if err != nil {
		s.Logger.Error("failed to ingest fact", zap.String("profile_id", fact.ProfileID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store fact"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"fact": fact, "group": group})
}

func (s *Server) ListFacts(c *gin.Context) {
	filter := store.FactFilter{Status: model.FactStatus(c.Query("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := c.Query(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + key})
				return
			}
			*dst = n
		}
	}

	facts, err := s.Store.ListFacts(c.Request.Context(), c.Param("profileID"), filter)
	if err != nil {
		s.Logger.Error("failed to list facts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list facts"})
		return
	}
	if facts == nil {
		facts = []model.Fact{}
	}
	c.JSON(http.StatusOK, gin.H{"facts": facts})
}

func (s *Server) CheckFact(c *gin.Context) {
	result, group, err := s.Detector.CheckFact(c.Request.Context(), c.Param("profileID"), c.Param("factID"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Fact not found"})
		return
	}
	if err != nil {
		s.Logger.Error("failed to check fact", zap.String("fact_id", c.Param("factID")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check fact"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result, "proposed_group": group})
}

func (s *Server) StartScan(c *gin.Context) {
	job, err := s.Detector.StartScan(c.Request.Context(), c.Param("profileID"))
	if errors.Is(err, scan.ErrScanRunning) || errors.Is(err, scan.ErrScanUnaccepted) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "job": job})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start scan"})
		return
	}
	c.JSON(http.StatusAccepted, job)
}

func (s *Server) ScanStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Detector.Scans.Status(c.Param("profileID")))
}

func (s *Server) AcceptScan(c *gin.Context) {
	job, err := s.Detector.Scans.Accept(c.Param("profileID"))
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "job": job})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if _, err := export.Write(c.Request.Context(), &buf, s.Store, c.Param("profileID"), format); err != nil {
		s.Logger.Error("failed to export facts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export facts"})
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == export.FormatText {
		contentType = "text/plain; charset=utf-8"
	}
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
