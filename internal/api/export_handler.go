package api

import (
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hmmsynth/domain/modeldef"
	"hmmsynth/internal"
	"hmmsynth/internal/errors"
	"hmmsynth/internal/export"
)

// SpecResolver looks up a named collection spec, e.g. a preset
type SpecResolver func(name string) (modeldef.CollectionSpec, error)

// ExportRequest is the body of POST /api/exports. Exactly one of Preset or
// Spec selects the collection.
type ExportRequest struct {
	Preset    string                   `json:"preset"`
	Spec      *modeldef.CollectionSpec `json:"spec"`
	Count     int                      `json:"count" binding:"gte=0"`
	Workers   int                      `json:"workers" binding:"gte=0,lte=256"`
	BatchSize int                      `json:"batch_size" binding:"gte=0"`
	Format    string                   `json:"format" binding:"omitempty,oneof=csv xlsx"`
}

// ExportHandler serves the export job API
type ExportHandler struct {
	jobs      *JobManager
	hub       *SSEHub
	resolve   SpecResolver
	logger    *internal.Logger
	keepAlive time.Duration
}

// NewExportHandler creates a new export handler
func NewExportHandler(jobs *JobManager, hub *SSEHub, resolve SpecResolver, logger *internal.Logger) *ExportHandler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ExportHandler{
		jobs:      jobs,
		hub:       hub,
		resolve:   resolve,
		logger:    logger,
		keepAlive: 30 * time.Second,
	}
}

// CreateExport validates the request and starts a background export
func (eh *ExportHandler) CreateExport(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}

	spec, err := eh.selectSpec(req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := spec.Validate(); err != nil {
		abortWithError(c, err)
		return
	}
	// Compile every model up front so bad models fail the request, not the job.
	for i, m := range spec.Models {
		if _, err := m.Generator(rand.NewPCG(0, 0)); err != nil {
			abortWithError(c, errors.Wrapf(err, "models[%d]", i))
			return
		}
	}

	format := req.Format
	if format == "" {
		format = export.FormatCSV
	}
	job := eh.jobs.Start(spec, format, export.Options{
		Count:     req.Count,
		Workers:   req.Workers,
		BatchSize: req.BatchSize,
	})
	c.Header("Location", "/api/exports/"+job.ID)
	c.JSON(http.StatusAccepted, job)
}

func (eh *ExportHandler) selectSpec(req ExportRequest) (modeldef.CollectionSpec, error) {
	switch {
	case req.Preset != "" && req.Spec != nil:
		return modeldef.CollectionSpec{}, errors.InvalidInput("preset and spec are mutually exclusive")
	case req.Spec != nil:
		return *req.Spec, nil
	case req.Preset != "":
		if eh.resolve == nil {
			return modeldef.CollectionSpec{}, errors.InvalidInput("presets are not available")
		}
		spec, err := eh.resolve(req.Preset)
		if err != nil {
			return modeldef.CollectionSpec{}, errors.WithCode(errors.CodeNotFound, err)
		}
		return spec, nil
	default:
		return modeldef.CollectionSpec{}, errors.InvalidInput("one of preset or spec is required")
	}
}

// ListExports returns every job, oldest first
func (eh *ExportHandler) ListExports(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": eh.jobs.List()})
}

// GetExport returns one job snapshot
func (eh *ExportHandler) GetExport(c *gin.Context) {
	job, ok := eh.jobs.Get(c.Param("id"))
	if !ok {
		abortWithError(c, errors.NotFound("export job "+c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, job)
}

// StreamEvents streams job events as Server-Sent Events until the job
// finishes or the client goes away.
func (eh *ExportHandler) StreamEvents(c *gin.Context) {
	id := c.Param("id")
	if _, ok := eh.jobs.Get(id); !ok {
		abortWithError(c, errors.NotFound("export job "+id))
		return
	}

	events, unsubscribe := eh.hub.Subscribe(id)
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// Subscribed before the snapshot, so nothing after it is missed.
	job, _ := eh.jobs.Get(id)
	status := newEvent(id, EventStatus, job.Done, job.Total)
	status.Error = job.Error
	c.SSEvent(EventStatus, status)
	c.Writer.Flush()
	if job.Status != JobRunning {
		return
	}

	ticker := time.NewTicker(eh.keepAlive)
	defer ticker.Stop()
	ctx := c.Request.Context()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(event.EventType, event)
			c.Writer.Flush()
			if event.Terminal() {
				return
			}
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"status": "alive", "timestamp": time.Now().Format(time.RFC3339)})
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func abortWithError(c *gin.Context, err error) {
	code := errors.GetCode(errors.FromDomain(err))
	c.AbortWithStatusJSON(errors.HTTPStatus(code), gin.H{"code": code, "error": err.Error()})
}

// NewRouter mounts the export handler under /api/exports
func NewRouter(eh *ExportHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	exports := router.Group("/api/exports")
	exports.POST("", eh.CreateExport)
	exports.GET("", eh.ListExports)
	exports.GET("/:id", eh.GetExport)
	exports.GET("/:id/events", eh.StreamEvents)
	return router
}
