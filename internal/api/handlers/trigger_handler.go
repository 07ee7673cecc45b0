package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/andresuchdata/popsync/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Ingester runs one ingest invocation.
type Ingester interface {
	Run(ctx context.Context) (domain.IngestResult, error)
}

// Reporter runs one report invocation.
type Reporter interface {
	Run(ctx context.Context) (*domain.Summary, error)
}

// TriggerHandler exposes the ingest and report jobs to an external
// scheduler. Only one job runs at a time in this process.
type TriggerHandler struct {
	ingester Ingester
	reporter Reporter
	running  *semaphore.Weighted
}

func NewTriggerHandler(ingester Ingester, reporter Reporter) *TriggerHandler {
	return &TriggerHandler{
		ingester: ingester,
		reporter: reporter,
		running:  semaphore.NewWeighted(1),
	}
}

func (h *TriggerHandler) Ingest(c *gin.Context) {
	if !h.running.TryAcquire(1) {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "a job is already running"})
		return
	}
	defer h.running.Release(1)

	result, err := h.ingester.Run(c.Request.Context())
	if err != nil {
		h.fail(c, "ingest", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
}

func (h *TriggerHandler) Report(c *gin.Context) {
	if !h.running.TryAcquire(1) {
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "a job is already running"})
		return
	}
	defer h.running.Release(1)

	summary, err := h.reporter.Run(c.Request.Context())
	if err != nil {
		h.fail(c, "report", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "summary": summary})
}

func (h *TriggerHandler) fail(c *gin.Context, job string, err error) {
	status := StatusFor(err)
	log.Error().Err(err).Str("job", job).Int("status", status).Msg("job failed")
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDataFormat):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
