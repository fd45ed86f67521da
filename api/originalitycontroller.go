package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"veritext/pipeline"
	"veritext/store"
)

// RegisterOriginalityRoutes registers the originality analysis endpoints.
func RegisterOriginalityRoutes(r *gin.Engine, runner *pipeline.Runner) {
	g := r.Group("/api/articles/:id")
	g.POST("/originality-check", handleOriginalityCheck(runner))
	g.POST("/similarity", handleSimilarityCheck(runner))
	g.GET("/originality-report", handleLatestReport(runner))
}

// OriginalityCheckRequest carries the optional run attribution.
type OriginalityCheckRequest struct {
	RunBy string `json:"run_by"`
}

// SimilarityCheckRequest filters the lighter TF-IDF-only check.
type SimilarityCheckRequest struct {
	Threshold float64 `json:"threshold"`
	Limit     int     `json:"limit"`
}

// handleOriginalityCheck runs the full pipeline synchronously. The
// request blocks until the report is persisted; expect seconds to tens
// of seconds, dominated by scraping and the external tool.
func handleOriginalityCheck(runner *pipeline.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OriginalityCheckRequest
		// Body is optional; ignore bind errors from empty payloads.
		_ = c.ShouldBindJSON(&req)

		resp, err := runner.RunOriginalityCheck(c.Request.Context(), c.Param("id"), req.RunBy)
		if err != nil {
			respondPipelineError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func handleSimilarityCheck(runner *pipeline.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SimilarityCheckRequest
		// An absent body means defaults, same as the originality check.
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Threshold < 0 || req.Threshold > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be in [0,1]"})
			return
		}
		if req.Limit <= 0 {
			req.Limit = 50
		}

		resp, err := runner.RunSimilarityCheck(c.Request.Context(), c.Param("id"), req.Threshold, req.Limit)
		if err != nil {
			respondPipelineError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func handleLatestReport(runner *pipeline.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := runner.LatestReport(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondPipelineError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// respondPipelineError maps the pipeline's error taxonomy onto HTTP
// statuses. Anything unexpected is logged and hidden behind a generic
// message.
func respondPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
	case errors.Is(err, pipeline.ErrNothingToAnalyze):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("Originality check failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "originality check failed"})
	}
}
