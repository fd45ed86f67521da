package api

import (
	"github.com/gin-gonic/gin"

	"veritext/pipeline"
)

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(runner *pipeline.Runner) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	RegisterOriginalityRoutes(r, runner)
	RegisterHealthRoutes(r)
	return r
}
