package ops

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zero-community/multibot/src/multibot/status"
)

// New builds the read-only ops surface: liveness plus a snapshot of the
// fleet's broadcast state.
func New(controller *status.Controller) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())

	g.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	g.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, controller.Snapshot())
	})

	return g
}
