package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// PageHandler отдает лендинг исследования и liveness probe.
type PageHandler struct {
	landingPage string
}

func NewPageHandler(landingPage string) *PageHandler {
	return &PageHandler{landingPage: landingPage}
}

func (h *PageHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Index)
	r.GET("/healthz", h.Health)
}

func (h *PageHandler) Index(c *gin.Context) {
	if h.landingPage == "" {
		c.String(http.StatusOK, "NJ Energy Study")
		return
	}
	if _, err := os.Stat(h.landingPage); err != nil {
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	c.File(h.landingPage)
}

func (h *PageHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
