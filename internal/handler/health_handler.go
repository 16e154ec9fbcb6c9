package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docqa/internal/pkg/response"
)

type HealthHandler struct {
	faviconPath string
}

func NewHealthHandler(faviconPath string) *HealthHandler {
	return &HealthHandler{faviconPath: faviconPath}
}

func (h *HealthHandler) Root(c *gin.Context) {
	response.Success(c, gin.H{"message": "docqa is running"})
}

// Favicon serves the configured icon, or an empty 204 when none is set.
func (h *HealthHandler) Favicon(c *gin.Context) {
	if h.faviconPath == "" {
		c.Status(http.StatusNoContent)
		return
	}
	if info, err := os.Stat(h.faviconPath); err != nil || info.IsDir() {
		c.Status(http.StatusNoContent)
		return
	}
	c.File(h.faviconPath)
}
