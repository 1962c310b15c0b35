package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// ServeStaticFiles mounts the marketplace SPA when a build output is
// present. API and websocket routes keep precedence; everything else
// falls back to index.html so client-side routing works on reload.
func ServeStaticFiles(router *gin.Engine) {
	distPath := os.Getenv("WEB_DIST")
	if distPath == "" {
		distPath = "./web/dist"
	}

	index := filepath.Join(distPath, "index.html")
	if _, err := os.Stat(index); err != nil {
		router.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		})
		return
	}

	router.StaticFile("/", index)
	router.Static("/assets", filepath.Join(distPath, "assets"))

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || strings.HasPrefix(c.Request.URL.Path, "/ws/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.File(index)
	})
}
