package apigateway

import (
	"github.com/gin-gonic/gin"

	"voice-dataset-collector/internal/collection"
)

// SetupRouter assembles the Gin router over the collection handlers. All
// routes are public; the collector runs without authentication.
func SetupRouter(h *collection.Handler) *gin.Engine {
	router := gin.Default()

	router.POST("/upload", h.Upload)
	router.GET("/stats", h.Stats)

	router.GET("/download-csv", h.DownloadCSV)
	router.GET("/download-audio/:filename", h.DownloadAudio)
	router.GET("/download-all", h.DownloadAll)

	router.GET("/debug", h.Debug)
	router.GET("/health", h.Health)

	return router
}
