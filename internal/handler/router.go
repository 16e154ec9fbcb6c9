package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docqa/internal/metrics"
)

type RouterDeps struct {
	RAG    *RAGHandler
	Health *HealthHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/", deps.Health.Root)
	api.GET("/favicon.ico", deps.Health.Favicon)
	api.GET("/metrics", gin.WrapH(metrics.Handler()))
	api.POST("/process_document", deps.RAG.ProcessDocument)
	api.POST("/chat", deps.RAG.Chat)
}
