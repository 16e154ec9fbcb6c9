package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
	"github.com/xxxsen/docqa/internal/pkg/response"
)

type RAGService interface {
	Ingest(ctx context.Context, fileURL, userID string) (int, error)
	Chat(ctx context.Context, userID, query string) (string, error)
}

type RAGHandler struct {
	rag RAGService
}

func NewRAGHandler(rag RAGService) *RAGHandler {
	return &RAGHandler{rag: rag}
}

type processDocumentRequest struct {
	FileURL string `form:"file_url" json:"file_url"`
	UserID  string `form:"user_id" json:"user_id"`
}

type chatRequest struct {
	UserID string `form:"user_id" json:"user_id"`
	Query  string `form:"query" json:"query"`
}

// ProcessDocument accepts form or JSON bodies.
func (h *RAGHandler) ProcessDocument(c *gin.Context) {
	var req processDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		handleError(c, appErr.NewValidationError("", "malformed request body"))
		return
	}
	chunks, err := h.rag.Ingest(c.Request.Context(), req.FileURL, req.UserID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "ok", "chunks": chunks})
}

func (h *RAGHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBind(&req); err != nil {
		handleError(c, appErr.NewValidationError("", "malformed request body"))
		return
	}
	answer, err := h.rag.Chat(c.Request.Context(), req.UserID, req.Query)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"answer": answer})
}
