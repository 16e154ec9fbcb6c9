package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/middleware"
	"github.com/xxxsen/docqa/internal/pkg/errcode"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
	"github.com/xxxsen/docqa/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, code, msg := classifyError(err)
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed")
	} else {
		logger.Warn("request rejected")
	}
	response.Error(c, status, code, msg)
}

// classifyError maps an error chain to the HTTP status, error code and
// client message. Deadline errors are checked before upstream ones since
// provider failures wrap the context error.
func classifyError(err error) (int, string, string) {
	var verr *appErr.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errcode.InvalidArgument, verr.Error()
	case appErr.IsInvalid(err):
		return http.StatusBadRequest, errcode.InvalidArgument, "invalid request"
	case errors.Is(err, appErr.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, errcode.TooLarge, "document too large"
	case errors.Is(err, appErr.ErrUnsupportedContent):
		return http.StatusUnprocessableEntity, errcode.UnsupportedContent, "document content could not be extracted"
	case appErr.IsNotFound(err):
		return http.StatusNotFound, errcode.NotFound, "not found"
	case errors.Is(err, appErr.ErrUnavailable):
		return http.StatusServiceUnavailable, errcode.Unavailable, "service not configured"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errcode.Timeout, "upstream timed out"
	case errors.Is(err, appErr.ErrUpstream):
		return http.StatusBadGateway, errcode.Upstream, "upstream service failed"
	default:
		return http.StatusInternalServerError, errcode.Internal, "internal error"
	}
}
