package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/alimtalk/internal/middleware"
	"github.com/xxxsen/alimtalk/internal/pkg/errcode"
	appErr "github.com/xxxsen/alimtalk/internal/pkg/errors"
	"github.com/xxxsen/alimtalk/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.RequestIDKey)
	fields := []zap.Field{
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	}
	var unparsable *appErr.UnparsableResponseError
	if errors.As(err, &unparsable) {
		fields = append(fields, zap.String("raw", truncateRaw(unparsable.Raw)))
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed", fields...)
	// Availability failures win over ErrInvalid raised below the service boundary.
	switch {
	case errors.Is(err, appErr.ErrRetrievalUnavailable):
		response.Error(c, errcode.ErrRetrievalUnavailable, "policy retrieval unavailable")
	case errors.Is(err, appErr.ErrGenerationUnavailable):
		response.Error(c, errcode.ErrGenerationUnavailable, "template generation unavailable")
	case errors.Is(err, appErr.ErrUnparsableResponse):
		response.Error(c, errcode.ErrUnparsableResponse, "model response could not be parsed")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}

const maxLoggedRawRunes = 2000

func truncateRaw(raw string) string {
	runes := []rune(raw)
	if len(runes) <= maxLoggedRawRunes {
		return raw
	}
	return string(runes[:maxLoggedRawRunes]) + "...(truncated)"
}
