package api

import (
	"errors"
	"net/http"

	"github.com/cozy-creator/product-studio/internal/app"
	"github.com/cozy-creator/product-studio/internal/credits"
	"github.com/cozy-creator/product-studio/internal/db/repository"
	"github.com/cozy-creator/product-studio/internal/pipeline"
	"github.com/cozy-creator/product-studio/internal/services/filestorage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Message   string   `json:"message"`
	Reason    string   `json:"reason,omitempty"`
	Issues    []string `json:"issues,omitempty"`
	Remaining *int     `json:"remaining,omitempty"`
}

func getApp(c *gin.Context) *app.App {
	return c.MustGet("app").(*app.App)
}

// abortWithError writes the status and payload an error maps to.
func abortWithError(c *gin.Context, err error) {
	var (
		validation *pipeline.ValidationError
		denied     *pipeline.AdmissionDenied
	)

	switch {
	case errors.As(err, &validation):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request", Issues: validation.Issues})
	case errors.As(err, &denied) && denied.Reason == pipeline.ReasonConcurrencyLimit:
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Message: err.Error(), Reason: denied.Reason})
	case errors.As(err, &denied):
		remaining := denied.Remaining
		c.AbortWithStatusJSON(http.StatusPaymentRequired, ErrorResponse{Message: err.Error(), Reason: denied.Reason, Remaining: &remaining})
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, filestorage.ErrFileNotFound), errors.Is(err, credits.ErrNothingToRefund):
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Message: err.Error()})
	case errors.Is(err, credits.ErrAlreadyRefunded):
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Message: err.Error()})
	default:
		getApp(c).Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Message: "internal server error"})
	}
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Message: message})
}
