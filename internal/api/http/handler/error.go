package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/sendlens/sendlens-server/internal/apierrors"
	"github.com/sendlens/sendlens-server/internal/model"
)

// handleError writes err as a JSON error body. Known sentinels and APIErrors
// keep their status and code; everything else collapses into an opaque 500.
func handleError(c *gin.Context, err error) {
	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		switch {
		case errors.Is(err, model.ErrNotFound):
			apiErr = apierrors.NewErrNotFound("record")
		case errors.Is(err, model.ErrNeedsReconnect):
			apiErr = apierrors.NewErrNeedsReconnect()
		case errors.Is(err, model.ErrUpstreamAuth):
			apiErr = apierrors.NewErrUpstreamAuth()
		case errors.Is(err, model.ErrUpstreamRateLimit):
			apiErr = apierrors.NewErrUpstreamRateLimit()
		case errors.Is(err, model.ErrUpstreamUnavailable):
			apiErr = apierrors.NewErrUpstreamUnavailable()
		default:
			apiErr = apierrors.NewErrInternalServerError(err)
		}
	}

	// The original error goes to the gin error list for the logging
	// middleware; the response body carries only the categorized form.
	_ = c.Error(err)

	c.AbortWithStatusJSON(apiErr.Status, gin.H{
		"error": gin.H{"code": apiErr.Code, "message": apiErr.Message},
	})
}
