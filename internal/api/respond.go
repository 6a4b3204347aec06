package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/water-ml-server/internal/domain"
)

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidDiseaseType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the uniform error body. Internal errors are not echoed to the
// client verbatim; the taxonomy message is enough.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.WithField("error", err).Error("Request failed")
		switch {
		case errors.Is(err, domain.ErrAggregationFailed):
			msg = "Failed to compute disease statistics"
		case errors.Is(err, domain.ErrForecastStore):
			msg = "Forecast store operation failed"
		default:
			msg = "Internal server error"
		}
	}

	apiErr := domain.NewAPIError(domain.ErrorCode(err), msg, c.GetString("request_id"))
	c.JSON(status, gin.H{
		"error":      apiErr.Message,
		"code":       apiErr.Code,
		"timestamp":  apiErr.Timestamp,
		"request_id": apiErr.RequestID,
	})
}

// ok writes the success envelope.
func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data, "status": "success"})
}

// badRequest writes a 400 with the given message.
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": msg,
		"code":  domain.CodeInvalidInput,
	})
}
