package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/posbindu-risk-engine/internal/domain"
)

var registerOnce sync.Once

// registerValidations adds the custom binding tags used by request types.
func registerValidations(logger *logrus.Logger) {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		if err != nil {
			logger.WithError(err).Error("Failed to register notblank validation")
		}
	})
}

// statusForCode maps an error code to its HTTP status.
func statusForCode(code string) int {
	switch code {
	case domain.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case domain.ErrCodeInvalidMeasurement, domain.ErrCodeIncompleteSnapshot,
		domain.ErrCodeUnsupportedAnalyte, domain.ErrCodeUnsupportedCategoryInput:
		return http.StatusUnprocessableEntity
	case domain.ErrCodeInsufficientStock:
		return http.StatusConflict
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeRateLimit:
		return http.StatusTooManyRequests
	case domain.ErrCodeDatabaseError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an APIError. Infrastructure faults are logged
// and their details withheld from the client.
func (s *Server) respondError(c *gin.Context, err error) {
	code := domain.ErrorCode(err)
	requestID := c.GetString("correlation_id")

	var apiErr *domain.APIError
	switch {
	case domain.IsInputError(err):
		apiErr = domain.NewAPIError(code, "Invalid request", err.Error(), requestID)
	case code == domain.ErrCodeNotFound:
		apiErr = domain.NewAPIError(code, "Resource not found", err.Error(), requestID)
	default:
		s.logger.WithError(err).WithFields(logrus.Fields{
			"correlation_id": requestID,
			"error_code":     code,
		}).Error("Request failed")
		apiErr = domain.NewAPIError(code, "Internal error", "", requestID)
	}

	c.AbortWithStatusJSON(statusForCode(code), apiErr)
}

// respondBindError writes a 400 for malformed or invalid request bodies.
func (s *Server) respondBindError(c *gin.Context, err error) {
	details := err.Error()

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		details = strings.Join(parts, "; ")
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewAPIError(
		domain.ErrCodeInvalidInput,
		"Invalid request body",
		details,
		c.GetString("correlation_id"),
	))
}
