package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/temcen/shoprec/internal/validation"
)

// ValidationMiddleware checks request bodies against the embedded JSON schemas.
type ValidationMiddleware struct {
	validator *validation.SchemaValidator
}

func NewValidationMiddleware(validator *validation.SchemaValidator) *ValidationMiddleware {
	return &ValidationMiddleware{validator: validator}
}

func (vm *ValidationMiddleware) ValidateFeedback() gin.HandlerFunc {
	return vm.validateRequestBody(validation.SchemaRecommendationFeedback)
}

func (vm *ValidationMiddleware) validateRequestBody(schemaName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			vm.sendValidationError(c, "BODY_READ_ERROR", "Failed to read request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		if len(bytes.TrimSpace(bodyBytes)) == 0 {
			vm.sendValidationError(c, "EMPTY_BODY", "Request body is required")
			return
		}

		result := vm.validator.Validate(schemaName, bodyBytes)
		if !result.Valid {
			apiError := result.ToAPIError()
			if errorObj, ok := apiError["error"].(map[string]interface{}); ok {
				errorObj["timestamp"] = time.Now().UTC().Format(time.RFC3339)
				errorObj["path"] = c.Request.URL.Path
				errorObj["method"] = c.Request.Method
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, apiError)
			return
		}

		c.Next()
	}
}

func (vm *ValidationMiddleware) sendValidationError(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"path":      c.Request.URL.Path,
			"method":    c.Request.Method,
		},
	})
}
