package api

import (
	"fmt"      // Stack formatting
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library

	"event_wallet/internal/apperr" // Service errors
)

// respondError writes the JSON error body for err. The stack is only added
// while gin runs in debug mode, never in release mode.
func respondError(c *gin.Context, err error) {
	svcErr := apperr.From(err)    // Closed set of service errors
	status := svcErr.StatusCode() // HTTP status for the category
	body := gin.H{"error": svcErr.Message, "code": svcErr.Code}
	if gin.IsDebugging() {
		body["stack"] = fmt.Sprintf("%+v", err) // pkg/errors stack when present
	}
	if status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(), // Route that failed
			"code":  svcErr.Code,  // Error code
			"error": err.Error(),  // Full error chain
		}).Error("Request failed")
	}
	c.AbortWithStatusJSON(status, body)
}

// badRequest reports a malformed body
func badRequest(c *gin.Context, msg string) {
	respondError(c, apperr.WithMessage(apperr.ErrInvalidRequest, msg))
}
