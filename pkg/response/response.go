// Package response writes Azure Functions custom handler invoke responses.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// InvokeResponse is the envelope the Functions host expects from a custom handler.
type InvokeResponse struct {
	Outputs     map[string]interface{} `json:"Outputs"`
	Logs        []string               `json:"Logs"`
	ReturnValue interface{}            `json:"ReturnValue"`
}

// ErrorInfo contains error details returned as the ReturnValue of a failed invocation.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

func newInvokeResponse(returnValue interface{}, logs []string) InvokeResponse {
	if logs == nil {
		logs = []string{}
	}
	return InvokeResponse{
		Outputs:     map[string]interface{}{},
		Logs:        logs,
		ReturnValue: returnValue,
	}
}

// Success sends a 200 response; the host marks the invocation as succeeded.
func Success(c *gin.Context, returnValue interface{}, logs ...string) {
	c.JSON(http.StatusOK, newInvokeResponse(returnValue, logs))
}

// Error sends an error response carrying ErrorInfo as the return value.
func Error(c *gin.Context, statusCode int, info ErrorInfo, logs ...string) {
	c.JSON(statusCode, newInvokeResponse(info, logs))
}

// BadRequest sends a 400 error response for a malformed invocation.
func BadRequest(c *gin.Context, message string, logs ...string) {
	Error(c, http.StatusBadRequest, ErrorInfo{Code: "BAD_REQUEST", Message: message}, logs...)
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, ErrorInfo{Code: "NOT_FOUND", Message: message})
}

// InternalError sends a 500 error response so the host applies its retry policy.
func InternalError(c *gin.Context, info ErrorInfo, logs ...string) {
	if info.Code == "" {
		info.Code = "INTERNAL_ERROR"
	}
	Error(c, http.StatusInternalServerError, info, logs...)
}
