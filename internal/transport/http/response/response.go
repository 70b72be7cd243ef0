package response

import "github.com/gin-gonic/gin"

// Error codes surfaced in the envelope's "error" field for machine handling.
const (
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInvalidImage       = "INVALID_IMAGE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// Envelope is the uniform response shape: a success flag, a human-readable
// message and, depending on outcome, a data payload or error details.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

func OK(c *gin.Context, message string, data interface{}) {
	c.JSON(200, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Fail(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, Envelope{
		Success: false,
		Message: message,
	})
}

// FailWithCode attaches a stable error code alongside the message.
func FailWithCode(c *gin.Context, httpStatus int, message, code string) {
	c.JSON(httpStatus, Envelope{
		Success: false,
		Message: message,
		Error:   code,
	})
}

// FailValidation carries the per-field validation messages.
func FailValidation(c *gin.Context, message string, fields []string) {
	c.JSON(400, Envelope{
		Success: false,
		Message: message,
		Errors:  fields,
	})
}
