// Package response defines the JSON envelope every endpoint answers with.
// The ZaloPay callback is the one exception: its acknowledgement shape is
// dictated by the provider and built inline in the handler.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope: success flag, human-readable message, and an
// optional payload.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success builds a success envelope around a payload
func Success(data interface{}) Response {
	return Response{
		Success: true,
		Message: "success",
		Data:    data,
	}
}

// Error builds a failure envelope carrying the message
func Error(message string) Response {
	return Response{
		Success: false,
		Message: message,
	}
}

// JSON writes an envelope with the given status code
func JSON(c *gin.Context, statusCode int, response Response) {
	c.JSON(statusCode, response)
}

// SuccessJSON writes a 200 success envelope
func SuccessJSON(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, Success(data))
}

// ErrorJSON writes a failure envelope with the given status code
func ErrorJSON(c *gin.Context, statusCode int, message string) {
	JSON(c, statusCode, Error(message))
}
