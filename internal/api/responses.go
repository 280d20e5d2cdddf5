package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

func OK(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data})
}

func OKWithCount(c *gin.Context, data any, count int) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Count: &count})
}

func OKWithMessage(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Message: message})
}

func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Success: false, Error: message})
}

// AbortWithError writes the envelope for err and stops the handler chain.
// Only the client-safe message of an *Error is surfaced.
func AbortWithError(c *gin.Context, err error) {
	status, message := StatusOf(err)
	c.AbortWithStatusJSON(status, Response{Success: false, Error: message})
}
