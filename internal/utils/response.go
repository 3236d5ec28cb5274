package utils

import (
	"time"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, data gin.H) {
	c.JSON(200, gin.H{
		"success": true,
		"data":    data,
	})
}

// SuccessWithMeta is Success plus the request id and a UTC timestamp.
func SuccessWithMeta(c *gin.Context, data gin.H, requestID string) {
	c.JSON(200, gin.H{
		"success":    true,
		"data":       data,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	})
}

func Error(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   msg,
	})
}

// ErrorWithDetails adds diagnostic details to the error envelope. Empty
// details are omitted.
func ErrorWithDetails(c *gin.Context, code int, msg, details string) {
	body := gin.H{
		"success": false,
		"error":   msg,
	}
	if details != "" {
		body["details"] = details
	}
	c.JSON(code, body)
}
