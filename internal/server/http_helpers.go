package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Responses use the `{data}` / `{message}` envelopes the frontend expects.

func respondData(c *gin.Context, status int, payload any) {
	c.JSON(status, gin.H{"data": payload})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

func respondStatusText(c *gin.Context, status int) {
	respondMessage(c, status, http.StatusText(status))
}
