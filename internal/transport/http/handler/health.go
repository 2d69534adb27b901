package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const healthMessage = "Complete Restful API in Go"

// GET /api/healthcheck
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": healthMessage})
}
