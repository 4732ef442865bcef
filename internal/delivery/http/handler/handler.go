package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	. "todoagent/pkg/response"
)

// HealthCheck reports liveness only; storage is touched on demand.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID reads the :id path parameter and answers 400 when it is not an
// integer.
func parseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		SendBadRequestError(c, "id", "id must be an integer")
		return 0, false
	}

	return id, true
}
