package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetFile serves stored outputs and cutouts for the local filesystem.
func GetFile(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("path"), "/")
	if path == "" {
		badRequest(c, "file path is required")
		return
	}

	file, err := getApp(c).Storage().GetFile(c.Request.Context(), path)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, file.ContentType, file.Content)
}
