package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ringbill/ringbill/pkg/db/pagination"
)

// respondData wraps a single resource.
func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data})
}

// respondList wraps a collection plus paging info.
func respondList(c *gin.Context, data any, info *pagination.PageInfo) {
	body := gin.H{"data": data}
	if info != nil {
		body["page_info"] = info
	}
	c.JSON(http.StatusOK, body)
}
