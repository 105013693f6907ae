package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ringbill/ringbill/internal/migration"
	"github.com/ringbill/ringbill/internal/observability/logger"
)

// Healthz reports process liveness only.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports readiness: the database answers and the schema is at the
// version this binary was built against.
func (h *Handler) Readyz(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "database"})
		return
	}

	version, err := migration.CurrentVersion(c.Request.Context(), sqlDB)
	if err == nil {
		var want uint
		want, err = migration.LatestMigrationVersion()
		if err == nil && version != want {
			err = fmt.Errorf("schema at version %d, want %d", version, want)
		}
	}
	if err != nil {
		logger.FromContext(c.Request.Context()).Warn("schema not ready", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "schema"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "schema_version": version})
}
