package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sambitmohanty1/wildlife-watchdog/internal/analytics"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/models"
	"github.com/sambitmohanty1/wildlife-watchdog/internal/services"
)

// parseParkID reads the optional park_id query parameter
func parseParkID(c *gin.Context) (*uuid.UUID, error) {
	raw := c.Query("park_id")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid park_id %q", models.ErrInvalidRecord, raw)
	}
	return &id, nil
}

// parseAsOf reads the as_of query parameter, defaulting to today in UTC
func parseAsOf(c *gin.Context, now func() time.Time) (time.Time, error) {
	raw := c.Query("as_of")
	if raw == "" {
		return now().UTC(), nil
	}
	asOf, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: as_of must be YYYY-MM-DD", models.ErrInvalidRecord)
	}
	return asOf, nil
}

// parseMonth reads a 1-12 month parameter, falling back to def
func parseMonth(c *gin.Context, def time.Month) (time.Month, error) {
	raw := c.Query("month")
	if raw == "" {
		return def, nil
	}
	month, err := strconv.Atoi(raw)
	if err != nil || month < 1 || month > 12 {
		return 0, fmt.Errorf("%w: month must be between 1 and 12", models.ErrInvalidRecord)
	}
	return time.Month(month), nil
}

// parsePagination reads limit and offset with the same bounds as every list endpoint
func parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// respondError maps service errors onto status codes
func (h *Handlers) respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, models.ErrInvalidRecord):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, analytics.ErrInvalidDate):
		// stored records the engine cannot use; fixable through the quality report
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error(message, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
