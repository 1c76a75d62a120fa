package api

import (
	"strconv" // String conversion

	"github.com/gin-gonic/gin" // Gin web framework

	"event_wallet/internal/apperr" // Service errors
)

const (
	defaultPageSize = 20  // Page size when none is given
	maxPageSize     = 100 // Upper bound for page_size
)

// currentUserID returns the authenticated user set by the JWT middleware
func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("userID")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

// requireUser aborts with 401 when the request is not authenticated
func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, apperr.ErrUnauthorized)
	}
	return userID, ok
}

// pagination reads page and page_size, falling back to defaults on bad input
func pagination(c *gin.Context) (int, int) {
	page := 1                   // Default page
	pageSize := defaultPageSize // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= maxPageSize {
			pageSize = v // Set page size if valid
		}
	}
	return page, pageSize
}

// totalPages rounds total/pageSize up
func totalPages(total int64, pageSize int) int {
	return (int(total) + pageSize - 1) / pageSize
}

// idParam parses the :id path parameter
func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}
