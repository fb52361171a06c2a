package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxPageLimit = 200

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalInt64(value string) (*int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// pathID reads a positive int64 path parameter.
func pathID(c *gin.Context, name string) (int64, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || parsed <= 0 {
		return 0, newValidationError(name, "invalid_id", "must be a positive integer")
	}
	return parsed, nil
}

// queryInt64 reads an optional int64 query parameter, zero when absent.
func queryInt64(c *gin.Context, name string) (int64, error) {
	parsed, err := parseOptionalInt64(c.Query(name))
	if err != nil {
		return 0, newValidationError(name, "invalid_"+name, "must be an integer")
	}
	if parsed == nil {
		return 0, nil
	}
	return *parsed, nil
}

func queryLimit(c *gin.Context) (int, error) {
	limit, err := queryInt64(c, "limit")
	if err != nil {
		return 0, err
	}
	if limit < 0 || limit > maxPageLimit {
		return 0, newValidationError("limit", "invalid_limit", "must be between 0 and "+strconv.Itoa(maxPageLimit))
	}
	return int(limit), nil
}
