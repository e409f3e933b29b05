package request

import (
	"strconv"

	"taquilla/internal/shared/errs"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UUIDParam parses a path parameter as a UUID
func UUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	if raw == "" {
		return uuid.Nil, errs.E(errs.InvalidArgument, "%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errs.Wrap(errs.InvalidArgument, err, "invalid %s", name)
	}
	return id, nil
}

// ParseUUIDs parses a list of ids, reporting the first malformed one
func ParseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidArgument, err, "invalid id %q", r)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IntQuery reads an integer query parameter, falling back to def when absent or malformed
func IntQuery(c *gin.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil {
		return v
	}
	return def
}
