package constants

import (
	"time"

	"github.com/google/uuid"
)

// Redis cache keys and TTLs
// Pattern: taquilla:{module}:{operation}:{identifier}

const (
	CACHE_PREFIX = "taquilla"
)

// Highly dynamic: availability must never lag a committed hold for long
const (
	TTL_REALTIME_SHORT = 5 * time.Second
)

// ================== INVENTORY MODULE ==================

const (
	CACHE_KEY_AVAILABILITY = CACHE_PREFIX + ":inventory:availability:uuid:" // + presentation-id
)

const (
	TTL_AVAILABILITY = TTL_REALTIME_SHORT
)

// BuildAvailabilityKey returns the availability snapshot key of a presentation
func BuildAvailabilityKey(presentationID uuid.UUID) string {
	return CACHE_KEY_AVAILABILITY + presentationID.String()
}
