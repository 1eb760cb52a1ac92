package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// AnnotationKey addresses cached vision annotations for an image URL.
func AnnotationKey(imageURL string) string {
	sum := sha256.Sum256([]byte(imageURL))
	return "vision:annotations:" + hex.EncodeToString(sum[:])
}

// RunStatusKey addresses the latest known status of a run.
func RunStatusKey(runID uuid.UUID) string {
	return fmt.Sprintf("run:%s", runID)
}

// QuotaKey addresses the request counter of one quota window (unix seconds).
func QuotaKey(name string, window int64) string {
	return fmt.Sprintf("quota:%s:%d", name, window)
}

// RateLimitKey addresses the per-client API request counter.
func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}
