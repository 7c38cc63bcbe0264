package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// GenerateSessionID creates an opaque identifier for a browsing session. It
// correlates view events from the same client for deduplication; it is not a
// user identity.
func GenerateSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// rand.Read failing is effectively unreachable; fall back to a
		// timestamp so tracking still degrades instead of breaking.
		return fmt.Sprintf("fallback-session-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}
