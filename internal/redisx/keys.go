package redisx

import (
	"fmt"
	"time"
)

const (
	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Webhook idempotency: idem:hook:{Idempotency-Key} -> response body
	KeyIdemHook = "idem:hook:%s"
)

var (
	TTLDedup       = 48 * time.Hour
	TTLIdempotency = 24 * time.Hour
)

func DedupKey(service, eventID string) string { return fmt.Sprintf(KeyDedup, service, eventID) }

func HookKey(idemKey string) string { return fmt.Sprintf(KeyIdemHook, idemKey) }
