package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// newID returns an opaque, globally unique row identifier.
func newID() string {
	return uuid.NewString()
}

func ensureID(id *string) {
	if strings.TrimSpace(*id) == "" {
		*id = newID()
	}
}

// NowMillis returns the current time as epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
