package models

import (
	"time"

	"github.com/google/uuid"
)

// Now is the clock used for stored timestamps: UTC at microsecond precision,
// which is what PostgreSQL keeps, so cursors built from in-memory values match
// rows read back from the store.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func ensureTime(t *time.Time) {
	if t.IsZero() {
		*t = Now()
	} else {
		*t = t.UTC()
	}
}
