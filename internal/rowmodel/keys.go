package rowmodel

import (
	"strings"
	"time"

	"github.com/bekirdag/keydash/internal/keyservice"
)

type KeyRow struct {
	Key   keyservice.Key
	clock Clock
}

func NewKeyRow(key keyservice.Key, clock Clock) KeyRow {
	return KeyRow{Key: key, clock: clockOrSystem(clock)}
}

func NewKeyRows(keys []keyservice.Key, clock Clock) []KeyRow {
	rows := make([]KeyRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, NewKeyRow(k, clock))
	}
	return rows
}

func (r KeyRow) ID() string { return r.Key.ID }

func (r KeyRow) MaskedPrefix() string {
	return r.Key.Start + "..."
}

func (r KeyRow) CreatedAt() string {
	return FormatCreatedAt(r.Key.CreatedAt)
}

// Expiry is recomputed against the clock on every call.
func (r KeyRow) Expiry() (string, bool) {
	if r.Key.Expires == nil {
		return "", false
	}
	return RelativeTo(*r.Key.Expires, clockOrSystem(r.clock).Now()), true
}

func (r KeyRow) Expired() bool {
	return r.Key.Expires != nil && !r.Key.Expires.After(clockOrSystem(r.clock).Now())
}

func (r KeyRow) Remaining() (string, bool) {
	if r.Key.RemainingRequests == nil {
		return "", false
	}
	return FormatCount(*r.Key.RemainingRequests), true
}

func (r KeyRow) Owner() (string, bool) {
	return optionalString(r.Key.OwnerID)
}

func (r KeyRow) Name() (string, bool) {
	return optionalString(r.Key.Name)
}

// RateLimit renders "refill rate / refill interval". A key missing any of the
// type, limit, rate or interval has no usable limit.
func (r KeyRow) RateLimit() (string, bool) {
	k := r.Key
	if k.RatelimitType == nil || strings.TrimSpace(*k.RatelimitType) == "" {
		return "", false
	}
	if !positive(k.RatelimitLimit) || !positive(k.RatelimitRefillRate) || !positive(k.RatelimitRefillInterval) {
		return "", false
	}
	return FormatCount(*k.RatelimitRefillRate) + " / " + FormatMillis(*k.RatelimitRefillInterval, false), true
}

// FilterText is what the grid filter matches keys against.
func (r KeyRow) FilterText() string {
	parts := []string{r.Key.ID, r.Key.Start}
	if owner, ok := r.Owner(); ok {
		parts = append(parts, owner)
	}
	if name, ok := r.Name(); ok {
		parts = append(parts, name)
	}
	return strings.Join(parts, " ")
}

func (r KeyRow) CreatedAtTime() time.Time { return r.Key.CreatedAt }

func optionalString(v *string) (string, bool) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "", false
	}
	return *v, true
}

func positive(v *int64) bool {
	return v != nil && *v > 0
}
