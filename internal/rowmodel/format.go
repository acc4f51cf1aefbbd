package rowmodel

import (
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

const createdAtLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

type durationUnit struct {
	size  float64
	short string
	long  string
}

var durationUnits = []durationUnit{
	{size: float64(24 * time.Hour / time.Millisecond), short: "d", long: "day"},
	{size: float64(time.Hour / time.Millisecond), short: "h", long: "hour"},
	{size: float64(time.Minute / time.Millisecond), short: "m", long: "minute"},
	{size: float64(time.Second / time.Millisecond), short: "s", long: "second"},
}

// FormatDuration renders d at millisecond precision using the largest unit
// that fits, e.g. "1h" / "1 hour" or "2d" / "2 days". Values are rounded half
// up and the long form pluralizes from one and a half units.
func FormatDuration(d time.Duration, long bool) string {
	ms := float64(d / time.Millisecond)
	abs := math.Abs(ms)
	for _, u := range durationUnits {
		if abs < u.size {
			continue
		}
		n := strconv.FormatFloat(roundHalfUp(ms/u.size), 'f', -1, 64)
		if !long {
			return n + u.short
		}
		name := u.long
		if abs >= u.size*1.5 {
			name += "s"
		}
		return n + " " + name
	}
	n := strconv.FormatFloat(ms, 'f', -1, 64)
	if long {
		return n + " ms"
	}
	return n + "ms"
}

// FormatMillis is FormatDuration for a count of milliseconds.
func FormatMillis(ms int64, long bool) string {
	return FormatDuration(time.Duration(ms)*time.Millisecond, long)
}

// RelativeTo renders t relative to now: "in 1 hour" or "3 days ago".
func RelativeTo(t, now time.Time) string {
	d := t.Sub(now)
	if d < 0 {
		return FormatDuration(-d, true) + " ago"
	}
	return "in " + FormatDuration(d, true)
}

func FormatCreatedAt(t time.Time) string {
	return t.UTC().Format(createdAtLayout)
}

func FormatCount(n int64) string {
	return humanize.Comma(n)
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
