package render

import (
	"time"

	"github.com/dustin/go-humanize"
)

// TimeAgo renders t relative to now, e.g. "3 minutes ago".
func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

// Likes renders a like count with a singular form for one.
func Likes(n int) string {
	if n == 1 {
		return "1 like"
	}
	return humanize.Comma(int64(n)) + " likes"
}

// Size renders a byte count, e.g. "2.1 MB".
func Size(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
