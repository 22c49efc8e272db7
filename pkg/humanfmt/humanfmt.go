// Package humanfmt provides human-readable formatting for bytes, durations
// and CPU cycle counts.
package humanfmt

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Binary (IEC) units for bytes.
const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
)

// Bytes formats a byte count using IEC binary units (KiB, MiB, GiB).
// Signature and key sizes stay exact below 1 KiB.
func Bytes(b int64) string {
	if b < 0 {
		return fmt.Sprintf("%d B", b)
	}

	switch {
	case b >= GiB:
		return fmt.Sprintf("%.2f GiB", float64(b)/GiB)
	case b >= MiB:
		return fmt.Sprintf("%.2f MiB", float64(b)/MiB)
	case b >= KiB:
		return fmt.Sprintf("%.2f KiB", float64(b)/KiB)
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// Duration formats d with at most two significant units, e.g. "3.4ms" or "2h15m".
func Duration(d time.Duration) string {
	if d < 0 {
		return d.String()
	}

	switch {
	case d >= time.Hour:
		h := d / time.Hour
		m := (d % time.Hour) / time.Minute
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh%dm", h, m)
	case d >= time.Minute:
		m := d / time.Minute
		s := (d % time.Minute) / time.Second
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm%ds", m, s)
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fµs", float64(d)/float64(time.Microsecond))
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

// Count formats n with a decimal K/M/B suffix, e.g. "1.57M".
func Count(n int64) string {
	if n < 0 {
		return strconv.FormatInt(n, 10)
	}

	const (
		thousand = 1000
		million  = 1000 * thousand
		billion  = 1000 * million
	)

	switch {
	case n >= billion:
		return fmt.Sprintf("%.2fB", float64(n)/billion)
	case n >= million:
		return fmt.Sprintf("%.2fM", float64(n)/million)
	case n >= thousand:
		return fmt.Sprintf("%.2fK", float64(n)/thousand)
	default:
		return strconv.FormatInt(n, 10)
	}
}

// Cycles formats a (possibly fractional) mean cycle count, e.g. "1.57M cycles".
func Cycles(c float64) string {
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return "n/a"
	}
	return Count(int64(math.Round(c))) + " cycles"
}
