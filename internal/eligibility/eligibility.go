// Package eligibility decides which search results make it into the digest.
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"LiteratureDigest/internal/domain"
	"LiteratureDigest/internal/ports"
)

// DefaultWindowDays is the lookback used when no window is configured.
const DefaultWindowDays = 15

// The eligibility cutoff and the lowest star band share a value but are
// independent knobs.
const (
	eligibilityImpactThreshold = 3.0
	starBandMinimum            = 3.0
	starBandHigh               = 5.0
	starBandTop                = 9.0
)

// Policy holds the recency window and the location used to read dates.
type Policy struct {
	Window   time.Duration
	Location *time.Location
}

// NewPolicy builds a policy; non-positive windows fall back to DefaultWindowDays.
func NewPolicy(windowDays int, loc *time.Location) Policy {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if loc == nil {
		loc = time.UTC
	}
	return Policy{
		Window:   time.Duration(windowDays) * 24 * time.Hour,
		Location: loc,
	}
}

// ParsePublicationDate reads a loosely formatted date such as "2021/12/02 06:00".
func (p Policy) ParsePublicationDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", domain.ErrDateParse)
	}

	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}

	parsed, err := dateparse.ParseIn(raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", domain.ErrDateParse, raw, err)
	}
	return parsed, nil
}

// IsRecent reports whether published falls strictly inside (now-window, now).
func IsRecent(published, now time.Time, window time.Duration) bool {
	return published.After(now.Add(-window)) && published.Before(now)
}

// IsRecent applies the policy window.
func (p Policy) IsRecent(published, now time.Time) bool {
	return IsRecent(published, now, p.Window)
}

// IsEligible requires a recent publication and an impact factor above the cutoff.
func (p Policy) IsEligible(published time.Time, impactFactor float64, now time.Time) bool {
	return p.IsRecent(published, now) && impactFactor > eligibilityImpactThreshold
}

// StarRating bands an impact factor into 0, 3, 4 or 5 stars.
func StarRating(impactFactor float64) int {
	switch {
	case math.IsNaN(impactFactor) || impactFactor < starBandMinimum:
		return 0
	case impactFactor < starBandHigh:
		return 3
	case impactFactor < starBandTop:
		return 4
	default:
		return 5
	}
}

// ImpactRating resolves a journal's impact factor; any failure counts as 0.
func ImpactRating(ctx context.Context, lookup ports.ImpactLookup, journal string, logger *slog.Logger) float64 {
	if lookup == nil {
		return 0
	}

	factor, err := lookup.Lookup(ctx, journal)
	if err != nil {
		if logger != nil {
			if errors.Is(err, domain.ErrJournalNotFound) {
				logger.Debug("journal has no impact factor", "journal", journal)
			} else {
				logger.Debug("impact lookup failed", "journal", journal, "error", err)
			}
		}
		return 0
	}
	if math.IsNaN(factor) || factor < 0 {
		return 0
	}
	return factor
}
