package eligibility

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"LiteratureDigest/internal/domain"
)

type stubLookup struct {
	factors map[string]float64
	err     error
	calls   int
}

func (s *stubLookup) Lookup(_ context.Context, journal string) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	factor, ok := s.factors[journal]
	if !ok {
		return 0, domain.ErrJournalNotFound
	}
	return factor, nil
}

func TestStarRatingBands(t *testing.T) {
	t.Parallel()

	cases := []struct {
		factor float64
		want   int
	}{
		{0, 0},
		{2.999, 0},
		{3, 3},
		{4.999, 3},
		{5, 4},
		{8.999, 4},
		{9, 5},
		{120.5, 5},
		{-1, 0},
		{math.NaN(), 0},
	}

	for _, tc := range cases {
		if got := StarRating(tc.factor); got != tc.want {
			t.Fatalf("StarRating(%v) = %d, want %d", tc.factor, got, tc.want)
		}
	}
}

func TestStarRatingPartitionsNonNegativeReals(t *testing.T) {
	t.Parallel()

	allowed := map[int]bool{0: true, 3: true, 4: true, 5: true}
	prev := 0
	for f := 0.0; f < 15; f += 0.001 {
		got := StarRating(f)
		if !allowed[got] {
			t.Fatalf("StarRating(%v) = %d outside {0,3,4,5}", f, got)
		}
		if got < prev {
			t.Fatalf("StarRating not monotonic at %v: %d after %d", f, got, prev)
		}
		prev = got
	}
}

func TestIsRecentExcludesBoundaries(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)
	window := 15 * 24 * time.Hour

	if IsRecent(now, now, window) {
		t.Fatal("publication exactly at now must be excluded")
	}
	if IsRecent(now.Add(-window), now, window) {
		t.Fatal("publication exactly at the window start must be excluded")
	}
	if !IsRecent(now.Add(-window).Add(time.Second), now, window) {
		t.Fatal("publication just inside the window must be included")
	}
	if !IsRecent(now.Add(-time.Second), now, window) {
		t.Fatal("publication just before now must be included")
	}
	if IsRecent(now.Add(time.Hour), now, window) {
		t.Fatal("future publication must be excluded")
	}
}

func TestNewPolicyDefaultsWindow(t *testing.T) {
	t.Parallel()

	p := NewPolicy(0, nil)
	if p.Window != DefaultWindowDays*24*time.Hour {
		t.Fatalf("unexpected default window: %v", p.Window)
	}
	if p.Location != time.UTC {
		t.Fatalf("expected UTC location, got %v", p.Location)
	}

	if got := NewPolicy(7, time.UTC).Window; got != 7*24*time.Hour {
		t.Fatalf("unexpected overridden window: %v", got)
	}
}

func TestIsEligibleThreshold(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)
	p := NewPolicy(15, time.UTC)
	recent := now.Add(-72 * time.Hour)
	stale := now.Add(-30 * 24 * time.Hour)

	cases := []struct {
		published time.Time
		factor    float64
		want      bool
	}{
		{recent, 3, false},
		{recent, 2.5, false},
		{recent, 3.0001, true},
		{recent, 9.5, true},
		{stale, 9.5, false},
		{now, 9.5, false},
		{now.Add(-p.Window), 9.5, false},
	}

	for i, tc := range cases {
		if got := p.IsEligible(tc.published, tc.factor, now); got != tc.want {
			t.Fatalf("case %d: IsEligible(%v, %v) = %v, want %v", i, tc.published, tc.factor, got, tc.want)
		}
	}
}

func TestParsePublicationDate(t *testing.T) {
	t.Parallel()

	p := NewPolicy(15, time.UTC)

	got, err := p.ParsePublicationDate("2026/10/16 06:00")
	if err != nil {
		t.Fatalf("parse history date: %v", err)
	}
	want := time.Date(2026, time.October, 16, 6, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("unexpected date: %v", got)
	}

	got, err = p.ParsePublicationDate("2026-10-16")
	if err != nil {
		t.Fatalf("parse iso date: %v", err)
	}
	if got.Format("2006-01-02") != "2026-10-16" {
		t.Fatalf("unexpected iso date: %v", got)
	}

	for _, raw := range []string{"", "   ", "2026/13/45"} {
		if _, err := p.ParsePublicationDate(raw); !errors.Is(err, domain.ErrDateParse) {
			t.Fatalf("expected ErrDateParse for %q, got %v", raw, err)
		}
	}
}

func TestImpactRatingDegradesToZero(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	lookup := &stubLookup{factors: map[string]float64{"Nature": 49.9}}
	if got := ImpactRating(ctx, lookup, "Nature", nil); got != 49.9 {
		t.Fatalf("unexpected factor: %v", got)
	}
	if got := ImpactRating(ctx, lookup, "Unknown Journal", nil); got != 0 {
		t.Fatalf("unknown journal should rate 0, got %v", got)
	}

	failing := &stubLookup{err: fmt.Errorf("%w: connection reset", domain.ErrFetch)}
	if got := ImpactRating(ctx, failing, "Nature", nil); got != 0 {
		t.Fatalf("failed lookup should rate 0, got %v", got)
	}

	if got := ImpactRating(ctx, nil, "Nature", nil); got != 0 {
		t.Fatalf("missing lookup should rate 0, got %v", got)
	}
}

func TestFilterEvaluate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)
	lookup := &stubLookup{factors: map[string]float64{"Cell": 9.5, "Minor Letters": 2.0}}
	filter := NewFilter(NewPolicy(15, time.UTC), lookup, nil)
	ctx := context.Background()

	decision, err := filter.Evaluate(ctx, domain.RecordSummary{Journal: "Cell", PublicationDate: "2026/10/16 06:00"}, now)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !decision.Eligible || decision.Stars != 5 || decision.ImpactFactor != 9.5 {
		t.Fatalf("unexpected decision: %+v", decision)
	}

	decision, err = filter.Evaluate(ctx, domain.RecordSummary{Journal: "Minor Letters", PublicationDate: "2026/10/16 06:00"}, now)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Eligible || !decision.Recent {
		t.Fatalf("low impact record must be recent but ineligible: %+v", decision)
	}

	calls := lookup.calls
	decision, err = filter.Evaluate(ctx, domain.RecordSummary{Journal: "Cell", PublicationDate: "2026/08/01"}, now)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if decision.Eligible || decision.Recent {
		t.Fatalf("stale record must be ineligible: %+v", decision)
	}
	if lookup.calls != calls {
		t.Fatal("stale records must not trigger an impact lookup")
	}

	if _, err := filter.Evaluate(ctx, domain.RecordSummary{Journal: "Cell", PublicationDate: "2026/13/45"}, now); !errors.Is(err, domain.ErrDateParse) {
		t.Fatalf("expected ErrDateParse, got %v", err)
	}
}

func TestFilterLookupFailureExcludesRecord(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)
	filter := NewFilter(NewPolicy(15, time.UTC), &stubLookup{err: errors.New("exit status 1")}, nil)

	decision, err := filter.Evaluate(context.Background(), domain.RecordSummary{Journal: "Cell", PublicationDate: "2026/10/16"}, now)
	if err != nil {
		t.Fatalf("lookup failure must not surface: %v", err)
	}
	if decision.Eligible || decision.ImpactFactor != 0 {
		t.Fatalf("lookup failure must exclude the record: %+v", decision)
	}
}
