package eligibility

import (
	"context"
	"log/slog"
	"time"

	"LiteratureDigest/internal/domain"
	"LiteratureDigest/internal/ports"
)

// Decision is the outcome of evaluating one record summary.
type Decision struct {
	PublishedAt  time.Time
	ImpactFactor float64
	Stars        int
	Recent       bool
	Eligible     bool
	Reason       string
}

// Filter combines a Policy with the impact lookup.
type Filter struct {
	policy Policy
	lookup ports.ImpactLookup
	logger *slog.Logger
}

// NewFilter wires the policy and the lookup used for impact ratings.
func NewFilter(policy Policy, lookup ports.ImpactLookup, logger *slog.Logger) *Filter {
	return &Filter{policy: policy, lookup: lookup, logger: logger}
}

// Policy exposes the configured policy.
func (f *Filter) Policy() Policy {
	return f.policy
}

// Evaluate parses the publication date and, for recent records only, looks up
// the journal once. A date parse failure is returned as an error.
func (f *Filter) Evaluate(ctx context.Context, summary domain.RecordSummary, now time.Time) (Decision, error) {
	published, err := f.policy.ParsePublicationDate(summary.PublicationDate)
	if err != nil {
		return Decision{Reason: "unparsable publication date"}, err
	}

	decision := Decision{PublishedAt: published}
	if !f.policy.IsRecent(published, now) {
		decision.Reason = "outside recency window"
		return decision, nil
	}
	decision.Recent = true

	decision.ImpactFactor = ImpactRating(ctx, f.lookup, summary.Journal, f.logger)
	decision.Stars = StarRating(decision.ImpactFactor)
	decision.Eligible = f.policy.IsEligible(published, decision.ImpactFactor, now)
	if !decision.Eligible {
		decision.Reason = "impact factor at or below threshold"
	}

	return decision, nil
}
