package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"LiteratureDigest/internal/domain"
	"LiteratureDigest/internal/eligibility"
	"LiteratureDigest/internal/logging"
	"LiteratureDigest/internal/ports"
	"LiteratureDigest/internal/report"
)

const (
	defaultCallTimeout   = 30 * time.Second
	defaultSubjectPrefix = "Literature digest"
)

// RunnerDeps wires all driven adapters into the digest runner.
type RunnerDeps struct {
	Fetcher    ports.RecordFetcher
	Translator ports.Translator
	Filter     *eligibility.Filter
	Mailer     ports.Mailer
	// Ledger is optional.
	Ledger ports.RunLedger
	Logger *slog.Logger
	Now    func() time.Time

	Topics        []domain.Topic
	SourceLang    string
	TargetLang    string
	CallTimeout   time.Duration
	SubjectPrefix string
}

// Runner implements the search, filter, enrich, format and send workflow.
type Runner struct {
	fetcher       ports.RecordFetcher
	translator    ports.Translator
	filter        *eligibility.Filter
	mailer        ports.Mailer
	ledger        ports.RunLedger
	logger        *slog.Logger
	now           func() time.Time
	topics        []domain.Topic
	sourceLang    string
	targetLang    string
	callTimeout   time.Duration
	subjectPrefix string
}

// NewRunner constructs the orchestration component.
func NewRunner(deps RunnerDeps) *Runner {
	r := &Runner{
		fetcher:       deps.Fetcher,
		translator:    deps.Translator,
		filter:        deps.Filter,
		mailer:        deps.Mailer,
		ledger:        deps.Ledger,
		logger:        deps.Logger,
		now:           deps.Now,
		topics:        deps.Topics,
		sourceLang:    deps.SourceLang,
		targetLang:    deps.TargetLang,
		callTimeout:   deps.CallTimeout,
		subjectPrefix: deps.SubjectPrefix,
	}
	if r.logger == nil {
		r.logger = logging.Discard()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.callTimeout <= 0 {
		r.callTimeout = defaultCallTimeout
	}
	if r.subjectPrefix == "" {
		r.subjectPrefix = defaultSubjectPrefix
	}
	return r
}

// Run builds the digest for every topic in order and sends it once.
// Only a delivery failure (or missing collaborators) fails the run.
func (r *Runner) Run(ctx context.Context) (domain.RunSummary, error) {
	if r.fetcher == nil || r.filter == nil || r.mailer == nil {
		return domain.RunSummary{}, errors.New("runner: fetcher, filter and mailer are required")
	}

	now := r.now()
	summary := domain.RunSummary{
		StartedAt: now,
		Subject:   Subject(r.subjectPrefix, now),
	}

	reports := make([]domain.TopicReport, 0, len(r.topics))
	for _, topic := range r.topics {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run interrupted: %w", err)
		}
		rep, stats := r.collectTopic(ctx, topic, now)
		reports = append(reports, rep)
		summary.Topics = append(summary.Topics, stats)
	}

	digest, err := report.RenderDigest(reports)
	if err != nil {
		return summary, fmt.Errorf("render digest: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	err = r.mailer.Send(callCtx, summary.Subject, digest)
	cancel()
	if err != nil {
		r.record(ctx, summary)
		return summary, fmt.Errorf("send digest: %w", err)
	}
	summary.Delivered = true

	r.logger.Info("digest delivered", "subject", summary.Subject, "topics", len(reports), "bytes", len(digest))
	r.record(ctx, summary)

	return summary, nil
}

func (r *Runner) collectTopic(ctx context.Context, topic domain.Topic, now time.Time) (domain.TopicReport, domain.TopicStats) {
	rep := domain.TopicReport{Keyword: string(topic)}
	stats := domain.TopicStats{Keyword: string(topic)}
	logger := r.logger.With("topic", string(topic))

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	ids, err := r.fetcher.Search(callCtx, topic)
	cancel()
	if err != nil {
		stats.Err = err
		logger.Warn("topic search failed", "reason", "search", "error", err)
		return rep, stats
	}

	stats.Considered = len(ids)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		record, ok, err := r.processRecord(ctx, id, now)
		if err != nil {
			stats.Skipped++
			logger.Warn("record skipped", "id", id, "reason", reason(err), "error", err)
			continue
		}
		if ok {
			rep.Records = append(rep.Records, record)
		}
	}
	stats.Included = len(rep.Records)

	logger.Info("topic processed",
		"considered", stats.Considered,
		"included", stats.Included,
		"skipped", stats.Skipped,
	)
	return rep, stats
}

type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func reason(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage
	}
	return "unknown"
}

// processRecord returns ok=false for records that are ineligible but healthy.
func (r *Runner) processRecord(ctx context.Context, id string, now time.Time) (domain.EligibleRecord, bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	summary, err := r.fetcher.FetchSummary(callCtx, id)
	cancel()
	if err != nil {
		return domain.EligibleRecord{}, false, &stageError{stage: "summary", err: err}
	}
	if summary.ID == "" {
		summary.ID = id
	}

	// the filter runs its own lookup under the same per-call budget
	callCtx, cancel = context.WithTimeout(ctx, r.callTimeout)
	decision, err := r.filter.Evaluate(callCtx, summary, now)
	cancel()
	if err != nil {
		return domain.EligibleRecord{}, false, &stageError{stage: "publication date", err: err}
	}
	if !decision.Eligible {
		r.logger.Debug("record not eligible", "id", id, "journal", summary.Journal, "reason", decision.Reason)
		return domain.EligibleRecord{}, false, nil
	}

	callCtx, cancel = context.WithTimeout(ctx, r.callTimeout)
	abstract, err := r.fetcher.FetchAbstract(callCtx, id)
	cancel()
	if err != nil {
		return domain.EligibleRecord{}, false, &stageError{stage: "abstract", err: err}
	}

	translated, err := r.translate(ctx, abstract)
	if err != nil {
		return domain.EligibleRecord{}, false, &stageError{stage: "translate", err: err}
	}

	return domain.EligibleRecord{
		Summary:            summary,
		PublishedAt:        decision.PublishedAt,
		AbstractOriginal:   abstract,
		AbstractTranslated: translated,
		ImpactFactor:       decision.ImpactFactor,
		Stars:              eligibility.StarRating(decision.ImpactFactor),
	}, true, nil
}

func (r *Runner) translate(ctx context.Context, abstract string) (string, error) {
	if r.translator == nil || abstract == domain.AbstractPlaceholder {
		return abstract, nil
	}
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return r.translator.Translate(callCtx, abstract, r.sourceLang, r.targetLang)
}

func (r *Runner) record(ctx context.Context, summary domain.RunSummary) {
	if r.ledger == nil {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	if err := r.ledger.RecordRun(callCtx, summary); err != nil {
		r.logger.Warn("run ledger write failed", "error", err)
	}
}

// Subject formats the mail subject for a run started at t.
func Subject(prefix string, t time.Time) string {
	return prefix + " " + t.Format("2006-01-02")
}
