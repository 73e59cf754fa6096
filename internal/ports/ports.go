package ports

import (
	"context"

	"LiteratureDigest/internal/domain"
)

// RecordFetcher talks to the literature database.
type RecordFetcher interface {
	Search(ctx context.Context, topic domain.Topic) ([]string, error)
	FetchSummary(ctx context.Context, id string) (domain.RecordSummary, error)
	// FetchAbstract returns domain.AbstractPlaceholder when the record has no abstract.
	FetchAbstract(ctx context.Context, id string) (string, error)
}

// Translator turns an abstract into the target language.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// ImpactLookup resolves a journal name to its impact factor.
// Unknown journals yield domain.ErrJournalNotFound.
type ImpactLookup interface {
	Lookup(ctx context.Context, journal string) (float64, error)
}

// Mailer delivers the digest as a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// RunLedger records per-run accounting for operators.
type RunLedger interface {
	RecordRun(ctx context.Context, run domain.RunSummary) error
}
