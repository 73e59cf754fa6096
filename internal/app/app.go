package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"LiteratureDigest/internal/config"
	"LiteratureDigest/internal/domain"
	"LiteratureDigest/internal/eligibility"
	"LiteratureDigest/internal/infrastructure/impact"
	"LiteratureDigest/internal/infrastructure/llm"
	"LiteratureDigest/internal/infrastructure/mail"
	"LiteratureDigest/internal/infrastructure/pubmed"
	"LiteratureDigest/internal/infrastructure/storage"
	"LiteratureDigest/internal/infrastructure/translate"
	"LiteratureDigest/internal/logging"
	"LiteratureDigest/internal/ports"
	"LiteratureDigest/internal/usecase"
)

// Application wires configs to use cases.
type Application struct {
	cfg    config.Config
	runner *usecase.Runner
	db     *sql.DB
	logger *slog.Logger
}

// New builds a runnable application instance from a validated config.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	fetcher := pubmed.NewClient(
		&http.Client{Timeout: cfg.CallTimeout},
		pubmed.Options{
			BaseURL:    cfg.PubMed.BaseURL,
			Email:      cfg.PubMed.Email,
			Tool:       cfg.PubMed.Tool,
			APIKey:     cfg.PubMed.APIKey,
			MaxResults: cfg.PubMed.MaxResults,
		},
		baseLogger.With("component", "pubmed"),
	)

	lookup, err := newImpactLookup(cfg.Impact)
	if err != nil {
		return nil, err
	}

	policy := eligibility.NewPolicy(cfg.Filter.WindowDays, cfg.Location())
	filter := eligibility.NewFilter(policy, lookup, baseLogger.With("component", "eligibility"))

	application := &Application{cfg: cfg, logger: baseLogger}

	var ledger ports.RunLedger
	if cfg.Database.DSN != "" {
		db, err := storage.Open(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		application.db = db
		ledger = storage.NewPostgresLedger(db)
	}

	topics := make([]domain.Topic, 0, len(cfg.Topics))
	for _, topic := range cfg.Topics {
		topics = append(topics, domain.Topic(strings.TrimSpace(topic)))
	}

	application.runner = usecase.NewRunner(usecase.RunnerDeps{
		Fetcher:       fetcher,
		Translator:    newTranslator(cfg.Translator),
		Filter:        filter,
		Mailer:        mail.NewMailer(cfg.Mail, cfg.CallTimeout),
		Ledger:        ledger,
		Logger:        baseLogger.With("component", "runner"),
		Now:           func() time.Time { return time.Now().In(cfg.Location()) },
		Topics:        topics,
		SourceLang:    cfg.Translator.SourceLang,
		TargetLang:    cfg.Translator.TargetLang,
		CallTimeout:   cfg.CallTimeout,
		SubjectPrefix: cfg.Mail.SubjectPrefix,
	})

	return application, nil
}

// Run performs a single digest run.
func (a *Application) Run(ctx context.Context) error {
	if a.runner == nil {
		return nil
	}

	if a.db != nil {
		if err := storage.NewPostgresLedger(a.db).EnsureSchema(ctx); err != nil {
			a.logger.Warn("run ledger unavailable", "error", err)
		}
	}

	summary, err := a.runner.Run(ctx)
	if err != nil {
		return err
	}

	included := 0
	for _, topic := range summary.Topics {
		included += topic.Included
	}
	a.logger.Info("run finished", "subject", summary.Subject, "records", included)
	return nil
}

// Close releases the database handle, if any.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func newImpactLookup(cfg config.ImpactConfig) (ports.ImpactLookup, error) {
	var chain impact.Chain
	if cfg.TablePath != "" {
		table, err := impact.LoadTable(cfg.TablePath)
		if err != nil {
			return nil, fmt.Errorf("impact table: %w", err)
		}
		chain = append(chain, table)
	}
	chain = append(chain, impact.NewCommandLookup(cfg.Command))

	return impact.NewCachedLookup(chain, cfg.CacheSize)
}

func newTranslator(cfg config.TranslatorConfig) ports.Translator {
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderChatGPT:
		return llm.NewChatGPTTranslator(cfg)
	case config.ProviderLibreTranslate:
		return translate.NewLibreTranslate(cfg.Endpoint, cfg.APIKey)
	default:
		return translate.Identity{}
	}
}
