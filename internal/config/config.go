package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone    = "UTC"
	defaultCallTimeout = 30 * time.Second

	defaultChatGPTEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultLibreEndpoint   = "https://libretranslate.com"

	configPathEnv    = "LITERATURE_DIGEST_CONFIG"
	logLevelEnv      = "LOG_LEVEL"
	mailPasswordEnv  = "MAIL_PASSWORD"
	mailSenderEnv    = "MAIL_SENDER"
	mailRecipientEnv = "MAIL_RECIPIENT"
	mailServerEnv    = "MAIL_SERVER"
	ncbiAPIKeyEnv    = "NCBI_API_KEY"
	ncbiEmailEnv     = "NCBI_EMAIL"
	chatGPTAPIKeyEnv = "CHATGPT_API_KEY"
	libreAPIKeyEnv   = "LIBRETRANSLATE_API_KEY"
	databaseDSNEnv   = "DATABASE_DSN"
)

// Translator providers.
const (
	ProviderChatGPT        = "chatgpt"
	ProviderLibreTranslate = "libretranslate"
	ProviderNone           = "none"
)

// Configuration errors; each one stops the process before any external call.
var (
	ErrNoTopics              = errors.New("at least one topic is required")
	ErrEmptyTopic            = errors.New("topics must not be blank")
	ErrMissingRecipient      = errors.New("mail.recipient is required")
	ErrMissingSender         = errors.New("mail.sender is required")
	ErrMissingCredential     = errors.New("mail.password is required")
	ErrMissingServer         = errors.New("mail.server is required")
	ErrInvalidTLSPolicy      = errors.New("mail.tlsPolicy must be one of: mandatory, opportunistic, none, ssl")
	ErrInvalidWindow         = errors.New("filter.windowDays must be at least 1")
	ErrInvalidTargetLanguage = errors.New("translator.targetLang is not a valid language tag")
	ErrUnknownTranslator     = errors.New("translator.provider must be one of: chatgpt, libretranslate, none")
	ErrMissingTranslatorKey  = errors.New("translator.apiKey is required for chatgpt")
	ErrInvalidLogLevel       = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidTimeout        = errors.New("callTimeout must be positive")
	ErrInvalidTimezone       = errors.New("timezone is not a known IANA location")
	ErrUnreadableFile        = errors.New("config file cannot be read")
)

// Config is the value object built once at startup and passed into the app.
type Config struct {
	Topics      []string         `yaml:"topics"`
	Timezone    string           `yaml:"timezone"`
	CallTimeout time.Duration    `yaml:"callTimeout"`
	Logging     LoggingConfig    `yaml:"logging"`
	Filter      FilterConfig     `yaml:"filter"`
	PubMed      PubMedConfig     `yaml:"pubmed"`
	Impact      ImpactConfig     `yaml:"impact"`
	Translator  TranslatorConfig `yaml:"translator"`
	Mail        MailConfig       `yaml:"mail"`
	Database    DatabaseConfig   `yaml:"database"`

	location *time.Location `yaml:"-"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// FilterConfig tunes the eligibility policy.
type FilterConfig struct {
	WindowDays int `yaml:"windowDays"`
}

// PubMedConfig configures the E-utilities client.
type PubMedConfig struct {
	BaseURL    string `yaml:"baseUrl"`
	Email      string `yaml:"email"`
	Tool       string `yaml:"tool"`
	APIKey     string `yaml:"apiKey"`
	MaxResults int    `yaml:"maxResults"`
}

// ImpactConfig configures impact factor lookups.
type ImpactConfig struct {
	Command   string `yaml:"command"`
	TablePath string `yaml:"tablePath"`
	CacheSize int    `yaml:"cacheSize"`
}

// TranslatorConfig selects and configures the translation backend.
type TranslatorConfig struct {
	Provider     string `yaml:"provider"`
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SourceLang   string `yaml:"sourceLang"`
	TargetLang   string `yaml:"targetLang"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// MailConfig holds SMTP submission settings.
type MailConfig struct {
	Server        string `yaml:"server"`
	Port          int    `yaml:"port"`
	TLSPolicy     string `yaml:"tlsPolicy"`
	Sender        string `yaml:"sender"`
	Recipient     string `yaml:"recipient"`
	Password      string `yaml:"password"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// DatabaseConfig enables the optional run ledger when DSN is set.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// Location resolves the configured timezone.
func (c Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Load reads the YAML file named by LITERATURE_DIGEST_CONFIG (when set) and
// applies environment overrides. An unreadable file is a configuration error.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrUnreadableFile, path, err)
		}
		fileCfg, err := Parse(raw)
		if err != nil {
			return Config{}, err
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Parse decodes a YAML document without applying defaults.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks everything the run needs before touching the network.
func (c *Config) Validate() error {
	if len(c.Topics) == 0 {
		return ErrNoTopics
	}
	for i, topic := range c.Topics {
		if strings.TrimSpace(topic) == "" {
			return fmt.Errorf("%w: topics[%d]", ErrEmptyTopic, i)
		}
	}

	if c.Filter.WindowDays < 1 {
		return ErrInvalidWindow
	}
	if c.CallTimeout <= 0 {
		return ErrInvalidTimeout
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return ErrInvalidLogLevel
	}

	if c.Mail.Recipient == "" {
		return ErrMissingRecipient
	}
	if c.Mail.Sender == "" {
		return ErrMissingSender
	}
	if c.Mail.Password == "" {
		return ErrMissingCredential
	}
	if c.Mail.Server == "" {
		return ErrMissingServer
	}
	switch strings.ToLower(c.Mail.TLSPolicy) {
	case "mandatory", "opportunistic", "none", "ssl":
	default:
		return ErrInvalidTLSPolicy
	}

	if _, err := language.Parse(c.Translator.TargetLang); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTargetLanguage, c.Translator.TargetLang)
	}
	switch c.Translator.Provider {
	case ProviderChatGPT:
		if c.Translator.APIKey == "" {
			return ErrMissingTranslatorKey
		}
	case ProviderLibreTranslate, ProviderNone:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTranslator, c.Translator.Provider)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(mailPasswordEnv); v != "" {
		c.Mail.Password = v
	}
	if v := os.Getenv(mailSenderEnv); v != "" {
		c.Mail.Sender = v
	}
	if v := os.Getenv(mailRecipientEnv); v != "" {
		c.Mail.Recipient = v
	}
	if v := os.Getenv(mailServerEnv); v != "" {
		c.Mail.Server = v
	}

	if v := os.Getenv(ncbiAPIKeyEnv); v != "" {
		c.PubMed.APIKey = v
	}
	if v := os.Getenv(ncbiEmailEnv); v != "" {
		c.PubMed.Email = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" && c.Translator.Provider == ProviderChatGPT {
		c.Translator.APIKey = v
	}
	if v := os.Getenv(libreAPIKeyEnv); v != "" && c.Translator.Provider == ProviderLibreTranslate {
		c.Translator.APIKey = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	c.location = loc
	return nil
}

func mergeConfig(base, override Config) Config {
	if len(override.Topics) > 0 {
		base.Topics = override.Topics
	}
	if override.Timezone != "" {
		base.Timezone = override.Timezone
	}
	if override.CallTimeout != 0 {
		base.CallTimeout = override.CallTimeout
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Filter.WindowDays != 0 {
		base.Filter.WindowDays = override.Filter.WindowDays
	}

	if override.PubMed.BaseURL != "" {
		base.PubMed.BaseURL = override.PubMed.BaseURL
	}
	if override.PubMed.Email != "" {
		base.PubMed.Email = override.PubMed.Email
	}
	if override.PubMed.Tool != "" {
		base.PubMed.Tool = override.PubMed.Tool
	}
	if override.PubMed.APIKey != "" {
		base.PubMed.APIKey = override.PubMed.APIKey
	}
	if override.PubMed.MaxResults != 0 {
		base.PubMed.MaxResults = override.PubMed.MaxResults
	}

	if override.Impact.Command != "" {
		base.Impact.Command = override.Impact.Command
	}
	if override.Impact.TablePath != "" {
		base.Impact.TablePath = override.Impact.TablePath
	}
	if override.Impact.CacheSize != 0 {
		base.Impact.CacheSize = override.Impact.CacheSize
	}

	if override.Translator.Provider != "" {
		base.Translator.Provider = override.Translator.Provider
	}
	if override.Translator.Endpoint != "" {
		base.Translator.Endpoint = override.Translator.Endpoint
	} else if override.Translator.Provider == ProviderLibreTranslate {
		base.Translator.Endpoint = defaultLibreEndpoint
	}
	if override.Translator.Model != "" {
		base.Translator.Model = override.Translator.Model
	}
	if override.Translator.APIKey != "" {
		base.Translator.APIKey = override.Translator.APIKey
	}
	if override.Translator.SourceLang != "" {
		base.Translator.SourceLang = override.Translator.SourceLang
	}
	if override.Translator.TargetLang != "" {
		base.Translator.TargetLang = override.Translator.TargetLang
	}
	if override.Translator.SystemPrompt != "" {
		base.Translator.SystemPrompt = override.Translator.SystemPrompt
	}

	if override.Mail.Server != "" {
		base.Mail.Server = override.Mail.Server
	}
	if override.Mail.Port != 0 {
		base.Mail.Port = override.Mail.Port
	}
	if override.Mail.TLSPolicy != "" {
		base.Mail.TLSPolicy = override.Mail.TLSPolicy
	}
	if override.Mail.Sender != "" {
		base.Mail.Sender = override.Mail.Sender
	}
	if override.Mail.Recipient != "" {
		base.Mail.Recipient = override.Mail.Recipient
	}
	if override.Mail.Password != "" {
		base.Mail.Password = override.Mail.Password
	}
	if override.Mail.SubjectPrefix != "" {
		base.Mail.SubjectPrefix = override.Mail.SubjectPrefix
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Topics: []string{
			"Peptide", "Virus", "CADD", "DOCK", "Molecular Dynamics",
			"SARS-COV-2", "COVID-19", "Drug", "AI",
		},
		Timezone:    defaultTimezone,
		CallTimeout: defaultCallTimeout,
		Logging:     LoggingConfig{Level: "info"},
		Filter:      FilterConfig{WindowDays: 15},
		PubMed: PubMedConfig{
			BaseURL:    "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
			Tool:       "literaturedigest",
			MaxResults: 20,
		},
		Impact: ImpactConfig{Command: "impact_factor", CacheSize: 512},
		Translator: TranslatorConfig{
			Provider:   ProviderChatGPT,
			Endpoint:   defaultChatGPTEndpoint,
			Model:      "gpt-4o-mini",
			SourceLang: "en",
			TargetLang: "zh-CN",
		},
		// Port stays 0 so the TLS policy picks 587 or 465.
		Mail: MailConfig{
			TLSPolicy:     "mandatory",
			SubjectPrefix: "Literature digest",
		},
		location: tz,
	}
}
