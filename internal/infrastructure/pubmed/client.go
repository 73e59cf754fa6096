// Package pubmed implements the record fetcher on top of NCBI E-utilities.
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"LiteratureDigest/internal/domain"
	"LiteratureDigest/internal/ports"
)

const (
	defaultBaseURL    = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	defaultMaxResults = 20
	anonymousRate     = 3
	keyedRate         = 10
	database          = "pubmed"
)

// Options configure the E-utilities client.
type Options struct {
	BaseURL    string
	Email      string
	Tool       string
	APIKey     string
	MaxResults int
	// RequestsPerSecond overrides the NCBI limit derived from APIKey.
	RequestsPerSecond float64
}

// Client searches PubMed and fetches summaries and abstracts one record at a time.
type Client struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ ports.RecordFetcher = (*Client)(nil)

// NewClient wires an HTTP client; nil falls back to a 20 second timeout client.
func NewClient(client *http.Client, opts Options, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = anonymousRate
		if opts.APIKey != "" {
			rps = keyedRate
		}
	}

	return &Client{
		client:  client,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}
}

type esearchResponse struct {
	Result struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
		Error  string   `json:"ERROR"`
	} `json:"esearchresult"`
}

type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type esummaryDoc struct {
	UID        string `json:"uid"`
	Title      string `json:"title"`
	Source     string `json:"source"`
	PubDate    string `json:"pubdate"`
	LastAuthor string `json:"lastauthor"`
	Error      string `json:"error"`
	History    []struct {
		PubStatus string `json:"pubstatus"`
		Date      string `json:"date"`
	} `json:"history"`
}

// Search returns PMIDs for the keyword in PubMed's relevance order.
func (c *Client) Search(ctx context.Context, topic domain.Topic) ([]string, error) {
	params := url.Values{}
	params.Set("term", string(topic))
	params.Set("retmode", "json")
	params.Set("retmax", strconv.Itoa(c.opts.MaxResults))

	var resp esearchResponse
	if err := c.getJSON(ctx, "esearch.fcgi", params, &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", topic, err)
	}
	if resp.Result.Error != "" {
		return nil, fmt.Errorf("search %q: %w: %s", topic, domain.ErrFetch, resp.Result.Error)
	}

	c.debug("search done", "topic", string(topic), "count", resp.Result.Count, "ids", len(resp.Result.IDList))
	return resp.Result.IDList, nil
}

// FetchSummary returns title, journal, publication date and last author of a record.
// The publication date is the PubMed history entry, falling back to pubdate.
func (c *Client) FetchSummary(ctx context.Context, id string) (domain.RecordSummary, error) {
	params := url.Values{}
	params.Set("id", id)
	params.Set("retmode", "json")

	var resp esummaryResponse
	if err := c.getJSON(ctx, "esummary.fcgi", params, &resp); err != nil {
		return domain.RecordSummary{}, fmt.Errorf("summary %s: %w", id, err)
	}

	raw, ok := resp.Result[id]
	if !ok {
		return domain.RecordSummary{}, fmt.Errorf("summary %s: %w: record missing from response", id, domain.ErrFetch)
	}

	var doc esummaryDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.RecordSummary{}, fmt.Errorf("summary %s: decode: %w", id, err)
	}
	if doc.Error != "" {
		return domain.RecordSummary{}, fmt.Errorf("summary %s: %w: %s", id, domain.ErrFetch, doc.Error)
	}

	published := normalizePubDate(doc.PubDate)
	for _, h := range doc.History {
		if h.PubStatus == "pubmed" && h.Date != "" {
			published = h.Date
			break
		}
	}

	uid := doc.UID
	if uid == "" {
		uid = id
	}

	return domain.RecordSummary{
		ID:              uid,
		Title:           strings.TrimSpace(doc.Title),
		Journal:         strings.TrimSpace(doc.Source),
		PublicationDate: published,
		LastAuthor:      strings.TrimSpace(doc.LastAuthor),
	}, nil
}

// FetchAbstract returns the abstract text, or domain.AbstractPlaceholder when
// the record has none. Structured abstracts keep their section labels.
func (c *Client) FetchAbstract(ctx context.Context, id string) (string, error) {
	params := url.Values{}
	params.Set("id", id)
	params.Set("rettype", "abstract")
	params.Set("retmode", "xml")

	body, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return "", fmt.Errorf("abstract %s: %w", id, err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("abstract %s: parse document: %w", id, err)
	}

	abstract := extractAbstract(doc)
	if abstract == "" {
		c.debug("record has no abstract", "id", id)
		return domain.AbstractPlaceholder, nil
	}
	return abstract, nil
}

// pubDateLayouts cover esummary pubdate values such as "2021 Dec 2", "2021 Dec"
// and "2021"; ranges like "2021 Nov-Dec" or "2021 Dec 2-8" keep their start.
var pubDateLayouts = []string{"2006 Jan 2", "2006 Jan", "2006"}

// normalizePubDate rewrites a pubdate into "2006/01/02" so the eligibility
// parser can read it. Values it does not recognize are returned unchanged.
func normalizePubDate(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) > 3 {
		fields = fields[:3]
	}
	for i, f := range fields {
		if j := strings.IndexByte(f, '-'); j > 0 {
			fields[i] = f[:j]
		}
	}
	value := strings.Join(fields, " ")
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006/01/02")
		}
	}
	return raw
}

func extractAbstract(doc *goquery.Document) string {
	var parts []string
	doc.Find("abstract abstracttext").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		if label, ok := s.Attr("label"); ok && strings.TrimSpace(label) != "" {
			text = strings.TrimSpace(label) + ": " + text
		}
		parts = append(parts, text)
	})
	return strings.Join(parts, "\n")
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, v any) error {
	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (io.ReadCloser, error) {
	pageURL, err := c.buildURL(endpoint, params)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "LiteratureDigest/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request %s: %v", domain.ErrFetch, endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", domain.ErrFetch, endpoint, resp.Status)
	}

	return resp.Body, nil
}

func (c *Client) buildURL(endpoint string, params url.Values) (string, error) {
	parsed, err := url.Parse(strings.TrimSuffix(c.opts.BaseURL, "/") + "/" + endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid eutils url %s: %w", c.opts.BaseURL, err)
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("db", database)
	if c.opts.Tool != "" {
		query.Set("tool", c.opts.Tool)
	}
	if c.opts.Email != "" {
		query.Set("email", c.opts.Email)
	}
	if c.opts.APIKey != "" {
		query.Set("api_key", c.opts.APIKey)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
