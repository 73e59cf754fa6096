package domain

import "time"

// AbstractPlaceholder stands in for records that carry no abstract.
const AbstractPlaceholder = "?"

// Topic is one keyword driving one literature search.
type Topic string

// RecordSummary is the metadata fetched for a single PubMed record.
type RecordSummary struct {
	ID              string
	Title           string
	Journal         string
	PublicationDate string
	LastAuthor      string
}

// EligibleRecord is a record that passed both the recency and impact filters.
type EligibleRecord struct {
	Summary            RecordSummary
	PublishedAt        time.Time
	AbstractOriginal   string
	AbstractTranslated string
	ImpactFactor       float64
	Stars              int
}

// TopicReport holds the eligible records of one topic in search order.
type TopicReport struct {
	Keyword string
	Records []EligibleRecord
}

// TopicStats is the per-topic accounting reported to operators.
type TopicStats struct {
	Keyword    string
	Considered int
	Included   int
	Skipped    int
	Err        error
}

// RunSummary describes one digest run for the run ledger.
type RunSummary struct {
	StartedAt time.Time
	Subject   string
	Topics    []TopicStats
	Delivered bool
}
