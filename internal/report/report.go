// Package report renders eligible records into the plain-text digest.
//
// Record fields are handed to text/template as data, so an abstract that
// happens to contain template markers is written out verbatim.
package report

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/mattn/go-runewidth"

	"LiteratureDigest/internal/domain"
)

const blockTemplate = `[{{.Ordinal}}] {{stars .Stars}}

+ Title: {{.Title}}

+ Journal: {{.Journal}} (IF {{printf "%.3f" .ImpactFactor}})

+ Published: {{.Published}}

+ Last author: {{.LastAuthor}}

+ PMID: {{.ID}}

+ summary:

{{quote .Translated}}

+ Abstract:

{{quote .Original}}

`

const topicTemplate = `{{.Keyword}}
{{underline .Keyword}}

`

var funcs = template.FuncMap{
	"stars":     stars,
	"quote":     quote,
	"underline": underline,
}

var (
	blockTmpl = template.Must(template.New("block").Funcs(funcs).Parse(blockTemplate))
	topicTmpl = template.Must(template.New("topic").Funcs(funcs).Parse(topicTemplate))
)

type blockView struct {
	Ordinal      int
	Stars        int
	Title        string
	Journal      string
	ImpactFactor float64
	Published    string
	LastAuthor   string
	ID           string
	Translated   string
	Original     string
}

// RenderBlock renders one eligible record with its ordinal inside the topic.
func RenderBlock(record domain.EligibleRecord, ordinal int) (string, error) {
	view := blockView{
		Ordinal:      ordinal,
		Stars:        record.Stars,
		Title:        record.Summary.Title,
		Journal:      record.Summary.Journal,
		ImpactFactor: record.ImpactFactor,
		Published:    record.Summary.PublicationDate,
		LastAuthor:   record.Summary.LastAuthor,
		ID:           record.Summary.ID,
		Translated:   record.AbstractTranslated,
		Original:     record.AbstractOriginal,
	}

	var sb strings.Builder
	if err := blockTmpl.Execute(&sb, view); err != nil {
		return "", fmt.Errorf("render record %s: %w", record.Summary.ID, err)
	}
	return sb.String(), nil
}

// RenderTopic renders the topic heading followed by its records numbered from 1.
// A topic without records renders its heading only.
func RenderTopic(keyword string, records []domain.EligibleRecord) (string, error) {
	var sb strings.Builder
	if err := topicTmpl.Execute(&sb, struct{ Keyword string }{Keyword: keyword}); err != nil {
		return "", fmt.Errorf("render topic %s: %w", keyword, err)
	}

	for i, record := range records {
		block, err := RenderBlock(record, i+1)
		if err != nil {
			return "", err
		}
		sb.WriteString(block)
	}

	return sb.String(), nil
}

// RenderDigest concatenates every topic in the given order. Records that appear
// under several topics are rendered under each of them.
func RenderDigest(reports []domain.TopicReport) (string, error) {
	var sb strings.Builder
	for _, r := range reports {
		topic, err := RenderTopic(r.Keyword, r.Records)
		if err != nil {
			return "", err
		}
		sb.WriteString(topic)
	}
	return sb.String(), nil
}

func stars(n int) string {
	if n <= 0 {
		return "-"
	}
	return strings.Repeat("★", n)
}

func quote(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		lines[i] = "> " + strings.TrimRight(line, " \t\r")
	}
	return strings.Join(lines, "\n")
}

func underline(text string) string {
	width := runewidth.StringWidth(text)
	if width == 0 {
		width = 1
	}
	return strings.Repeat("=", width)
}
