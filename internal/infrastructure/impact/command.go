// Package impact resolves journal names to impact factors.
package impact

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"LiteratureDigest/internal/domain"
	"LiteratureDigest/internal/ports"
)

const defaultCommand = "impact_factor"

var factorExpr = regexp.MustCompile(`"factor"\s*:\s*"?([0-9]+(?:\.[0-9]+)?)`)

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandLookup asks the impact_factor CLI (`impact_factor search <journal>`).
type CommandLookup struct {
	command string
	run     Runner
}

var _ ports.ImpactLookup = (*CommandLookup)(nil)

// NewCommandLookup uses the given binary name; empty means "impact_factor".
func NewCommandLookup(command string) *CommandLookup {
	if command == "" {
		command = defaultCommand
	}
	return &CommandLookup{command: command, run: execRunner}
}

// Lookup runs the CLI and reads the first "factor" value it prints.
func (c *CommandLookup) Lookup(ctx context.Context, journal string) (float64, error) {
	journal = strings.TrimSpace(journal)
	if journal == "" {
		return 0, fmt.Errorf("%w: empty journal name", domain.ErrJournalNotFound)
	}

	out, err := c.run(ctx, c.command, "search", journal)
	if err != nil {
		return 0, fmt.Errorf("%w: %s search %q: %v", domain.ErrFetch, c.command, journal, err)
	}

	return parseFactor(out, journal)
}

func parseFactor(out []byte, journal string) (float64, error) {
	match := factorExpr.FindSubmatch(out)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrJournalNotFound, journal)
	}

	factor, err := strconv.ParseFloat(string(match[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: bad factor %s", domain.ErrJournalNotFound, journal, match[1])
	}
	return factor, nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}
