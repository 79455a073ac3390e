// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/outreach-labs/contact-pipeline/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintResolvedDomain outputs the domain waterfall's verdict for a company.
func (p *Printer) PrintResolvedDomain(companyName string, resolved *types.ResolvedDomain, stages []string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:  %s\n", companyName))

	if resolved == nil {
		sb.WriteString("Domain:   (unresolved)\n")
	} else {
		sb.WriteString(fmt.Sprintf("Domain:   %s\n", resolved.Domain))
		sb.WriteString(fmt.Sprintf("Conf:     %d  method=%s", resolved.Confidence, resolved.Method))
		if resolved.Verified {
			sb.WriteString("  ✓verified")
		}
		if resolved.NeedsManualReview {
			sb.WriteString("  ⚠review")
		}
		sb.WriteString("\n")
	}

	if len(stages) > 0 {
		sb.WriteString(fmt.Sprintf("Stages:   %s", strings.Join(stages, " → ")))
	}

	p.printBox("DOMAIN RESOLUTION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintScoredContacts outputs the top scored contacts with their itemized
// scoring reasons.
func (p *Printer) PrintScoredContacts(contacts []types.ScoredContact) {
	if len(contacts) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "NO VALID CONTACTS FOUND")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Valid contacts: %d\n\n", len(contacts)))

	count := min(len(contacts), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := contacts[i]
		sb.WriteString(fmt.Sprintf("#%d  %s", i+1, c.Candidate.Name))
		if c.Candidate.Title != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", c.Candidate.Title))
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("    Score: %d  source=%s\n", c.Score, c.Candidate.Source))
		for _, reason := range c.Reasons {
			sb.WriteString(fmt.Sprintf("      %s\n", reason))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(contacts) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more contacts", len(contacts)-maxItemsToShow))
	}

	p.printBox("SCORED CONTACTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBatchSummary outputs aggregate counters for a finished batch.
func (p *Printer) PrintBatchSummary(results []types.PipelineResult, totalCost float64) {
	var resolved, noCandidates, errored, validContacts int
	for i := range results {
		switch results[i].Outcome {
		case types.OutcomeResolved:
			resolved++
		case types.OutcomeNoCandidates:
			noCandidates++
		case types.OutcomeError:
			errored++
		}
		validContacts += results[i].ValidCount()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Companies:      %d\n", len(results)))
	sb.WriteString(fmt.Sprintf("Resolved:       %d\n", resolved))
	sb.WriteString(fmt.Sprintf("No candidates:  %d\n", noCandidates))
	sb.WriteString(fmt.Sprintf("Errors:         %d\n", errored))
	sb.WriteString(fmt.Sprintf("Valid contacts: %d\n", validContacts))
	sb.WriteString(fmt.Sprintf("Total cost:     $%.2f", totalCost))
	if validContacts > 0 {
		sb.WriteString(fmt.Sprintf("\nCost per valid: $%.2f", totalCost/float64(validContacts)))
	}

	p.printBox("BATCH SUMMARY", sb.String())
}
