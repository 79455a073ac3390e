// Package pipeline orchestrates the domain and contact waterfalls over a
// batch of companies and handles the JSONL input/output surfaces.
package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/outreach-labs/contact-pipeline/internal/schemas"
	"github.com/outreach-labs/contact-pipeline/internal/types"
)

// maxLineBytes bounds one JSONL input line.
const maxLineBytes = 1 << 20

// InvalidLine records an input line rejected before any connector call.
type InvalidLine struct {
	LineNo int
	Raw    string
	Err    error
}

// ReadCompanies parses JSONL company records from r. Each line is validated
// against the embedded schema, then structurally; invalid lines are returned
// separately so the batch continues with the valid ones. Records without an
// ID get a generated one so results stay joinable to telemetry.
func ReadCompanies(r io.Reader) ([]types.CompanyRecord, []InvalidLine, error) {
	var records []types.CompanyRecord
	var invalid []InvalidLine

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := schemas.ValidateCompanyRecordLine(line); err != nil {
			invalid = append(invalid, InvalidLine{LineNo: lineNo, Raw: line, Err: err})
			continue
		}

		var rec types.CompanyRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			invalid = append(invalid, InvalidLine{LineNo: lineNo, Raw: line, Err: err})
			continue
		}
		if err := types.ValidateCompanyRecord(&rec); err != nil {
			invalid = append(invalid, InvalidLine{LineNo: lineNo, Raw: line, Err: err})
			continue
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, invalid, fmt.Errorf("failed to read input: %w", err)
	}
	return records, invalid, nil
}

// ReviewItem is one entry on the manual-review stream: a domain resolution or
// a gray-zone contact a human should look at.
type ReviewItem struct {
	CompanyID   string                `json:"company_id"`
	CompanyName string                `json:"company_name"`
	Kind        string                `json:"kind"` // "domain" or "contact"
	Domain      *types.ResolvedDomain `json:"domain,omitempty"`
	Contact     *types.ScoredContact  `json:"contact,omitempty"`
}

// ResultWriter serializes results and review items as JSONL. Safe for
// concurrent use; worker goroutines write results as they finish.
type ResultWriter struct {
	mu      sync.Mutex
	results *json.Encoder
	review  *json.Encoder
}

// NewResultWriter writes results to out and review items to review. A nil
// review writer drops review items.
func NewResultWriter(out, review io.Writer) *ResultWriter {
	w := &ResultWriter{results: json.NewEncoder(out)}
	if review != nil {
		w.review = json.NewEncoder(review)
	}
	return w
}

// WriteResult appends one PipelineResult line.
func (w *ResultWriter) WriteResult(result *types.PipelineResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.results.Encode(result)
}

// WriteReview appends one manual-review line.
func (w *ResultWriter) WriteReview(item ReviewItem) error {
	if w.review == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.review.Encode(item)
}
