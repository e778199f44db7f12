// Package eval drives the search operation with a list of test cases and
// reports hit-rate and latency summaries. Case files are JSON or YAML and
// form the store's acceptance-testing protocol.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Xerophayze/ragstore"
	"github.com/Xerophayze/ragstore/search"
)

// Case is one evaluation query with optional expectations.
type Case struct {
	Query            string         `json:"query" yaml:"query"`
	ExpectedKeywords []string       `json:"expected_keywords,omitempty" yaml:"expected_keywords,omitempty"`
	ExpectedDoc      string         `json:"expected_doc,omitempty" yaml:"expected_doc,omitempty"`
	Filters          map[string]any `json:"filters,omitempty" yaml:"filters,omitempty"`
	TopK             int            `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	Notes            string         `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// CaseResult is the outcome of one evaluated case.
type CaseResult struct {
	Case           Case    `json:"case"`
	Results        int     `json:"results"`
	KeywordHit     bool    `json:"keyword_hit"`
	DocHit         bool    `json:"doc_hit"`
	BestSimilarity float64 `json:"best_similarity"`
	LatencyMS      int64   `json:"latency_ms"`
	Error          string  `json:"error,omitempty"`
}

// Summary aggregates a full run.
type Summary struct {
	Cases             int     `json:"cases"`
	KeywordHitRate    float64 `json:"keyword_hit_rate"`
	DocHitRate        float64 `json:"doc_hit_rate"`
	NonEmptyRate      float64 `json:"non_empty_rate"`
	BestSimilarityAvg float64 `json:"best_similarity_avg"`
	LatencyAvgMS      float64 `json:"latency_avg_ms"`
	LatencyP95MS      int64   `json:"latency_p95_ms"`
}

// Report is the full output of a run.
type Report struct {
	Database    string       `json:"database"`
	GeneratedAt string       `json:"generated_at"`
	Summary     Summary      `json:"summary"`
	Cases       []CaseResult `json:"cases"`
}

// LoadCases reads a case list from a JSON or YAML file, chosen by extension.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cases: %w", err)
	}

	var cases []Case
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cases); err != nil {
			return nil, fmt.Errorf("parsing YAML cases: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cases); err != nil {
			return nil, fmt.Errorf("parsing JSON cases: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported case file format: %s", filepath.Ext(path))
	}

	for i, c := range cases {
		if strings.TrimSpace(c.Query) == "" {
			return nil, fmt.Errorf("case %d has an empty query", i)
		}
	}
	return cases, nil
}

// Runner evaluates cases against one database.
type Runner struct {
	manager     *ragstore.Manager
	defaultTopK int
}

// NewRunner creates a Runner. defaultTopK applies to cases without their own.
func NewRunner(m *ragstore.Manager, defaultTopK int) *Runner {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &Runner{manager: m, defaultTopK: defaultTopK}
}

// Run evaluates all cases and aggregates a report. Eval searches skip the
// metrics log so benchmark runs don't pollute production telemetry.
func (r *Runner) Run(ctx context.Context, db string, cases []Case) (*Report, error) {
	results := make([]CaseResult, 0, len(cases))

	for i, c := range cases {
		topK := c.TopK
		if topK <= 0 {
			topK = r.defaultTopK
		}

		start := time.Now()
		found, err := r.manager.Search(ctx, db, c.Query,
			ragstore.WithTopK(topK),
			ragstore.WithFilters(c.Filters),
			ragstore.WithoutMetrics(),
		)
		latency := time.Since(start).Milliseconds()

		cr := CaseResult{Case: c, LatencyMS: latency}
		if err != nil {
			cr.Error = err.Error()
		} else {
			cr.Results = len(found)
			cr.KeywordHit = keywordHit(found, c.ExpectedKeywords)
			cr.DocHit = docHit(found, c.ExpectedDoc)
			cr.BestSimilarity = bestSimilarity(found)
		}
		results = append(results, cr)

		slog.Info("eval: case complete", "case", i+1, "of", len(cases),
			"results", cr.Results, "keyword_hit", cr.KeywordHit, "latency_ms", latency)
	}

	return &Report{
		Database:    db,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Summary:     summarize(results),
		Cases:       results,
	}, nil
}

// keywordHit reports whether any single result contains all expected
// keywords (case-insensitive substring match).
func keywordHit(results []search.Result, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	for _, res := range results {
		content := strings.ToLower(res.Content)
		all := true
		for _, kw := range keywords {
			if !strings.Contains(content, strings.ToLower(kw)) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// docHit reports whether any result came from the expected document, matched
// by source name or doc_id.
func docHit(results []search.Result, expected string) bool {
	if expected == "" {
		return false
	}
	for _, res := range results {
		if res.Source == expected || res.DocID == expected {
			return true
		}
	}
	return false
}

func bestSimilarity(results []search.Result) float64 {
	best := 0.0
	for _, res := range results {
		if res.Similarity > best {
			best = res.Similarity
		}
	}
	return best
}

func summarize(results []CaseResult) Summary {
	s := Summary{Cases: len(results)}
	if len(results) == 0 {
		return s
	}

	keywordCases, keywordHits := 0, 0
	docCases, docHits := 0, 0
	nonEmpty := 0
	var simSum float64
	var latencySum int64
	latencies := make([]int64, 0, len(results))

	for _, r := range results {
		if len(r.Case.ExpectedKeywords) > 0 {
			keywordCases++
			if r.KeywordHit {
				keywordHits++
			}
		}
		if r.Case.ExpectedDoc != "" {
			docCases++
			if r.DocHit {
				docHits++
			}
		}
		if r.Results > 0 {
			nonEmpty++
		}
		simSum += r.BestSimilarity
		latencySum += r.LatencyMS
		latencies = append(latencies, r.LatencyMS)
	}

	if keywordCases > 0 {
		s.KeywordHitRate = float64(keywordHits) / float64(keywordCases)
	}
	if docCases > 0 {
		s.DocHitRate = float64(docHits) / float64(docCases)
	}
	s.NonEmptyRate = float64(nonEmpty) / float64(len(results))
	s.BestSimilarityAvg = simSum / float64(len(results))
	s.LatencyAvgMS = float64(latencySum) / float64(len(results))

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	p95 := int(float64(len(latencies))*0.95) - 1
	if p95 < 0 {
		p95 = 0
	}
	s.LatencyP95MS = latencies[p95]
	return s
}

// FormatReport renders a human-readable summary.
func FormatReport(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Database: %s\n", r.Database)
	fmt.Fprintf(&b, "Cases: %d\n", r.Summary.Cases)
	fmt.Fprintf(&b, "Keyword hit rate: %.1f%%\n", r.Summary.KeywordHitRate*100)
	fmt.Fprintf(&b, "Doc hit rate: %.1f%%\n", r.Summary.DocHitRate*100)
	fmt.Fprintf(&b, "Non-empty results: %.1f%%\n", r.Summary.NonEmptyRate*100)
	fmt.Fprintf(&b, "Best similarity (avg): %.3f\n", r.Summary.BestSimilarityAvg)
	fmt.Fprintf(&b, "Latency: avg %.1fms, p95 %dms\n", r.Summary.LatencyAvgMS, r.Summary.LatencyP95MS)
	return b.String()
}
