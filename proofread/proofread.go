// Package proofread checks QMD documentation files for spelling, grammar,
// and terminology problems using the completion model.
package proofread

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/yanbin85/qmdkit/translate"
)

// SystemPrompt is the proofreading instruction sent with every check.
const SystemPrompt = `You are a proofreader for biomedical and bioinformatics documentation.
Check the following text for:
1. Spelling errors
2. Grammar issues
3. Inconsistent terminology
4. Typos

Return a JSON array of issues found, with each issue having:
- line: approximate line number or section
- type: "spelling", "grammar", "terminology", or "typo"
- issue: description of the problem
- suggestion: suggested correction

If no issues found, return an empty array [].`

const (
	// checkTemperature keeps the review deterministic.
	checkTemperature = 0.1
	// checkMaxTokens bounds the issue report.
	checkMaxTokens = 1000
)

const (
	// DefaultBudget is the largest content size, in runes, sent per file.
	DefaultBudget = 8000
	// DefaultBoundary is the smallest fraction of the budget a
	// word-boundary cut may keep.
	DefaultBoundary = 0.8
)

// ---------------------------------------------------------------------------
// Checker
// ---------------------------------------------------------------------------

// Checker submits file content for proofreading, cut down to a size
// budget so oversized documents still fit one request.
type Checker struct {
	// Budget caps the content length, in runes, submitted per file.
	Budget int
	// Boundary is the minimum fraction of Budget a cut keeps when it
	// moves back to the last space.
	Boundary float64
}

// NewChecker returns a Checker with the given limits.
func NewChecker(budget int, boundary float64) *Checker {
	return &Checker{Budget: budget, Boundary: boundary}
}

// Issue is one problem the model reported.
type Issue struct {
	// Line is the model's location hint (a line number or a section).
	Line string
	// Type classifies the problem: spelling, grammar, terminology, typo.
	Type string
	// Text describes the problem.
	Text string
	// Suggestion is the proposed correction.
	Suggestion string
}

// String formats the issue the way check reports print it.
func (i Issue) String() string {
	return fmt.Sprintf("%s: %s - Suggestion: %s", i.Type, i.Text, i.Suggestion)
}

// Report is the outcome of checking one file.
type Report struct {
	// Path is the checked file.
	Path string
	// Issues lists the structured problems found.
	Issues []Issue
	// Freeform carries the model's unstructured feedback when it did
	// not answer with a JSON array.
	Freeform string
	// Truncated is true when the content was cut to fit the budget.
	Truncated bool
}

// Clean reports whether nothing was flagged.
func (r Report) Clean() bool {
	return len(r.Issues) == 0 && r.Freeform == ""
}

// Check submits one file for proofreading. Reading or request failures
// are errors; a model answer that is not valid JSON is not, it becomes
// freeform feedback.
func (c *Checker) Check(ctx context.Context, client translate.Client, path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{Path: path}, fmt.Errorf("reading %s: %w", path, err)
	}

	content, truncated := c.Truncate(string(data))
	report := Report{Path: path, Truncated: truncated}

	resp, err := client.Complete(ctx, translate.Request{
		System:      SystemPrompt,
		User:        content,
		Temperature: checkTemperature,
		MaxTokens:   checkMaxTokens,
	})
	if err != nil {
		return report, fmt.Errorf("checking %s: %w", path, err)
	}

	report.Issues, report.Freeform = parseIssues(resp)
	return report, nil
}

// Truncate cuts content down to the rune budget. The cut moves back to
// the last space when that still keeps at least Boundary of the budget,
// so words are not split mid-way.
func (c *Checker) Truncate(content string) (string, bool) {
	runes := []rune(content)
	if len(runes) <= c.Budget {
		return content, false
	}
	cut := runes[:c.Budget]

	last := -1
	for i := len(cut) - 1; i >= 0; i-- {
		if cut[i] == ' ' {
			last = i
			break
		}
	}
	if float64(last) > float64(c.Budget)*c.Boundary {
		cut = cut[:last]
	}
	return string(cut), true
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

// markdownCodeBlock strips the fenced wrapper models sometimes put
// around JSON output.
var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseIssues interprets the model's answer: a JSON array of issue
// objects when it followed instructions, freeform feedback when it did
// not. An empty answer or an empty array means a clean file.
func parseIssues(resp string) ([]Issue, string) {
	cleaned := strings.TrimSpace(resp)
	if m := markdownCodeBlock.FindStringSubmatch(cleaned); len(m) > 1 {
		cleaned = m[1]
	}

	candidate := cleaned
	if start, end := strings.Index(candidate, "["), strings.LastIndex(candidate, "]"); start >= 0 && end > start {
		candidate = candidate[start : end+1]
	}

	if gjson.Valid(candidate) {
		if parsed := gjson.Parse(candidate); parsed.IsArray() {
			var issues []Issue
			for _, item := range parsed.Array() {
				if !item.IsObject() {
					issues = append(issues, Issue{Type: "issue", Text: item.String()})
					continue
				}
				issue := Issue{
					Line:       item.Get("line").String(),
					Type:       item.Get("type").String(),
					Text:       item.Get("issue").String(),
					Suggestion: item.Get("suggestion").String(),
				}
				if issue.Type == "" {
					issue.Type = "issue"
				}
				issues = append(issues, issue)
			}
			return issues, ""
		}
	}

	if cleaned == "" || cleaned == "[]" {
		return nil, ""
	}
	return nil, cleaned
}
