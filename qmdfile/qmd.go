// Package qmdfile implements splitting and reassembly of QMD documents.
//
// A QMD file is an optional YAML frontmatter block (between --- delimiter
// lines) followed by a markdown body. Before translation the body's fenced
// code regions are shielded behind numbered placeholders so the model
// cannot disturb them; afterwards the placeholders are substituted back
// verbatim.
package qmdfile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// Document model
// ---------------------------------------------------------------------------

// Document is a QMD file split into frontmatter and body.
type Document struct {
	// Frontmatter is the raw delimited block at the start of the file,
	// including both delimiter lines. Empty when the file has none.
	Frontmatter string
	// Meta is the YAML text between the delimiter lines.
	Meta string
	// Body is everything after the frontmatter block.
	Body string
}

// frontmatterBlock matches a YAML frontmatter block at the start of the
// file: a line of three or more dashes, content, and a closing dash line.
// Blank lines after the closing delimiter belong to the block, so Body
// starts at the first content character.
var frontmatterBlock = regexp.MustCompile(`(?s)^-{3,}\s*\n(.*?)\n-{3,}\s*\n`)

// Split separates an optional leading frontmatter block from the body.
// Absence of frontmatter is not an error: the whole content becomes Body.
func Split(content string) Document {
	m := frontmatterBlock.FindStringSubmatchIndex(content)
	if m == nil {
		return Document{Body: content}
	}
	return Document{
		Frontmatter: content[:m[1]],
		Meta:        content[m[2]:m[3]],
		Body:        content[m[1]:],
	}
}

// SplitFile reads and splits a QMD file.
func SplitFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Split(string(data)), nil
}

// Join reassembles the document exactly as it was split.
func (d Document) Join() string {
	return d.Frontmatter + d.Body
}

// HasFrontmatter reports whether the document carries a frontmatter block.
func (d Document) HasFrontmatter() bool {
	return d.Frontmatter != ""
}

// ---------------------------------------------------------------------------
// Code-block shielding
// ---------------------------------------------------------------------------

// codeFence matches fenced code regions: three or more backticks with an
// optional info string (```{r}, ```python), content, and a closing fence.
var codeFence = regexp.MustCompile("(?s)`{3,}[^\n]*\n.*?\n`{3,}")

// Shielded is a body whose fenced code regions were swapped for
// placeholders.
type Shielded struct {
	// Text is the body with each fence replaced by an indexed placeholder.
	Text string
	// Blocks holds the original fenced regions in order of appearance.
	Blocks []string
}

// Placeholder returns the token standing in for block i.
func Placeholder(i int) string {
	return fmt.Sprintf("<<<CODE_BLOCK_%d>>>", i)
}

// Shield extracts fenced code regions from body text, replacing each with
// a numbered placeholder. An unterminated fence has no closing match and
// stays in the text.
func Shield(body string) Shielded {
	var blocks []string
	text := codeFence.ReplaceAllStringFunc(body, func(block string) string {
		blocks = append(blocks, block)
		return Placeholder(len(blocks) - 1)
	})
	return Shielded{Text: text, Blocks: blocks}
}

// Restore substitutes every placeholder in text with its original block.
// Replacement is plain and order-independent: placeholders the model
// moved are restored in place, placeholders it mangled stay as they are.
// Use Lost to find blocks that can no longer be restored.
func (s Shielded) Restore(text string) string {
	for i, block := range s.Blocks {
		text = strings.ReplaceAll(text, Placeholder(i), block)
	}
	return text
}

// Lost reports the indexes of blocks whose placeholder no longer occurs
// in text and which Restore therefore cannot bring back.
func (s Shielded) Lost(text string) []int {
	var lost []int
	for i := range s.Blocks {
		if !strings.Contains(text, Placeholder(i)) {
			lost = append(lost, i)
		}
	}
	return lost
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// WriteFile writes a reassembled document, creating the target directory
// first. The content is written in one operation.
func WriteFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
