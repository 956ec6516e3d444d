// Package lang resolves the language identity of QMD documentation files.
//
// Only English and Chinese are supported. A file's language is decided by
// filename convention first (name.qmd is English, name.zh.qmd is Chinese)
// and by content inspection when the filename carries some other language
// marker. Paired translation paths toggle the Chinese marker before the
// extension.
package lang

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ext is the document extension the filename rules operate on.
const ext = ".qmd"

// chineseMarker is the filename marker placed before the extension.
const chineseMarker = ".zh"

// ---------------------------------------------------------------------------
// Tags and metadata
// ---------------------------------------------------------------------------

// Tag identifies one of the two supported languages.
type Tag string

const (
	English Tag = "en"
	Chinese Tag = "zh"
)

// Meta describes language display metadata.
type Meta struct {
	// Tag is the language code.
	Tag Tag
	// Name is the English name, used when composing model prompts.
	Name string
	// Native is the language's own name, used in CLI output.
	Native string
	// Suffix is the filename marker before the extension (empty for English).
	Suffix string
}

var registry = map[Tag]Meta{
	English: {Tag: English, Name: "English", Native: "English", Suffix: ""},
	Chinese: {Tag: Chinese, Name: "Chinese", Native: "中文", Suffix: "zh"},
}

// Info returns metadata for a tag. Unknown tags resolve to English.
func Info(t Tag) Meta {
	if m, ok := registry[t]; ok {
		return m
	}
	return registry[English]
}

// Parse normalizes a user-supplied language code into a Tag.
func Parse(s string) (Tag, error) {
	switch Tag(strings.ToLower(strings.TrimSpace(s))) {
	case English:
		return English, nil
	case Chinese:
		return Chinese, nil
	}
	return "", fmt.Errorf("unsupported language %q (supported: en, zh)", s)
}

// Opposite returns the other member of the en/zh pair.
func Opposite(t Tag) Tag {
	if t == Chinese {
		return English
	}
	return Chinese
}

// ---------------------------------------------------------------------------
// Filename rules
// ---------------------------------------------------------------------------

// fileRule matches a base filename and either fixes a language or defers
// the file to content detection.
type fileRule struct {
	name    string
	matches func(base string) bool
	tag     Tag
	decided bool
}

// fileRules is evaluated in order; the first matching rule wins.
var fileRules = []fileRule{
	{
		name:    "chinese marker",
		matches: func(base string) bool { return strings.HasSuffix(base, chineseMarker+ext) },
		tag:     Chinese,
		decided: true,
	},
	{
		// A 2-3 letter marker other than .zh (name.fr.qmd, name.CSV.qmd)
		// is untrusted: the file goes to content detection.
		name:    "foreign marker",
		matches: hasForeignMarker,
		decided: false,
	},
	{
		name:    "plain extension",
		matches: func(base string) bool { return strings.HasSuffix(base, ext) },
		tag:     English,
		decided: true,
	},
}

func hasForeignMarker(base string) bool {
	if !strings.HasSuffix(base, ext) {
		return false
	}
	stem := strings.TrimSuffix(base, ext)
	i := strings.LastIndexByte(stem, '.')
	if i < 0 {
		return false
	}
	marker := stem[i+1:]
	if n := utf8.RuneCountInString(marker); n < 2 || n > 3 {
		return false
	}
	for _, c := range marker {
		if !unicode.IsLetter(c) {
			return false
		}
	}
	return true
}

// FromFilename reports the language implied by a file's name. ok is false
// when the name does not decide a language and content detection must be
// consulted instead.
func FromFilename(path string) (tag Tag, ok bool) {
	base := filepath.Base(path)
	for _, r := range fileRules {
		if r.matches(base) {
			return r.tag, r.decided
		}
	}
	return "", false
}

// PairPath computes the translation output path for a QMD file by adding
// or removing the Chinese marker before the extension:
//
//	intro.qmd     -> intro.zh.qmd
//	intro.zh.qmd  -> intro.qmd
//	guide.fr.qmd  -> guide.fr.zh.qmd
func PairPath(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	e := filepath.Ext(base)
	stem := strings.TrimSuffix(base, e)
	if strings.HasSuffix(stem, chineseMarker) {
		return filepath.Join(dir, strings.TrimSuffix(stem, chineseMarker)+e)
	}
	return filepath.Join(dir, stem+chineseMarker+e)
}

// ---------------------------------------------------------------------------
// Resolver
// ---------------------------------------------------------------------------

// Rule names how a file's source language was determined.
type Rule string

const (
	// RuleFilename means the filename convention decided.
	RuleFilename Rule = "filename"
	// RuleContent means the content heuristic decided.
	RuleContent Rule = "content"
)

// DefaultThreshold is the conventional detection ratio: content counts as
// Chinese when Han characters outnumber 30% of the Latin letters.
const DefaultThreshold = 0.3

// Resolver decides translation directions for documents.
type Resolver struct {
	// Threshold is the Chinese-to-Latin character ratio above which
	// content counts as Chinese.
	Threshold float64
}

// NewResolver returns a Resolver using the given detection threshold.
func NewResolver(threshold float64) *Resolver {
	return &Resolver{Threshold: threshold}
}

// Detect classifies content as English or Chinese by comparing the count
// of Han ideographs against the count of Latin letters scaled by the
// threshold. Empty content is English.
func (r *Resolver) Detect(content string) Tag {
	var han, latin int
	for _, c := range content {
		switch {
		case c >= 0x4E00 && c <= 0x9FFF:
			han++
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			latin++
		}
	}
	if float64(han) > float64(latin)*r.Threshold {
		return Chinese
	}
	return English
}

// Resolution describes how a translation direction was determined.
type Resolution struct {
	// Source is the resolved source language.
	Source Tag
	// Target is the resolved target language.
	Target Tag
	// Rule names how Source was determined.
	Rule Rule
	// Detected is what content inspection saw, kept for diagnostics.
	Detected Tag
	// Mismatch is true when the filename decided Source but the content
	// looked like the other language.
	Mismatch bool
}

// Resolve determines the translation direction for one document. body is
// the document body used for content detection. explicit, when non-empty,
// fixes the target language exactly as given; otherwise a language implied
// by the output filename is used when it differs from the source, and the
// opposite of the source is the final fallback.
func (r *Resolver) Resolve(inputPath, outputPath, body string, explicit Tag) Resolution {
	detected := r.Detect(body)

	res := Resolution{Detected: detected}
	if tag, ok := FromFilename(inputPath); ok {
		res.Source = tag
		res.Rule = RuleFilename
		res.Mismatch = detected != tag
	} else {
		res.Source = detected
		res.Rule = RuleContent
	}

	if explicit != "" {
		res.Target = explicit
		return res
	}
	if tag, ok := FromFilename(outputPath); ok && tag != res.Source {
		res.Target = tag
		return res
	}
	res.Target = Opposite(res.Source)
	return res
}
