// Frontmatter title handling. Only the title value changes across a
// translation; every other byte of the frontmatter must survive
// untouched. The title is therefore replaced by line-level splicing,
// not a YAML round-trip.

package qmdfile

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// titleLine matches a top-level title field in frontmatter text.
var titleLine = regexp.MustCompile(`(?m)^title:[ \t]*(.+)$`)

// headingMarks matches leading markdown heading symbols in a title value.
var headingMarks = regexp.MustCompile(`^#+\s*`)

// Title extracts the document title from frontmatter metadata. The value
// is cleared of wrapping quote characters and leading heading markers.
// ok is false when no title field exists or its value is empty.
func Title(meta string) (string, bool) {
	v, found := yamlTitle(meta)
	if !found {
		m := titleLine.FindStringSubmatch(meta)
		if m == nil {
			return "", false
		}
		v = m[1]
	}
	title := cleanTitle(v)
	return title, title != ""
}

// yamlTitle reads the title scalar through the YAML parser, which handles
// quoted and escaped values properly. Malformed YAML (a bare title with a
// colon, say) falls back to the line scan in Title.
func yamlTitle(meta string) (string, bool) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(meta), &node); err != nil || len(node.Content) == 0 {
		return "", false
	}
	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		return "", false
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode := root.Content[i]
		valNode := root.Content[i+1]
		if keyNode.Value != "title" || valNode.Kind != yaml.ScalarNode {
			continue
		}
		return valNode.Value, true
	}
	return "", false
}

func cleanTitle(v string) string {
	v = strings.TrimSpace(v)
	v = strings.Trim(v, `"'`)
	v = headingMarks.ReplaceAllString(v, "")
	return strings.TrimSpace(v)
}

// CleanTranslatedTitle strips heading markers a model may have prefixed
// to a translated title.
func CleanTranslatedTitle(v string) string {
	return strings.TrimSpace(headingMarks.ReplaceAllString(strings.TrimSpace(v), ""))
}

// yamlSpecial lists characters that make a bare scalar unsafe as a YAML
// value.
const yamlSpecial = ":#[]{}|>&*!@`"

// QuoteTitle wraps a title in double quotes when it would not survive as
// a bare YAML scalar: a special character anywhere, a leading quote
// character, or surrounding whitespace triggers quoting. Interior double
// quotes are escaped. Safe titles pass through unchanged.
func QuoteTitle(title string) string {
	needs := strings.ContainsAny(title, yamlSpecial) ||
		strings.HasPrefix(title, `"`) ||
		strings.HasPrefix(title, "'") ||
		title != strings.TrimSpace(title)
	if !needs {
		return title
	}
	return `"` + strings.ReplaceAll(title, `"`, `\"`) + `"`
}

// ReplaceTitle swaps the value of the first title line in meta, leaving
// every other byte untouched. When meta has no title line it is returned
// as is.
func ReplaceTitle(meta, title string) string {
	loc := titleLine.FindStringIndex(meta)
	if loc == nil {
		return meta
	}
	return meta[:loc[0]] + "title: " + title + meta[loc[1]:]
}
