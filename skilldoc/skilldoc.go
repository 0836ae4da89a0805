// Package skilldoc reads and writes skill documents: Markdown with a YAML
// frontmatter block carrying at least name and description.
package skilldoc

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"go.yaml.in/yaml/v3"
)

// ErrNoFrontmatter is returned by Parse when the document carries no
// frontmatter block at all. Malformed frontmatter is a distinct failure
// and does not match this sentinel.
var ErrNoFrontmatter = errors.New("skill document has no frontmatter")

// Metadata is the recognized frontmatter of a skill document.
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Document is a parsed skill document. Meta holds the full frontmatter
// mapping, including fields beyond the recognized set.
type Document struct {
	Name        string
	Description string
	Body        string
	Meta        map[string]interface{}
}

// Parse reads a skill document. The frontmatter block must be present and
// well-formed YAML; the recognized fields may still be empty, which callers
// check according to their own contract.
func Parse(content []byte) (*Document, error) {
	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "parsing skill document")
	}

	metaData, err := meta.TryGet(pctx)
	if err != nil {
		return nil, errors.Wrap(err, "parsing frontmatter")
	}
	if metaData == nil {
		return nil, ErrNoFrontmatter
	}

	name, _ := metaData["name"].(string)
	description, _ := metaData["description"].(string)

	return &Document{
		Name:        name,
		Description: description,
		Body:        extractBody(string(content)),
		Meta:        metaData,
	}, nil
}

// Compose renders a skill document from frontmatter and a Markdown body.
// The frontmatter is YAML-marshaled so descriptions with special characters
// survive a later Parse.
func Compose(m Metadata, body string) (string, error) {
	fm, err := yaml.Marshal(m)
	if err != nil {
		return "", errors.Wrap(err, "marshaling frontmatter")
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimLeft(body, "\n"))
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	return b.String(), nil
}

// extractBody strips the frontmatter block and returns the Markdown body.
func extractBody(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n")
}
