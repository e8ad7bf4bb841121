package markdown

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a Markdown file split into YAML frontmatter and body.
type Document struct {
	Frontmatter map[string]any
	Body        string
}

// ParseFile reads an exported article file from disk.
func ParseFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse splits r into frontmatter and body. Frontmatter is only recognised at
// the very top, between two lines containing only "---".
func Parse(r io.Reader) (Document, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(3)
	if err != nil && !errors.Is(err, io.EOF) {
		return Document{}, err
	}
	hasFM := string(peek) == "---"

	var fm, body strings.Builder
	inFM := hasFM
	first := true
	for {
		l, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Document{}, err
		}
		switch {
		case first && hasFM:
			// opening delimiter
		case inFM && strings.TrimSpace(l) == "---":
			inFM = false
		case inFM:
			fm.WriteString(l)
		default:
			body.WriteString(l)
		}
		first = false
		if errors.Is(err, io.EOF) {
			break
		}
	}

	d := Document{Frontmatter: map[string]any{}, Body: body.String()}
	if hasFM {
		if err := yaml.Unmarshal([]byte(fm.String()), &d.Frontmatter); err != nil {
			return Document{}, err
		}
		if d.Frontmatter == nil {
			d.Frontmatter = map[string]any{}
		}
	}
	return d, nil
}
