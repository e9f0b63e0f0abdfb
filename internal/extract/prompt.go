package extract

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/codevakure/lonb/internal/kb"
	"github.com/codevakure/lonb/internal/schema"
)

//go:embed extract.tmpl
var promptText string

var promptTmpl = template.Must(template.New("extract").Parse(promptText))

type promptData struct {
	Context   string
	Schema    string
	Citations bool
}

// BuildPrompt renders the extraction prompt for one document. Both variants
// come from the same template; withCitations switches the context labeling
// and the requested output shape.
func BuildPrompt(def *schema.Definition, chunks []kb.Chunk, withCitations bool) (string, error) {
	schemaJSON, err := def.Indented()
	if err != nil {
		return "", err
	}

	data := promptData{
		Schema:    schemaJSON,
		Citations: withCitations,
	}
	if withCitations {
		data.Context = labeledContext(chunks)
	} else {
		data.Context = plainContext(chunks)
	}
	if data.Context == "" {
		return "", fmt.Errorf("no chunk contains usable text")
	}

	var b strings.Builder
	if err := promptTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render extraction prompt: %w", err)
	}
	return b.String(), nil
}

// plainContext joins chunk texts with a visible separator.
func plainContext(chunks []kb.Chunk) string {
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk.Text == "" {
			continue
		}
		texts = append(texts, chunk.Text)
	}
	return strings.Join(texts, "\n\n---\n\n")
}

// labeledContext numbers each chunk by its position in the retrieval result
// so that CHUNK_n references in the response resolve back to it. Empty
// chunks are skipped but keep their position in the numbering.
func labeledContext(chunks []kb.Chunk) string {
	texts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if chunk.Text == "" {
			continue
		}
		texts = append(texts, fmt.Sprintf("[CHUNK_%d]\n%s", i+1, chunk.Text))
	}
	return strings.Join(texts, "\n\n")
}
